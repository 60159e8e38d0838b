package httpapi

import (
	"net/http"

	"github.com/egov-platform/citizen-services/internal/middleware"
)

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	docs, err := h.app.Documents.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	doc, err := h.app.Documents.Create(r.Context(), userID, payload.Title, payload.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.app.Documents.Delete(r.Context(), userID, pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
