package httpapi

import (
	"net/http"
	"strings"

	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	requestssvc "github.com/egov-platform/citizen-services/internal/app/services/requests"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/internal/middleware"
)

func (h *handler) listRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqs, err := h.app.Requests.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ServiceID string      `json:"service_id"`
		Payload   interface{} `json:"payload"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	created, err := h.app.Requests.Create(r.Context(), userID, payload.ServiceID, payload.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	req, err := h.app.Requests.Get(r.Context(), userID, pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status  *string     `json:"status"`
		Payload interface{} `json:"payload"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	fields := requestssvc.UpdateFields{Payload: payload.Payload}
	if payload.Status != nil {
		status := request.Status(strings.ToUpper(strings.TrimSpace(*payload.Status)))
		if !status.Valid() {
			writeError(w, errors.Validation("invalid status"))
			return
		}
		fields.Status = &status
	}

	userID := middleware.GetUserID(r.Context())
	updated, err := h.app.Requests.Update(r.Context(), userID, pathVar(r, "id"), fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.app.Requests.Delete(r.Context(), userID, pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) payRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	req, err := h.app.Requests.Pay(r.Context(), userID, pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
