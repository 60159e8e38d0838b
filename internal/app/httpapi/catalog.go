package httpapi

import (
	"net/http"
)

func (h *handler) listAgencies(w http.ResponseWriter, r *http.Request) {
	agencies, err := h.app.Catalog.ListAgencies(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agencies)
}

func (h *handler) listServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.app.Catalog.ListServices(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *handler) getService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.app.Catalog.GetService(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}
