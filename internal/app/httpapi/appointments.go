package httpapi

import (
	"net/http"

	"github.com/egov-platform/citizen-services/internal/middleware"
)

func (h *handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	appts, err := h.app.Appointments.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ServiceID string `json:"service_id"`
		Date      string `json:"date"`
		Time      string `json:"time"`
		Location  string `json:"location"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	appt, err := h.app.Appointments.Create(r.Context(), userID, payload.ServiceID, payload.Date, payload.Time, payload.Location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	appt, err := h.app.Appointments.Get(r.Context(), userID, pathVar(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.app.Appointments.Delete(r.Context(), userID, pathVar(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
