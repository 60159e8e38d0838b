package httpapi

import (
	"fmt"
	"net/http"

	"github.com/egov-platform/citizen-services/internal/middleware"
)

func (h *handler) listFines(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	fines, err := h.app.Fines.ListUnpaid(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fines)
}

func (h *handler) payFines(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PayAll  bool     `json:"pay_all"`
		FineIDs []string `json:"fine_ids"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	result, err := h.app.Fines.Pay(r.Context(), userID, payload.PayAll, payload.FineIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("%d fine(s) paid", result.Updated),
		"updated": result.Updated,
		"fines":   result.Remaining,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	snap := h.app.Health.Check(r.Context())
	status := http.StatusOK
	if snap.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}
