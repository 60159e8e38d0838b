package httpapi

import (
	"net/http"

	instrumentssvc "github.com/egov-platform/citizen-services/internal/app/services/instruments"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/internal/middleware"
)

// instrumentPayload is the writable subset of an instrument accepted on
// create and update. The replace flag lets a client overwrite an existing
// instrument instead of receiving a conflict.
type instrumentPayload struct {
	IBAN            *string `json:"iban"`
	DisplayName     *string `json:"display_name"`
	InfiniteBalance *bool   `json:"infinite_balance"`
	CardNumber      *string `json:"card_number"`
	HolderName      *string `json:"holder_name"`
	Expiry          *string `json:"expiry"`
	Replace         bool    `json:"replace"`
}

func (p instrumentPayload) fields() instrumentssvc.Fields {
	return instrumentssvc.Fields{
		IBAN:            p.IBAN,
		DisplayName:     p.DisplayName,
		InfiniteBalance: p.InfiniteBalance,
		CardNumber:      p.CardNumber,
		HolderName:      p.HolderName,
		Expiry:          p.Expiry,
	}
}

func (h *handler) getInstrument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	inst, found, err := h.app.Instruments.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, errors.NotFound("payment instrument"))
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *handler) createInstrument(w http.ResponseWriter, r *http.Request) {
	var payload instrumentPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	inst, err := h.app.Instruments.Create(r.Context(), userID, payload.fields(), payload.Replace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *handler) updateInstrument(w http.ResponseWriter, r *http.Request) {
	var payload instrumentPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	inst, err := h.app.Instruments.Update(r.Context(), userID, payload.fields())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *handler) deleteInstrument(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.app.Instruments.Delete(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
