// Package instruments enforces the one-instrument-per-user contract.
package instruments

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/egov-platform/citizen-services/internal/app/domain/instrument"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/config"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Fields is the writable subset of an instrument. Pointer fields distinguish
// "not provided" from zero values on partial updates.
type Fields struct {
	IBAN            *string
	DisplayName     *string
	InfiniteBalance *bool
	CardNumber      *string
	HolderName      *string
	Expiry          *string
}

// Service manages payment instruments for the configured variant.
type Service struct {
	store storage.InstrumentStore
	kind  instrument.Kind
	log   *logger.Logger
}

// New constructs the instrument service for the deployment's mode.
func New(store storage.InstrumentStore, mode string, log *logger.Logger) *Service {
	kind := instrument.KindBankAccount
	if mode == config.InstrumentModeCreditCard {
		kind = instrument.KindCreditCard
	}
	if log == nil {
		log = logger.NewDefault("instruments")
	}
	return &Service{store: store, kind: kind, log: log}
}

// Kind reports which variant this deployment serves.
func (s *Service) Kind() instrument.Kind { return s.kind }

// Create registers the caller's instrument. When one already exists the call
// fails with Conflict unless replace is set, in which case the prior
// instrument is deleted first. Both outcomes are deterministic and idempotent
// under retry.
func (s *Service) Create(ctx context.Context, userID string, fields Fields, replace bool) (instrument.Instrument, error) {
	inst := instrument.Instrument{UserID: userID, Kind: s.kind}
	applyFields(&inst, fields)

	if err := s.validate(inst); err != nil {
		return instrument.Instrument{}, err
	}

	if replace {
		if err := s.store.DeleteInstrument(ctx, userID); err != nil {
			return instrument.Instrument{}, errors.Internal("failed to replace instrument", err)
		}
	}

	created, err := s.store.CreateInstrument(ctx, inst)
	if err != nil {
		if stderrors.Is(err, storage.ErrDuplicate) {
			return instrument.Instrument{}, errors.Conflict("payment instrument already exists")
		}
		return instrument.Instrument{}, errors.Internal("failed to create instrument", err)
	}

	s.log.WithField("user_id", userID).WithField("kind", s.kind).Info("payment instrument created")
	return created, nil
}

// Get returns the caller's instrument. Absence is reported through found,
// never as an error.
func (s *Service) Get(ctx context.Context, userID string) (instrument.Instrument, bool, error) {
	inst, err := s.store.GetInstrument(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return instrument.Instrument{}, false, nil
		}
		return instrument.Instrument{}, false, errors.Internal("failed to load instrument", err)
	}
	return inst, true, nil
}

// Update applies a partial update to the mutable fields.
func (s *Service) Update(ctx context.Context, userID string, fields Fields) (instrument.Instrument, error) {
	inst, err := s.store.GetInstrument(ctx, userID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return instrument.Instrument{}, errors.NotFound("payment instrument")
		}
		return instrument.Instrument{}, errors.Internal("failed to load instrument", err)
	}

	applyFields(&inst, fields)
	if err := s.validate(inst); err != nil {
		return instrument.Instrument{}, err
	}

	updated, err := s.store.UpdateInstrument(ctx, inst)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return instrument.Instrument{}, errors.NotFound("payment instrument")
		}
		return instrument.Instrument{}, errors.Internal("failed to update instrument", err)
	}
	return updated, nil
}

// Delete removes the caller's instrument. Succeeds whether or not one
// existed.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.store.DeleteInstrument(ctx, userID); err != nil {
		return errors.Internal("failed to delete instrument", err)
	}
	return nil
}

func applyFields(inst *instrument.Instrument, fields Fields) {
	if fields.IBAN != nil {
		inst.IBAN = strings.TrimSpace(*fields.IBAN)
	}
	if fields.DisplayName != nil {
		inst.DisplayName = *fields.DisplayName
	}
	if fields.InfiniteBalance != nil {
		inst.InfiniteBalance = *fields.InfiniteBalance
	}
	if fields.CardNumber != nil {
		inst.CardNumber = strings.TrimSpace(*fields.CardNumber)
	}
	if fields.HolderName != nil {
		inst.HolderName = *fields.HolderName
	}
	if fields.Expiry != nil {
		inst.Expiry = *fields.Expiry
	}
}

func (s *Service) validate(inst instrument.Instrument) error {
	switch s.kind {
	case instrument.KindBankAccount:
		if inst.IBAN == "" {
			return errors.Validation("iban is required")
		}
	case instrument.KindCreditCard:
		if inst.CardNumber == "" {
			return errors.Validation("card_number is required")
		}
	}
	return nil
}
