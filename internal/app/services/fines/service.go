// Package fines serves traffic fine listings and the batch payment flow.
package fines

import (
	"context"

	"github.com/egov-platform/citizen-services/internal/app/domain/fine"
	"github.com/egov-platform/citizen-services/internal/app/metrics"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Service manages the fine ledger.
type Service struct {
	store storage.FineStore
	log   *logger.Logger
}

// New constructs the fine service.
func New(store storage.FineStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("fines")
	}
	return &Service{store: store, log: log}
}

// ListUnpaid returns the caller's unpaid fines, ordered by issue date then
// creation, newest first.
func (s *Service) ListUnpaid(ctx context.Context, userID string) ([]fine.TrafficFine, error) {
	fines, err := s.store.ListUnpaidFines(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list fines", err)
	}
	return fines, nil
}

// PayResult reports a completed batch payment.
type PayResult struct {
	Updated   int
	Remaining []fine.TrafficFine
}

// Pay settles the caller's unpaid fines: either all of them, or the unpaid
// subset matching fineIDs. Each settled fine appends one approved, paid
// ledger entry; the whole batch commits atomically or not at all. An empty
// resolved set — including ids that are already paid — is a validation error
// and performs no mutation.
func (s *Service) Pay(ctx context.Context, userID string, payAll bool, fineIDs []string) (PayResult, error) {
	if !payAll && len(fineIDs) == 0 {
		return PayResult{}, errors.Validation("either pay_all or a non-empty fine_ids list is required")
	}

	paid, _, err := s.store.PayFines(ctx, userID, fineIDs, payAll)
	if err != nil {
		return PayResult{}, errors.Internal("failed to pay fines", err)
	}
	if len(paid) == 0 {
		return PayResult{}, errors.Validation("no unpaid fines matched the request")
	}

	remaining, err := s.store.ListUnpaidFines(ctx, userID)
	if err != nil {
		return PayResult{}, errors.Internal("failed to list remaining fines", err)
	}

	metrics.RecordFinesPaid(len(paid))
	s.log.WithField("user_id", userID).WithField("updated", len(paid)).Info("fines paid")
	return PayResult{Updated: len(paid), Remaining: remaining}, nil
}
