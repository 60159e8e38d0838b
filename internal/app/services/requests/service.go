// Package requests implements the service request ledger: creation with
// derived status, owner-scoped CRUD and payment.
package requests

import (
	"context"
	stderrors "errors"

	"github.com/tidwall/gjson"

	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/app/metrics"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Service manages the request ledger.
type Service struct {
	store       storage.RequestStore
	catalog     storage.CatalogStore
	instruments storage.InstrumentStore
	classifier  *Classifier
	policy      PaymentPolicy
	log         *logger.Logger
}

// New constructs the request service. A nil classifier or policy falls back
// to the defaults (built-in rule table, bank account variant).
func New(store storage.RequestStore, catalog storage.CatalogStore, instruments storage.InstrumentStore,
	classifier *Classifier, policy PaymentPolicy, log *logger.Logger) *Service {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	if policy == nil {
		policy = BankAccountPolicy{}
	}
	if log == nil {
		log = logger.NewDefault("requests")
	}
	return &Service{
		store:       store,
		catalog:     catalog,
		instruments: instruments,
		classifier:  classifier,
		policy:      policy,
		log:         log,
	}
}

// Create validates the service reference, normalizes the payload, derives the
// initial status and persists the request for the caller.
func (s *Service) Create(ctx context.Context, userID, serviceID string, payload interface{}) (request.ServiceRequest, error) {
	if serviceID == "" {
		return request.ServiceRequest{}, errors.Validation("service_id is required")
	}

	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return request.ServiceRequest{}, errors.NotFound("service")
		}
		return request.ServiceRequest{}, errors.Internal("failed to resolve service", err)
	}

	req := request.ServiceRequest{
		UserID:    userID,
		ServiceID: serviceID,
		Status:    s.classifier.Classify(svc),
		Payload:   normalizePayload(payload),
	}

	created, err := s.store.CreateRequest(ctx, req)
	if err != nil {
		return request.ServiceRequest{}, errors.Internal("failed to create request", err)
	}

	s.log.WithField("request_id", created.ID).
		WithField("user_id", userID).
		WithField("status", created.Status).
		Info("service request created")
	return created, nil
}

// normalizePayload accepts a structured map or a JSON-encoded string. Any
// parse failure recovers to an empty map and never fails the request.
func normalizePayload(payload interface{}) map[string]interface{} {
	switch v := payload.(type) {
	case nil:
		return map[string]interface{}{}
	case map[string]interface{}:
		return v
	case string:
		if gjson.Valid(v) {
			if parsed, ok := gjson.Parse(v).Value().(map[string]interface{}); ok {
				return parsed
			}
		}
		return map[string]interface{}{}
	default:
		return map[string]interface{}{}
	}
}

// List returns the caller's requests, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]request.ServiceRequest, error) {
	result, err := s.store.ListRequests(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list requests", err)
	}
	return result, nil
}

// Get returns one request owned by the caller. Foreign requests are reported
// as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (request.ServiceRequest, error) {
	req, err := s.store.GetRequest(ctx, userID, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return request.ServiceRequest{}, errors.NotFound("request")
		}
		return request.ServiceRequest{}, errors.Internal("failed to load request", err)
	}
	return req, nil
}

// UpdateFields is the partial update accepted on PUT.
type UpdateFields struct {
	Status  *request.Status
	Payload interface{}
}

// Update applies a partial update to a request owned by the caller.
func (s *Service) Update(ctx context.Context, userID, id string, fields UpdateFields) (request.ServiceRequest, error) {
	req, err := s.Get(ctx, userID, id)
	if err != nil {
		return request.ServiceRequest{}, err
	}

	if fields.Status != nil {
		if !fields.Status.Valid() {
			return request.ServiceRequest{}, errors.Validation("unknown status")
		}
		req.Status = *fields.Status
	}
	if fields.Payload != nil {
		req.Payload = normalizePayload(fields.Payload)
	}

	updated, err := s.store.UpdateRequest(ctx, req)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return request.ServiceRequest{}, errors.NotFound("request")
		}
		return request.ServiceRequest{}, errors.Internal("failed to update request", err)
	}
	return updated, nil
}

// Delete removes a request owned by the caller.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteRequest(ctx, userID, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("request")
		}
		return errors.Internal("failed to delete request", err)
	}
	return nil
}

// Pay settles a request against the caller's payment instrument. Paying an
// already-paid request is a no-op returning the unchanged record.
func (s *Service) Pay(ctx context.Context, userID, id string) (request.ServiceRequest, error) {
	req, err := s.Get(ctx, userID, id)
	if err != nil {
		return request.ServiceRequest{}, err
	}

	if req.IsPaid {
		return req, nil
	}

	inst, err := s.instruments.GetInstrument(ctx, userID)
	found := err == nil
	if err != nil && !stderrors.Is(err, storage.ErrNotFound) {
		return request.ServiceRequest{}, errors.Internal("failed to load payment instrument", err)
	}

	if err := s.policy.Authorize(inst, found); err != nil {
		metrics.RecordPayment(string(inst.Kind), "denied")
		return request.ServiceRequest{}, err
	}

	s.policy.MarkPaid(&req)
	updated, err := s.store.UpdateRequest(ctx, req)
	if err != nil {
		return request.ServiceRequest{}, errors.Internal("failed to record payment", err)
	}

	metrics.RecordPayment(string(inst.Kind), "paid")
	s.log.WithField("request_id", id).WithField("user_id", userID).Info("request paid")
	return updated, nil
}
