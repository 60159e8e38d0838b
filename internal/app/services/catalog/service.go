// Package catalog serves the agency/service reference data.
package catalog

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Service reads and seeds the catalog. Mutations exist for seeding and
// administration; the public API only reads.
type Service struct {
	store storage.CatalogStore
	log   *logger.Logger
}

// New constructs the catalog service.
func New(store storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	return &Service{store: store, log: log}
}

// ListAgencies returns all agencies.
func (s *Service) ListAgencies(ctx context.Context) ([]catalog.Agency, error) {
	agencies, err := s.store.ListAgencies(ctx)
	if err != nil {
		return nil, errors.Internal("failed to list agencies", err)
	}
	return agencies, nil
}

// ListServices returns all services.
func (s *Service) ListServices(ctx context.Context) ([]catalog.Service, error) {
	services, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, errors.Internal("failed to list services", err)
	}
	return services, nil
}

// GetService returns one service by id.
func (s *Service) GetService(ctx context.Context, id string) (catalog.Service, error) {
	svc, err := s.store.GetService(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return catalog.Service{}, errors.NotFound("service")
		}
		return catalog.Service{}, errors.Internal("failed to load service", err)
	}
	return svc, nil
}

// CreateAgency registers an agency.
func (s *Service) CreateAgency(ctx context.Context, a catalog.Agency) (catalog.Agency, error) {
	if strings.TrimSpace(a.Name) == "" {
		return catalog.Agency{}, errors.Validation("agency name is required")
	}
	created, err := s.store.CreateAgency(ctx, a)
	if err != nil {
		if stderrors.Is(err, storage.ErrDuplicate) {
			return catalog.Agency{}, errors.Conflict("agency name already exists")
		}
		return catalog.Agency{}, errors.Internal("failed to create agency", err)
	}
	return created, nil
}

// CreateService registers a service under an agency.
func (s *Service) CreateService(ctx context.Context, svc catalog.Service) (catalog.Service, error) {
	if strings.TrimSpace(svc.Name) == "" || svc.AgencyID == "" {
		return catalog.Service{}, errors.Validation("service name and agency_id are required")
	}
	created, err := s.store.CreateService(ctx, svc)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return catalog.Service{}, errors.NotFound("agency")
		}
		return catalog.Service{}, errors.Internal("failed to create service", err)
	}
	return created, nil
}

// DeleteAgency removes an agency; the store cascades to its services and
// their requests and appointments.
func (s *Service) DeleteAgency(ctx context.Context, id string) error {
	if err := s.store.DeleteAgency(ctx, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("agency")
		}
		return errors.Internal("failed to delete agency", err)
	}
	return nil
}

// DeleteService removes one service, cascading to its requests and
// appointments.
func (s *Service) DeleteService(ctx context.Context, id string) error {
	if err := s.store.DeleteService(ctx, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("service")
		}
		return errors.Internal("failed to delete service", err)
	}
	return nil
}
