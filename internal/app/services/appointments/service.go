// Package appointments manages scheduled service visits.
package appointments

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/egov-platform/citizen-services/internal/app/domain/appointment"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Service manages the appointment log.
type Service struct {
	store   storage.AppointmentStore
	catalog storage.CatalogStore
	log     *logger.Logger
}

// New constructs the appointment service.
func New(store storage.AppointmentStore, catalog storage.CatalogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("appointments")
	}
	return &Service{store: store, catalog: catalog, log: log}
}

// Create schedules a visit for the caller.
func (s *Service) Create(ctx context.Context, userID, serviceID, date, visitTime, location string) (appointment.Appointment, error) {
	if serviceID == "" {
		return appointment.Appointment{}, errors.Validation("service_id is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return appointment.Appointment{}, errors.Validation("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", visitTime); err != nil {
		return appointment.Appointment{}, errors.Validation("time must be HH:MM")
	}

	if _, err := s.catalog.GetService(ctx, serviceID); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return appointment.Appointment{}, errors.NotFound("service")
		}
		return appointment.Appointment{}, errors.Internal("failed to resolve service", err)
	}

	created, err := s.store.CreateAppointment(ctx, appointment.Appointment{
		ServiceID: serviceID,
		UserID:    userID,
		Date:      date,
		Time:      visitTime,
		Location:  location,
	})
	if err != nil {
		return appointment.Appointment{}, errors.Internal("failed to create appointment", err)
	}

	s.log.WithField("appointment_id", created.ID).WithField("user_id", userID).Info("appointment scheduled")
	return created, nil
}

// List returns the caller's appointments, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]appointment.Appointment, error) {
	result, err := s.store.ListAppointments(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list appointments", err)
	}
	return result, nil
}

// Get returns one appointment owned by the caller.
func (s *Service) Get(ctx context.Context, userID, id string) (appointment.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, userID, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return appointment.Appointment{}, errors.NotFound("appointment")
		}
		return appointment.Appointment{}, errors.Internal("failed to load appointment", err)
	}
	return a, nil
}

// Delete cancels an appointment owned by the caller.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteAppointment(ctx, userID, id); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return errors.NotFound("appointment")
		}
		return errors.Internal("failed to delete appointment", err)
	}
	return nil
}
