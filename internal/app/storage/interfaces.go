package storage

import (
	"context"
	"errors"
	"time"

	"github.com/egov-platform/citizen-services/internal/app/domain/appointment"
	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/domain/document"
	"github.com/egov-platform/citizen-services/internal/app/domain/fine"
	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/app/domain/instrument"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
)

// ErrNotFound is returned by every store when a record does not exist. Stores
// that fold an ownership filter into the lookup return it for foreign records
// too, so callers cannot distinguish absent from unauthorized.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a uniqueness constraint is violated.
var ErrDuplicate = errors.New("duplicate record")

// UserStore persists portal accounts. DeleteUser cascades to the user's
// requests, appointments, fines, documents and payment instrument.
type UserStore interface {
	CreateUser(ctx context.Context, u identity.User) (identity.User, error)
	GetUser(ctx context.Context, id string) (identity.User, error)
	GetUserByUsername(ctx context.Context, username string) (identity.User, error)
	UpdateUser(ctx context.Context, u identity.User) (identity.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// CatalogStore persists agencies and services. DeleteAgency cascades to its
// services; DeleteService cascades to its requests and appointments.
type CatalogStore interface {
	CreateAgency(ctx context.Context, a catalog.Agency) (catalog.Agency, error)
	ListAgencies(ctx context.Context) ([]catalog.Agency, error)
	GetAgency(ctx context.Context, id string) (catalog.Agency, error)
	DeleteAgency(ctx context.Context, id string) error

	CreateService(ctx context.Context, s catalog.Service) (catalog.Service, error)
	ListServices(ctx context.Context) ([]catalog.Service, error)
	GetService(ctx context.Context, id string) (catalog.Service, error)
	DeleteService(ctx context.Context, id string) error
}

// RequestStore persists the service request ledger. Reads and mutations are
// owner-scoped where a userID parameter appears.
type RequestStore interface {
	CreateRequest(ctx context.Context, req request.ServiceRequest) (request.ServiceRequest, error)
	ListRequests(ctx context.Context, userID string) ([]request.ServiceRequest, error)
	GetRequest(ctx context.Context, userID, id string) (request.ServiceRequest, error)
	UpdateRequest(ctx context.Context, req request.ServiceRequest) (request.ServiceRequest, error)
	DeleteRequest(ctx context.Context, userID, id string) error
}

// AppointmentStore persists scheduled visits, owner-scoped.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error)
	ListAppointments(ctx context.Context, userID string) ([]appointment.Appointment, error)
	GetAppointment(ctx context.Context, userID, id string) (appointment.Appointment, error)
	DeleteAppointment(ctx context.Context, userID, id string) error
}

// InstrumentStore persists payment instruments, at most one per user.
type InstrumentStore interface {
	CreateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error)
	GetInstrument(ctx context.Context, userID string) (instrument.Instrument, error)
	UpdateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error)
	DeleteInstrument(ctx context.Context, userID string) error
}

// FineStore persists traffic fines. PayFines is the only multi-row mutation in
// the system: it marks the resolved unpaid set PAID and appends one ledger
// entry per fine, atomically. Fines already PAID when the set is resolved are
// excluded rather than double-logged. An empty resolved set is a no-op that
// returns empty slices.
type FineStore interface {
	CreateFine(ctx context.Context, f fine.TrafficFine) (fine.TrafficFine, error)
	ListUnpaidFines(ctx context.Context, userID string) ([]fine.TrafficFine, error)
	ListOverdueFines(ctx context.Context, asOf time.Time) ([]fine.TrafficFine, error)
	PayFines(ctx context.Context, userID string, fineIDs []string, all bool) ([]fine.TrafficFine, []request.ServiceRequest, error)
}

// DocumentStore persists document references, owner-scoped.
type DocumentStore interface {
	CreateDocument(ctx context.Context, d document.Document) (document.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]document.Document, error)
	DeleteDocument(ctx context.Context, userID, id string) error
}
