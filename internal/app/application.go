// Package app wires the portal's services to their backing stores.
package app

import (
	"github.com/egov-platform/citizen-services/internal/app/auth"
	"github.com/egov-platform/citizen-services/internal/app/services/appointments"
	"github.com/egov-platform/citizen-services/internal/app/services/catalog"
	"github.com/egov-platform/citizen-services/internal/app/services/documents"
	"github.com/egov-platform/citizen-services/internal/app/services/fines"
	"github.com/egov-platform/citizen-services/internal/app/services/health"
	"github.com/egov-platform/citizen-services/internal/app/services/identity"
	"github.com/egov-platform/citizen-services/internal/app/services/instruments"
	"github.com/egov-platform/citizen-services/internal/app/services/requests"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/internal/app/storage/memory"
	"github.com/egov-platform/citizen-services/internal/config"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Stores groups the persistence interfaces the application depends on. Any
// nil field falls back to a shared in-memory store, which keeps tests and
// local development free of external services.
type Stores struct {
	Users        storage.UserStore
	Catalog      storage.CatalogStore
	Requests     storage.RequestStore
	Appointments storage.AppointmentStore
	Instruments  storage.InstrumentStore
	Fines        storage.FineStore
	Documents    storage.DocumentStore
}

// Options tunes application construction beyond the stores.
type Options struct {
	InstrumentMode string
	Classifier     *requests.Classifier
	SweepSchedule  string
	DB             health.Pinger
	Logger         *logger.Logger
}

// Application is the service container handed to the HTTP layer.
type Application struct {
	Tokens       *auth.Manager
	Identity     *identity.Service
	Catalog      *catalog.Service
	Requests     *requests.Service
	Instruments  *instruments.Service
	Appointments *appointments.Service
	Fines        *fines.Service
	Documents    *documents.Service
	Health       *health.Service
	Sweeper      *fines.Sweeper
}

// New builds the application from the given stores and token manager.
func New(stores Stores, tokens *auth.Manager, opts Options) *Application {
	var shared *memory.Store
	ensure := func() *memory.Store {
		if shared == nil {
			shared = memory.New()
		}
		return shared
	}

	if stores.Users == nil {
		stores.Users = ensure()
	}
	if stores.Catalog == nil {
		stores.Catalog = ensure()
	}
	if stores.Requests == nil {
		stores.Requests = ensure()
	}
	if stores.Appointments == nil {
		stores.Appointments = ensure()
	}
	if stores.Instruments == nil {
		stores.Instruments = ensure()
	}
	if stores.Fines == nil {
		stores.Fines = ensure()
	}
	if stores.Documents == nil {
		stores.Documents = ensure()
	}

	if opts.InstrumentMode == "" {
		opts.InstrumentMode = config.InstrumentModeBankAccount
	}
	if opts.SweepSchedule == "" {
		opts.SweepSchedule = "@hourly"
	}

	log := opts.Logger

	return &Application{
		Tokens:       tokens,
		Identity:     identity.New(stores.Users, tokens, log),
		Catalog:      catalog.New(stores.Catalog, log),
		Requests:     requests.New(stores.Requests, stores.Catalog, stores.Instruments, opts.Classifier, requests.PolicyForMode(opts.InstrumentMode), log),
		Instruments:  instruments.New(stores.Instruments, opts.InstrumentMode, log),
		Appointments: appointments.New(stores.Appointments, stores.Catalog, log),
		Fines:        fines.New(stores.Fines, log),
		Documents:    documents.New(stores.Documents, log),
		Health:       health.New(opts.DB),
		Sweeper:      fines.NewSweeper(stores.Fines, opts.SweepSchedule, log),
	}
}
