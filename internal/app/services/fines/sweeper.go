package fines

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/egov-platform/citizen-services/internal/app/metrics"
	"github.com/egov-platform/citizen-services/internal/app/storage"
	"github.com/egov-platform/citizen-services/pkg/logger"
)

// Sweeper periodically counts unpaid fines past their due date and publishes
// the result as a gauge. It never mutates fines; PENDING/PAID are the only
// states a fine moves through.
type Sweeper struct {
	store    storage.FineStore
	schedule string
	cron     *cron.Cron
	log      *logger.Logger
}

// NewSweeper builds a sweeper on a cron schedule expression (e.g. "@hourly").
func NewSweeper(store storage.FineStore, schedule string, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("fine-sweeper")
	}
	return &Sweeper{store: store, schedule: schedule, log: log}
}

// Name identifies the sweeper to the lifecycle manager.
func (s *Sweeper) Name() string { return "fine-sweeper" }

// Start schedules the sweep and runs one immediately so the gauge is
// populated from boot.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	return nil
}

func (s *Sweeper) sweep() {
	overdue, err := s.store.ListOverdueFines(context.Background(), time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Warn("overdue fine sweep failed")
		return
	}
	metrics.SetOverdueFines(len(overdue))
	if len(overdue) > 0 {
		s.log.WithField("count", len(overdue)).Info("overdue unpaid fines")
	}
}
