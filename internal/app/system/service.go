// Package system manages the lifecycle of background components.
package system

import "context"

// Service represents a lifecycle-managed component. Background modules
// implement this interface so the manager can start and stop them
// deterministically.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts registered services in order and stops them in reverse.
type Manager struct {
	services []Service
	started  []Service
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register appends a service to the start order.
func (m *Manager) Register(svc Service) {
	m.services = append(m.services, svc)
}

// StartAll starts every registered service. On failure the already-started
// services are stopped in reverse order before the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			m.StopAll(ctx)
			return err
		}
		m.started = append(m.started, svc)
	}
	return nil
}

// StopAll stops started services in reverse order. Stop errors do not halt
// the remaining shutdowns.
func (m *Manager) StopAll(ctx context.Context) {
	for i := len(m.started) - 1; i >= 0; i-- {
		_ = m.started[i].Stop(ctx)
	}
	m.started = nil
}
