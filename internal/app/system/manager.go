package system

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
)

// ErrStarted is returned by Register once the manager has started.
var ErrStarted = stderrors.New("system: manager already started")

// Manager starts services in registration order and stops them in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	names    map[string]struct{}
	running  []Service
	started  bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{names: make(map[string]struct{})}
}

// Register adds a service. Names must be unique.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("system: nil service")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrStarted
	}
	name := svc.Name()
	if _, dup := m.names[name]; dup {
		return fmt.Errorf("system: service %q already registered", name)
	}
	m.names[name] = struct{}{}
	m.services = append(m.services, svc)
	return nil
}

// Services returns the registered service names in start order.
func (m *Manager) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.services))
	for i, svc := range m.services {
		names[i] = svc.Name()
	}
	return names
}

// Start starts every service. If one fails, those already started are
// stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrStarted
	}
	m.started = true
	services := append([]Service(nil), m.services...)
	m.mu.Unlock()

	running := make([]Service, 0, len(services))
	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			stopAll(ctx, running)
			m.mu.Lock()
			m.started = false
			m.mu.Unlock()
			return fmt.Errorf("start %s: %w", svc.Name(), err)
		}
		running = append(running, svc)
	}

	m.mu.Lock()
	m.running = running
	m.mu.Unlock()
	return nil
}

// Stop stops running services in reverse start order. All services are asked
// to stop; the errors are joined.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	running := m.running
	m.running = nil
	m.started = false
	m.mu.Unlock()

	return stopAll(ctx, running)
}

func stopAll(ctx context.Context, running []Service) error {
	var errs []error
	for i := len(running) - 1; i >= 0; i-- {
		if err := running[i].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", running[i].Name(), err))
		}
	}
	return stderrors.Join(errs...)
}
