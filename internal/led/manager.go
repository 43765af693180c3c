package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/sevenseg/internal/events"
)

// Manager mirrors display health on one status LED.
type Manager struct {
	controller Controller
	name       string
	eventBus   *events.Bus
	logger     *slog.Logger

	mu       sync.Mutex
	attached map[string]bool
	faulted  map[string]bool
	current  Pattern
	unsubs   []func()
}

// NewManager returns a Manager driving the LED called name.
func NewManager(controller Controller, name string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		name:       name,
		eventBus:   eventBus,
		logger:     logger,
		attached:   make(map[string]bool),
		faulted:    make(map[string]bool),
	}
}

// Start subscribes to lifecycle events and switches the LED off.
func (m *Manager) Start() {
	m.unsubs = []func(){
		m.eventBus.Subscribe(func(e events.DeviceAttachedEvent) {
			m.update(func() {
				m.attached[e.Device] = true
				delete(m.faulted, e.Device)
			})
		}),
		m.eventBus.Subscribe(func(e events.DeviceDetachedEvent) {
			m.update(func() {
				delete(m.attached, e.Device)
				delete(m.faulted, e.Device)
			})
		}),
		m.eventBus.Subscribe(func(e events.AttachFailedEvent) {
			m.update(func() { m.faulted[e.Device] = true })
		}),
		m.eventBus.Subscribe(func(e events.LineFaultEvent) {
			m.update(func() { m.faulted[e.Device] = true })
		}),
	}
	m.update(func() {})
	m.logger.Info("Status LED manager started", "led", m.name)
}

// Stop unsubscribes and switches the LED off.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(Off)
	m.logger.Info("Status LED manager stopped", "led", m.name)
}

// Pattern returns the pattern last applied.
func (m *Manager) Pattern() Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) update(change func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	change()

	want := Off
	switch {
	case len(m.faulted) > 0:
		want = Blink
	case len(m.attached) > 0:
		want = Solid
	}
	m.apply(want)
}

func (m *Manager) apply(p Pattern) {
	if p == m.current {
		return
	}
	if err := m.controller.Set(m.name, p); err != nil {
		m.logger.Warn("Failed to set status LED", "led", m.name, "pattern", string(p), "error", err)
		return
	}
	m.logger.Debug("Status LED updated", "led", m.name, "pattern", string(p))
	m.current = p
}
