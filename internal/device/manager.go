package device

import (
	"errors"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/smazurov/sevenseg/internal/logging"
)

// Manager keeps the attached displays in line with a device description,
// the way a platform driver binds to matching device tree nodes.
type Manager struct {
	controller *Controller
	logger     *slog.Logger

	mu        sync.Mutex
	instances map[string]*Instance
	stopped   bool
}

// NewManager creates a manager attaching through controller.
func NewManager(controller *Controller, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.GetLogger("device")
	}
	return &Manager{
		controller: controller,
		logger:     logger,
		instances:  make(map[string]*Instance),
	}
}

// Sync attaches every enabled spec with a matching compatible string,
// detaches instances whose spec disappeared and re-attaches instances whose
// lines changed. Attach failures are logged and returned joined; the
// remaining specs are still processed and failed ones are retried on the
// next Sync.
func (m *Manager) Sync(specs []Spec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	desired := make(map[string]Spec)
	for _, spec := range specs {
		name := spec.Name
		if name == "" {
			name = m.controller.class
		}
		if spec.Compatible != Compatible {
			m.logger.Debug("No driver for description entry", "device", name, "compatible", spec.Compatible)
			continue
		}
		if spec.Disabled {
			m.logger.Info("Description entry disabled", "device", name)
			continue
		}
		if _, dup := desired[name]; dup {
			m.logger.Warn("Duplicate description entry ignored", "device", name)
			continue
		}
		spec.Name = name
		desired[name] = spec
	}

	for _, name := range sortedKeys(m.instances) {
		inst := m.instances[name]
		spec, ok := desired[name]
		switch {
		case !ok:
			inst.detach("removed")
			delete(m.instances, name)
		case !slices.Equal(spec.Lines, inst.lines):
			inst.detach("reconfigured")
			delete(m.instances, name)
		}
	}

	var errs []error
	for _, name := range sortedKeys(desired) {
		if _, ok := m.instances[name]; ok {
			continue
		}
		inst, err := m.controller.Attach(desired[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.instances[name] = inst
	}

	m.logger.Info("Devices synced", "attached", len(m.instances), "failed", len(errs))
	return errors.Join(errs...)
}

// Instance returns the attached instance named name.
func (m *Manager) Instance(name string) (*Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[name]
	return inst, ok
}

// Instances returns the attached instances sorted by name.
func (m *Manager) Instances() []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, name := range sortedKeys(m.instances) {
		out = append(out, m.instances[name])
	}
	return out
}

// Stop detaches every instance. Later Syncs are ignored.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := sortedKeys(m.instances)
	for n := len(names) - 1; n >= 0; n-- {
		m.instances[names[n]].detach("shutdown")
		delete(m.instances, names[n])
	}
	m.stopped = true
	m.logger.Info("Device manager stopped")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
