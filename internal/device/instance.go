package device

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/sevenseg/internal/devnode"
	"github.com/smazurov/sevenseg/internal/display"
	"github.com/smazurov/sevenseg/internal/events"
	"github.com/smazurov/sevenseg/internal/metrics"
)

// State is the lifecycle state of an Instance.
type State int

// Lifecycle states.
const (
	Unattached State = iota
	Attaching
	Attached
	Detaching
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attaching:
		return "attaching"
	case Attached:
		return "attached"
	case Detaching:
		return "detaching"
	default:
		return "unknown"
	}
}

type undoStep struct {
	name string
	fn   func()
}

// Instance is one display brought up by Controller.Attach.
type Instance struct {
	name   string
	class  string
	lines  []string
	driver string

	mu      sync.Mutex
	state   State
	id      devnode.Identity
	display *display.State
	undo    []undoStep

	// detachMu serializes Detach so a second caller waits for the first.
	detachMu sync.Mutex

	eventBus *events.Bus
	logger   *slog.Logger
}

// Name returns the node name.
func (i *Instance) Name() string { return i.name }

// Class returns the node class.
func (i *Instance) Class() string { return i.class }

// Driver returns the name of the line allocator.
func (i *Instance) Driver() string { return i.driver }

// Lines returns the line identifiers, segment a first.
func (i *Instance) Lines() []string {
	return append([]string(nil), i.lines...)
}

// State returns the lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Identity returns the registered identity. It is zero unless attached.
func (i *Instance) Identity() devnode.Identity {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.id
}

// Display returns the display state, or nil once detached.
func (i *Instance) Display() *display.State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.display
}

// Detach removes the attribute, unregisters the node, drops the display
// state and releases the lines, in that order. A second call is a no-op.
func (i *Instance) Detach() {
	i.detach("detached")
}

func (i *Instance) detach(reason string) {
	i.detachMu.Lock()
	defer i.detachMu.Unlock()

	if i.State() != Attached {
		return
	}
	i.logger.Info("Detaching display", "reason", reason)
	i.unwind()

	metrics.DeleteDeviceMetrics(i.name)
	i.eventBus.Publish(events.DeviceDetachedEvent{
		Device:    i.name,
		Reason:    reason,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	i.logger.Info("Display detached")
}

func (i *Instance) push(name string, fn func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.undo = append(i.undo, undoStep{name: name, fn: fn})
}

func (i *Instance) setState(s State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = s
}

// unwind runs the recorded steps last first and leaves the instance
// Unattached.
func (i *Instance) unwind() {
	i.mu.Lock()
	i.state = Detaching
	steps := i.undo
	i.undo = nil
	i.mu.Unlock()

	for n := len(steps) - 1; n >= 0; n-- {
		i.logger.Debug("Teardown step", "step", steps[n].name)
		steps[n].fn()
	}

	i.mu.Lock()
	i.state = Unattached
	i.id = devnode.Identity{}
	i.mu.Unlock()
}

func (i *Instance) dropState() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.display = nil
}

func (i *Instance) observe(c display.Change) {
	metrics.SetDigit(i.name, int(c.Digit))
	now := time.Now().Format(time.RFC3339)

	for _, f := range c.Faults {
		metrics.IncLineFault(i.name, f.Name)
		i.eventBus.Publish(events.LineFaultEvent{
			Device:    i.name,
			Index:     f.Index,
			Line:      f.Name,
			Level:     f.Level.String(),
			Error:     f.Err.Error(),
			Timestamp: now,
		})
	}

	i.eventBus.Publish(events.DigitChangedEvent{
		Device:    i.name,
		Previous:  int(c.Previous),
		Digit:     int(c.Digit),
		Pattern:   c.Pattern.String(),
		Segments:  c.Pattern.Lit(),
		Faults:    len(c.Faults),
		Timestamp: now,
	})
}
