// Package device attaches and detaches 7-segment displays.
//
// Attach runs four steps in order: acquire the segment lines, create the
// display state, register the stream node and publish the "value"
// attribute. A failing step unwinds the completed ones in reverse order, so
// a device is either fully visible or not visible at all. Detach runs the
// same unwind on an attached device.
package device

import (
	"log/slog"
	"time"

	"github.com/smazurov/sevenseg/internal/devnode"
	"github.com/smazurov/sevenseg/internal/display"
	"github.com/smazurov/sevenseg/internal/events"
	"github.com/smazurov/sevenseg/internal/gpio"
	"github.com/smazurov/sevenseg/internal/logging"
	"github.com/smazurov/sevenseg/internal/metrics"
	"github.com/smazurov/sevenseg/internal/surface"
)

// DefaultClass groups the nodes of every display.
const DefaultClass = "sevenseg"

// AttributeName is the text attribute published for each display.
const AttributeName = "value"

// Registrar allocates identities and publishes stream nodes.
type Registrar interface {
	Register(class, name string, open devnode.OpenFunc) (devnode.Identity, error)
	Unregister(id devnode.Identity)
}

// AttributePublisher binds text attributes to registered nodes.
type AttributePublisher interface {
	PublishAttribute(id devnode.Identity, name string, attr devnode.Attribute) error
	UnpublishAttribute(id devnode.Identity, name string)
}

// Compatible is the description string handled by this package.
const Compatible = "rpi,seg7"

// Spec describes one display to attach.
type Spec struct {
	// Name is the node name. Empty means the class name.
	Name string
	// Compatible must equal Compatible for Manager to pick the entry up.
	Compatible string
	// Lines lists the 8 line identifiers, segment a first.
	Lines []string
	// Disabled entries are skipped by Manager.
	Disabled bool
}

// Controller attaches displays using one line allocator and one registry.
type Controller struct {
	alloc    gpio.Allocator
	nodes    Registrar
	attrs    AttributePublisher
	eventBus *events.Bus
	class    string
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithEventBus publishes lifecycle and digit events on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(c *Controller) { c.eventBus = bus }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithClass overrides DefaultClass.
func WithClass(class string) Option {
	return func(c *Controller) { c.class = class }
}

// NewController returns a Controller.
func NewController(alloc gpio.Allocator, nodes Registrar, attrs AttributePublisher, opts ...Option) *Controller {
	c := &Controller{
		alloc: alloc,
		nodes: nodes,
		attrs: attrs,
		class: DefaultClass,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetLogger("device")
	}
	return c
}

// Attach brings up the display described by spec. On failure it returns an
// *Error and nothing acquired along the way stays held or visible.
func (c *Controller) Attach(spec Spec) (*Instance, error) {
	name := spec.Name
	if name == "" {
		name = c.class
	}
	logger := c.logger.With("device", name)

	inst := &Instance{
		name:     name,
		class:    c.class,
		lines:    append([]string(nil), spec.Lines...),
		driver:   c.alloc.Driver(),
		state:    Attaching,
		eventBus: c.eventBus,
		logger:   logger,
	}
	logger.Info("Attaching display", "lines", spec.Lines, "driver", inst.driver)

	fail := func(code ErrorCode, step string, cause error) error {
		err := &Error{Code: code, Device: name, Step: step, Cause: cause}
		logger.Error("Attach failed, unwinding", "step", step, "code", string(code), "error", cause)
		inst.unwind()

		metrics.IncAttachFailures(string(code))
		c.eventBus.Publish(events.AttachFailedEvent{
			Device:    name,
			Code:      string(code),
			Step:      step,
			Error:     cause.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		})
		return err
	}

	pool, err := gpio.Acquire(c.alloc, spec.Lines, logger)
	if err != nil {
		return nil, fail(CodeResourceUnavailable, StepAcquireLines, err)
	}
	inst.push("release_lines", pool.Release)

	state := display.New(pool, display.WithLogger(logger), display.WithObserver(inst.observe))
	inst.display = state
	inst.push("drop_state", inst.dropState)

	stream := surface.NewStream(state, logger)
	attr := surface.NewAttribute(state)

	id, err := c.nodes.Register(c.class, name, func() devnode.Handle {
		return &countingHandle{File: stream.Open(), device: name}
	})
	if err != nil {
		return nil, fail(CodeRegistrationFailed, StepRegisterNode, err)
	}
	inst.id = id
	inst.push("unregister_node", func() { c.nodes.Unregister(id) })

	if err := c.attrs.PublishAttribute(id, AttributeName, &countingAttribute{Attribute: attr, device: name}); err != nil {
		return nil, fail(CodeRegistrationFailed, StepPublishAttribute, err)
	}
	inst.push("unpublish_attribute", func() { c.attrs.UnpublishAttribute(id, AttributeName) })

	inst.setState(Attached)
	metrics.SetAttached(name, true)
	metrics.SetDigit(name, state.Get())
	c.eventBus.Publish(events.DeviceAttachedEvent{
		Device:    name,
		Class:     c.class,
		Dev:       id.Dev(),
		Lines:     inst.Lines(),
		Driver:    inst.driver,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	logger.Info("Display attached", "dev", id.Dev(), "digit", state.Get())
	return inst, nil
}
