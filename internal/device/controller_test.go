package device

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/sevenseg/internal/devnode"
	"github.com/smazurov/sevenseg/internal/events"
	"github.com/smazurov/sevenseg/internal/gpio"
)

var testLines = []string{"GPIO2", "GPIO3", "GPIO4", "GPIO17", "GPIO27", "GPIO22", "GPIO10", "GPIO9"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// journal records teardown operations across collaborators in call order.
type journal struct {
	mu  sync.Mutex
	ops []string
}

func (j *journal) add(op string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, op)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.ops...)
}

type recordingAllocator struct {
	*gpio.Sim
	j *journal
}

func (a *recordingAllocator) Request(name string) (gpio.Line, error) {
	line, err := a.Sim.Request(name)
	if err != nil {
		return nil, err
	}
	return &recordingLine{Line: line, j: a.j}, nil
}

type recordingLine struct {
	gpio.Line
	j *journal
}

func (l *recordingLine) Release() error {
	l.j.add("release " + l.Name())
	return l.Line.Release()
}

type recordingRegistry struct {
	*devnode.Registry
	j             *journal
	failRegister  error
	failAttribute error
}

func (r *recordingRegistry) Register(class, name string, open devnode.OpenFunc) (devnode.Identity, error) {
	if r.failRegister != nil {
		return devnode.Identity{}, r.failRegister
	}
	return r.Registry.Register(class, name, open)
}

func (r *recordingRegistry) Unregister(id devnode.Identity) {
	r.j.add("unregister " + id.Name)
	r.Registry.Unregister(id)
}

func (r *recordingRegistry) PublishAttribute(id devnode.Identity, name string, attr devnode.Attribute) error {
	if r.failAttribute != nil {
		return r.failAttribute
	}
	return r.Registry.PublishAttribute(id, name, attr)
}

func (r *recordingRegistry) UnpublishAttribute(id devnode.Identity, name string) {
	r.j.add("unpublish " + name)
	r.Registry.UnpublishAttribute(id, name)
}

type fixture struct {
	j     *journal
	sim   *gpio.Sim
	reg   *recordingRegistry
	bus   *events.Bus
	ctrl  *Controller
	alloc *recordingAllocator
}

func newFixture() *fixture {
	j := &journal{}
	sim := gpio.NewSim(quietLogger())
	alloc := &recordingAllocator{Sim: sim, j: j}
	reg := &recordingRegistry{Registry: devnode.NewRegistry(quietLogger()), j: j}
	bus := events.New()
	return &fixture{
		j:     j,
		sim:   sim,
		reg:   reg,
		bus:   bus,
		alloc: alloc,
		ctrl:  NewController(alloc, reg, reg, WithEventBus(bus), WithLogger(quietLogger())),
	}
}

func TestAttachPublishesNodeAndAttribute(t *testing.T) {
	f := newFixture()
	inst, err := f.ctrl.Attach(Spec{Lines: testLines})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer inst.Detach()

	if inst.State() != Attached {
		t.Errorf("State() = %s, want attached", inst.State())
	}
	if inst.Name() != DefaultClass {
		t.Errorf("Name() = %q, want %q", inst.Name(), DefaultClass)
	}
	if inst.Display() == nil || inst.Display().Get() != 0 {
		t.Error("display not initialized to 0")
	}

	id := inst.Identity()
	if id.Major != devnode.MajorMax || id.Class != DefaultClass {
		t.Errorf("Identity() = %v", id)
	}

	attr, err := f.reg.Attribute(DefaultClass, DefaultClass, AttributeName)
	if err != nil {
		t.Fatalf("attribute not published: %v", err)
	}
	if _, err := attr.Store("5\n"); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	hid, err := f.reg.Open(DefaultClass)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	h, _ := f.reg.Handle(DefaultClass, hid)
	data, err := io.ReadAll(h)
	if err != nil || string(data) != "5\n" {
		t.Errorf("stream read = %q, %v, want \"5\\n\"", data, err)
	}
}

func TestAttachThirdLineFails(t *testing.T) {
	f := newFixture()
	f.sim.FailOn(gpio.OpRequest, testLines[2], errors.New("line busy"))

	inst, err := f.ctrl.Attach(Spec{Name: "seg", Lines: testLines})
	if err == nil {
		inst.Detach()
		t.Fatal("Attach() succeeded, want error")
	}
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("error = %v, want ErrResourceUnavailable", err)
	}
	if !errors.Is(err, gpio.ErrUnavailable) {
		t.Errorf("error = %v does not carry the gpio cause", err)
	}

	var devErr *Error
	if !errors.As(err, &devErr) || devErr.Step != StepAcquireLines || !devErr.HasCode(CodeResourceUnavailable) {
		t.Errorf("error = %#v", err)
	}

	want := []string{"release " + testLines[1], "release " + testLines[0]}
	if got := f.j.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("teardown = %v, want %v", got, want)
	}
	if len(f.reg.Nodes()) != 0 {
		t.Errorf("nodes published after failed attach: %v", f.reg.Nodes())
	}
	if f.sim.OwnedCount() != 0 {
		t.Errorf("%d lines still owned", f.sim.OwnedCount())
	}
}

func TestAttachRegisterFailureUnwinds(t *testing.T) {
	f := newFixture()
	f.reg.failRegister = errors.New("no identity")

	_, err := f.ctrl.Attach(Spec{Lines: testLines})
	if !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("error = %v, want ErrRegistrationFailed", err)
	}
	if errors.Is(err, ErrResourceUnavailable) {
		t.Error("registration failure matches ErrResourceUnavailable")
	}

	got := f.j.list()
	if len(got) != len(testLines) {
		t.Fatalf("teardown = %v, want %d releases", got, len(testLines))
	}
	for i, op := range got {
		if want := "release " + testLines[len(testLines)-1-i]; op != want {
			t.Errorf("teardown[%d] = %q, want %q", i, op, want)
		}
	}
}

func TestAttachAttributeFailureUnwinds(t *testing.T) {
	f := newFixture()
	f.reg.failAttribute = errors.New("attribute rejected")

	failed := make(chan events.AttachFailedEvent, 1)
	unsub := f.bus.Subscribe(func(e events.AttachFailedEvent) { failed <- e })
	defer unsub()

	_, err := f.ctrl.Attach(Spec{Name: "seg", Lines: testLines})
	var devErr *Error
	if !errors.As(err, &devErr) || devErr.Step != StepPublishAttribute || !errors.Is(err, ErrRegistrationFailed) {
		t.Fatalf("error = %v", err)
	}

	got := f.j.list()
	if len(got) != 1+len(testLines) || got[0] != "unregister seg" {
		t.Errorf("teardown = %v, want unregister then releases", got)
	}
	if _, ok := f.reg.Lookup("seg"); ok {
		t.Error("node still registered")
	}

	select {
	case e := <-failed:
		if e.Code != string(CodeRegistrationFailed) || e.Step != StepPublishAttribute {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Error("no AttachFailedEvent published")
	}
}

func TestDetachOrderAndIdempotence(t *testing.T) {
	f := newFixture()
	inst, err := f.ctrl.Attach(Spec{Name: "seg", Lines: testLines})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	inst.Detach()

	want := []string{"unpublish " + AttributeName, "unregister seg"}
	for i := len(testLines) - 1; i >= 0; i-- {
		want = append(want, "release "+testLines[i])
	}
	if got := f.j.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("teardown = %v\nwant %v", got, want)
	}
	if inst.State() != Unattached || inst.Display() != nil {
		t.Errorf("after detach: state %s, display %v", inst.State(), inst.Display())
	}

	inst.Detach()
	if got := f.j.list(); len(got) != len(want) {
		t.Errorf("second Detach() ran %d more steps", len(got)-len(want))
	}
	if f.sim.OwnedCount() != 0 {
		t.Errorf("%d lines still owned", f.sim.OwnedCount())
	}
}

func TestDetachConcurrent(t *testing.T) {
	f := newFixture()
	inst, err := f.ctrl.Attach(Spec{Lines: testLines})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inst.Detach()
		}()
	}
	wg.Wait()

	if got := len(f.j.list()); got != 2+len(testLines) {
		t.Errorf("teardown ran %d steps, want %d", got, 2+len(testLines))
	}
}

func TestDigitEventsPublished(t *testing.T) {
	f := newFixture()
	changed := make(chan events.DigitChangedEvent, 4)
	faults := make(chan events.LineFaultEvent, 4)
	unsub1 := f.bus.Subscribe(func(e events.DigitChangedEvent) { changed <- e })
	defer unsub1()
	unsub2 := f.bus.Subscribe(func(e events.LineFaultEvent) { faults <- e })
	defer unsub2()

	inst, err := f.ctrl.Attach(Spec{Name: "seg", Lines: testLines})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer inst.Detach()

	f.sim.FailOn(gpio.OpSet, testLines[0], errors.New("stuck"))
	if err := inst.Display().Set(1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	select {
	case e := <-changed:
		if e.Device != "seg" || e.Digit != 1 || e.Faults != 1 || !reflect.DeepEqual(e.Segments, []string{"b", "c"}) {
			t.Errorf("DigitChangedEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no DigitChangedEvent")
	}
	select {
	case e := <-faults:
		if e.Index != 0 || e.Line != testLines[0] || e.Level != "low" {
			t.Errorf("LineFaultEvent = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no LineFaultEvent")
	}
}

func TestErrorIs(t *testing.T) {
	err := &Error{Code: CodeRegistrationFailed, Device: "seg", Step: StepRegisterNode, Cause: devnode.ErrExists}
	if !errors.Is(err, ErrRegistrationFailed) || errors.Is(err, ErrResourceUnavailable) {
		t.Error("code sentinels not matched")
	}
	if !errors.Is(err, devnode.ErrExists) {
		t.Error("cause not reachable")
	}
}
