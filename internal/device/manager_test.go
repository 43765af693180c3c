package device

import (
	"errors"
	"testing"

	"github.com/smazurov/sevenseg/internal/gpio"
)

func otherLines() []string {
	return []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19", "GPIO26", "GPIO21", "GPIO20", "GPIO16"}
}

func TestManagerSyncAttachesMatching(t *testing.T) {
	f := newFixture()
	mgr := NewManager(f.ctrl, quietLogger())
	defer mgr.Stop()

	err := mgr.Sync([]Spec{
		{Name: "seg0", Compatible: Compatible, Lines: testLines},
		{Name: "led", Compatible: "gpio-leds", Lines: otherLines()},
		{Name: "off", Compatible: Compatible, Lines: otherLines(), Disabled: true},
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	insts := mgr.Instances()
	if len(insts) != 1 || insts[0].Name() != "seg0" {
		t.Fatalf("Instances() = %v", insts)
	}
	if f.sim.OwnedCount() != len(testLines) {
		t.Errorf("owned = %d, want %d", f.sim.OwnedCount(), len(testLines))
	}
}

func TestManagerSyncRemovesAndReconfigures(t *testing.T) {
	f := newFixture()
	mgr := NewManager(f.ctrl, quietLogger())
	defer mgr.Stop()

	specs := []Spec{
		{Name: "seg0", Compatible: Compatible, Lines: testLines},
		{Name: "seg1", Compatible: Compatible, Lines: otherLines()},
	}
	if err := mgr.Sync(specs); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	first, _ := mgr.Instance("seg0")

	// Unchanged entries keep their instance.
	if err := mgr.Sync(specs); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if again, _ := mgr.Instance("seg0"); again != first {
		t.Error("unchanged device was re-attached")
	}

	// seg1 removed, seg0 moved onto seg1's old lines.
	if err := mgr.Sync([]Spec{{Name: "seg0", Compatible: Compatible, Lines: otherLines()}}); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if _, ok := mgr.Instance("seg1"); ok {
		t.Error("seg1 still attached")
	}
	moved, ok := mgr.Instance("seg0")
	if !ok || moved == first {
		t.Fatal("seg0 not re-attached")
	}
	if first.State() != Unattached {
		t.Errorf("old instance state = %s", first.State())
	}
	for _, name := range testLines {
		if f.sim.Owned(name) {
			t.Errorf("line %s still owned", name)
		}
	}
}

func TestManagerSyncReportsFailuresAndRetries(t *testing.T) {
	f := newFixture()
	mgr := NewManager(f.ctrl, quietLogger())
	defer mgr.Stop()

	f.sim.FailOn(gpio.OpConfigure, "GPIO13", errors.New("input only"))
	err := mgr.Sync([]Spec{
		{Name: "seg0", Compatible: Compatible, Lines: testLines},
		{Name: "seg1", Compatible: Compatible, Lines: otherLines()},
	})
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Fatalf("Sync() error = %v, want ErrResourceUnavailable", err)
	}
	if len(mgr.Instances()) != 1 {
		t.Fatalf("Instances() = %v, want only seg0", mgr.Instances())
	}

	f.sim.FailOn(gpio.OpConfigure, "GPIO13", nil)
	if err := mgr.Sync([]Spec{
		{Name: "seg0", Compatible: Compatible, Lines: testLines},
		{Name: "seg1", Compatible: Compatible, Lines: otherLines()},
	}); err != nil {
		t.Fatalf("retry Sync() error = %v", err)
	}
	if len(mgr.Instances()) != 2 {
		t.Errorf("Instances() = %d, want 2", len(mgr.Instances()))
	}
}

func TestManagerDuplicateNames(t *testing.T) {
	f := newFixture()
	mgr := NewManager(f.ctrl, quietLogger())
	defer mgr.Stop()

	err := mgr.Sync([]Spec{
		{Compatible: Compatible, Lines: testLines},
		{Name: DefaultClass, Compatible: Compatible, Lines: otherLines()},
	})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	inst, ok := mgr.Instance(DefaultClass)
	if !ok || inst.Lines()[0] != testLines[0] {
		t.Errorf("first entry did not win")
	}
}

func TestManagerStop(t *testing.T) {
	f := newFixture()
	mgr := NewManager(f.ctrl, quietLogger())

	if err := mgr.Sync([]Spec{
		{Name: "seg0", Compatible: Compatible, Lines: testLines},
		{Name: "seg1", Compatible: Compatible, Lines: otherLines()},
	}); err != nil {
		t.Fatal(err)
	}
	mgr.Stop()

	if f.sim.OwnedCount() != 0 || len(f.reg.Nodes()) != 0 {
		t.Errorf("after Stop: %d lines owned, nodes %v", f.sim.OwnedCount(), f.reg.Nodes())
	}
	if err := mgr.Sync([]Spec{{Name: "seg0", Compatible: Compatible, Lines: testLines}}); err != nil || len(mgr.Instances()) != 0 {
		t.Error("Sync after Stop attached devices")
	}
}
