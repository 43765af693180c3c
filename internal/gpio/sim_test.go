package gpio

import (
	"errors"
	"testing"
)

func TestSimLineAfterRelease(t *testing.T) {
	sim := NewSim(testLogger())
	line, err := sim.Request("GPIO5")
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if err := line.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := line.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if err := line.Set(High); !errors.Is(err, ErrReleased) {
		t.Errorf("Set() after release error = %v, want ErrReleased", err)
	}
	if sim.Owned("GPIO5") {
		t.Error("line still owned after release")
	}

	// A released line can be requested again.
	if _, err := sim.Request("GPIO5"); err != nil {
		t.Errorf("Request() after release error = %v", err)
	}
}

func TestSimFailOnClear(t *testing.T) {
	sim := NewSim(testLogger())
	sim.FailOn(OpRequest, "GPIO6", errors.New("boom"))
	if _, err := sim.Request("GPIO6"); err == nil {
		t.Fatal("Request() succeeded with injected fault")
	}
	sim.FailOn(OpRequest, "GPIO6", nil)
	if _, err := sim.Request("GPIO6"); err != nil {
		t.Errorf("Request() after clearing fault error = %v", err)
	}
}

func TestNewDriver(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{"sim", "sim", false},
		{"periph", "periph", false},
		{"RPIO", "rpio", false},
		{"sysfs", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			alloc, err := New(tt.driver, testLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if err == nil && alloc.Driver() != tt.want {
				t.Errorf("Driver() = %q, want %q", alloc.Driver(), tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	if got := detect("Raspberry Pi 4 Model B Rev 1.4", testLogger()).Driver(); got != "periph" {
		t.Errorf("detect(Raspberry Pi) = %q, want periph", got)
	}
	if got := detect("unknown", testLogger()).Driver(); got != "sim" {
		t.Errorf("detect(unknown) = %q, want sim", got)
	}
}

func TestDetectBoardMissingFile(t *testing.T) {
	if got := detectBoard(t.TempDir() + "/model"); got != "unknown" {
		t.Errorf("detectBoard(missing) = %q, want unknown", got)
	}
}
