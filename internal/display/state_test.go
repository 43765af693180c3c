package display

import (
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/sevenseg/internal/gpio"
	"github.com/smazurov/sevenseg/internal/segment"
)

var lines = []string{"a", "b", "c", "d", "e", "f", "g", "dp"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newPool(t *testing.T) (*gpio.Sim, *gpio.Pool) {
	t.Helper()
	sim := gpio.NewSim(quietLogger())
	pool, err := gpio.Acquire(sim, lines, quietLogger())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(pool.Release)
	return sim, pool
}

// shown decodes the levels of the simulated lines back into a pattern.
func shown(sim *gpio.Sim) segment.Pattern {
	var p segment.Pattern
	for i, name := range lines {
		if level, _ := sim.Level(name); level == gpio.High {
			p |= 1 << uint(i)
		}
	}
	return p
}

type recordingDriver struct {
	patterns []segment.Pattern
}

func (d *recordingDriver) Drive(p segment.Pattern) []gpio.LineFault {
	d.patterns = append(d.patterns, p)
	return nil
}

func TestNewDrivesZero(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, WithLogger(quietLogger()))

	if s.Get() != 0 {
		t.Errorf("Get() = %d, want 0", s.Get())
	}
	if len(drv.patterns) != 1 || drv.patterns[0] != segment.Encode(0) {
		t.Errorf("initial drive = %v, want [%s]", drv.patterns, segment.Encode(0))
	}
}

func TestSetDrivesLines(t *testing.T) {
	sim, pool := newPool(t)
	s := New(pool, WithLogger(quietLogger()))

	for d := 0; d <= 9; d++ {
		if err := s.Set(d); err != nil {
			t.Fatalf("Set(%d) error = %v", d, err)
		}
		if s.Get() != d {
			t.Errorf("Get() = %d, want %d", s.Get(), d)
		}
		if got, want := shown(sim), segment.Encode(segment.Digit(d)); got != want {
			t.Errorf("digit %d: lines show %s, want %s", d, got, want)
		}
	}
}

func TestSetRejectsOutOfRange(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, WithLogger(quietLogger()))
	_ = s.Set(4)

	for _, d := range []int{-1, 10, 255} {
		err := s.Set(d)
		if !errors.Is(err, ErrOutOfRange) || !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Set(%d) error = %v, want ErrOutOfRange", d, err)
		}
	}
	if s.Get() != 4 {
		t.Errorf("Get() = %d after rejected sets, want 4", s.Get())
	}
	if len(drv.patterns) != 2 {
		t.Errorf("driven %d times, want 2", len(drv.patterns))
	}
}

func TestSetIdempotentValueStillDrives(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, WithLogger(quietLogger()))
	_ = s.Set(0)
	_ = s.Set(0)
	if len(drv.patterns) != 3 {
		t.Errorf("driven %d times, want 3", len(drv.patterns))
	}
}

func TestObserverSeesFaults(t *testing.T) {
	sim, pool := newPool(t)
	var changes []Change
	s := New(pool, WithLogger(quietLogger()), WithObserver(func(c Change) {
		changes = append(changes, c)
	}))

	sim.FailOn(gpio.OpSet, "g", errors.New("stuck"))
	if err := s.Set(8); err != nil {
		t.Fatalf("Set(8) error = %v, want nil despite line fault", err)
	}
	if s.Get() != 8 {
		t.Errorf("Get() = %d, want 8", s.Get())
	}
	if len(changes) != 1 {
		t.Fatalf("observer called %d times, want 1", len(changes))
	}
	c := changes[0]
	if c.Previous != 0 || c.Digit != 8 || len(c.Faults) != 1 || c.Faults[0].Name != "g" {
		t.Errorf("change = %+v", c)
	}
}

func TestConcurrentSetKeepsLinesConsistent(t *testing.T) {
	sim, pool := newPool(t)
	s := New(pool, WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.Set((w + i) % 10)
			}
		}(w)
	}
	wg.Wait()

	final := s.Get()
	if got, want := shown(sim), segment.Encode(segment.Digit(final)); got != want {
		t.Errorf("lines show %s, stored digit %d encodes to %s", got, final, want)
	}
}

func TestObserversSeeCommitOrder(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []int

	s := New(&recordingDriver{}, WithLogger(quietLogger()), WithObserver(func(c Change) {
		if c.Digit == 1 {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, int(c.Digit))
		mu.Unlock()
	}))

	first := make(chan struct{})
	go func() {
		_ = s.Set(1)
		close(first)
	}()
	<-entered

	second := make(chan struct{})
	go func() {
		_ = s.Set(2)
		close(second)
	}()

	// The second Set commits while the first notification is still running,
	// and Get is not held up by it.
	deadline := time.Now().Add(time.Second)
	for s.Get() != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Get() = %d, want 2 while the first observer is blocked", s.Get())
		}
		time.Sleep(time.Millisecond)
	}
	select {
	case <-second:
		t.Fatal("Set(2) returned before the observer of Set(1) finished")
	default:
	}

	close(release)
	<-first
	<-second

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("observed %v, want [1 2]", seen)
	}
	if s.Get() != 2 {
		t.Errorf("Get() = %d, want 2", s.Get())
	}
}

// applyingDriver sets its lines one at a time and records every pattern
// once all of its lines are set.
type applyingDriver struct {
	mu      sync.Mutex
	applied []segment.Pattern
}

func (d *applyingDriver) Drive(p segment.Pattern) []gpio.LineFault {
	for i := 0; i < segment.Segments; i++ {
		runtime.Gosched()
	}
	d.mu.Lock()
	d.applied = append(d.applied, p)
	d.mu.Unlock()
	return nil
}

func (d *applyingDriver) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.applied)
}

// since returns the patterns applied from index from on.
func (d *applyingDriver) since(from int) []segment.Pattern {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]segment.Pattern(nil), d.applied[from:]...)
}

func TestGetDuringSetSeesAppliedDigit(t *testing.T) {
	drv := &applyingDriver{}
	s := New(drv, WithLogger(quietLogger()))

	stop := make(chan struct{})
	var writers sync.WaitGroup
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < 300; i++ {
				_ = s.Set((w*3 + i) % 10)
			}
		}(w)
	}

	errs := make(chan string, 8)
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// The drive that was latest while Get held the lock completed
				// at index before-1 or later.
				before := drv.count()
				d := s.Get()
				want := segment.Encode(segment.Digit(d))
				found := false
				for _, p := range drv.since(before - 1) {
					if p == want {
						found = true
						break
					}
				}
				if !found {
					select {
					case errs <- "Get() returned a digit whose pattern was not applied":
					default:
					}
					return
				}
			}
		}()
	}

	writers.Wait()
	close(stop)
	readers.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
