package gpio

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/smazurov/sevenseg/internal/logging"
	"github.com/stianeikeland/go-rpio"
)

// maxBCM is the highest BCM pin number on the 40-pin header SoCs.
const maxBCM = 53

// RPIO allocates Raspberry Pi lines through go-rpio's memory mapped
// registers. Names are BCM numbers, optionally prefixed with "GPIO" or "BCM".
// The register mapping is opened with the first owned line and closed with
// the last.
type RPIO struct {
	mu     sync.Mutex
	owned  map[int]bool
	logger *slog.Logger

	open  func() error
	close func() error
	pin   func(n int) rpioPin
}

// rpioPin is the part of rpio.Pin used here.
type rpioPin interface {
	Output()
	Write(state rpio.State)
}

// NewRPIO returns an allocator backed by go-rpio.
func NewRPIO(logger *slog.Logger) *RPIO {
	if logger == nil {
		logger = logging.GetLogger("gpio")
	}
	return &RPIO{
		owned:  make(map[int]bool),
		logger: logger,
		open:   rpio.Open,
		close:  rpio.Close,
		pin:    func(n int) rpioPin { return rpio.Pin(n) },
	}
}

// Driver implements Allocator.
func (r *RPIO) Driver() string {
	return "rpio"
}

// Request implements Allocator.
func (r *RPIO) Request(name string) (Line, error) {
	n, err := parseBCM(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owned[n] {
		return nil, fmt.Errorf("%w: BCM %d", ErrBusy, n)
	}
	if len(r.owned) == 0 {
		if err := r.open(); err != nil {
			return nil, fmt.Errorf("%w: open gpio registers: %w", ErrUnavailable, err)
		}
		r.logger.Debug("GPIO registers mapped")
	}
	r.owned[n] = true

	return &rpioLine{owner: r, name: name, bcm: n, pin: r.pin(n)}, nil
}

func (r *RPIO) free(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.owned, n)
	if len(r.owned) > 0 {
		return nil
	}
	r.logger.Debug("GPIO registers unmapped")
	return r.close()
}

// parseBCM accepts "17", "GPIO17" and "BCM17".
func parseBCM(name string) (int, error) {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = strings.TrimPrefix(s, "GPIO")
	s = strings.TrimPrefix(s, "BCM")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > maxBCM {
		return 0, fmt.Errorf("%w: %q is not a BCM pin", ErrNotFound, name)
	}
	return n, nil
}

type rpioLine struct {
	owner    *RPIO
	name     string
	bcm      int
	pin      rpioPin
	mu       sync.Mutex
	released bool
}

func (l *rpioLine) Name() string {
	return l.name
}

func (l *rpioLine) Out(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	l.pin.Output()
	l.pin.Write(rpioState(level))
	return nil
}

// Set writes the level register; go-rpio writes cannot fail.
func (l *rpioLine) Set(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	l.pin.Write(rpioState(level))
	return nil
}

func (l *rpioLine) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true
	return l.owner.free(l.bcm)
}

func rpioState(level Level) rpio.State {
	if level {
		return rpio.High
	}
	return rpio.Low
}
