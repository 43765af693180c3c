package gpio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/sevenseg/internal/logging"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Periph allocates lines from the periph.io pin registry. Names are
// registry names such as "GPIO17" or board aliases such as "P1_11".
type Periph struct {
	mu     sync.Mutex
	owned  map[string]bool
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
	hostInit func() error
	lookup   func(name string) gpio.PinIO
}

// NewPeriph returns an allocator backed by periph.io. The host drivers are
// loaded on the first request.
func NewPeriph(logger *slog.Logger) *Periph {
	if logger == nil {
		logger = logging.GetLogger("gpio")
	}
	return &Periph{
		owned:  make(map[string]bool),
		logger: logger,
		hostInit: func() error {
			_, err := host.Init()
			return err
		},
		lookup: gpioreg.ByName,
	}
}

// Driver implements Allocator.
func (p *Periph) Driver() string {
	return "periph"
}

// Request implements Allocator.
func (p *Periph) Request(name string) (Line, error) {
	p.initOnce.Do(func() {
		if err := p.hostInit(); err != nil {
			p.initErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	if p.initErr != nil {
		return nil, p.initErr
	}

	pin := p.lookup(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owned[pin.Name()] {
		return nil, fmt.Errorf("%w: %q", ErrBusy, name)
	}
	p.owned[pin.Name()] = true

	p.logger.Debug("Requested periph pin", "line", name, "pin", pin.String())
	return &periphLine{owner: p, name: name, pin: pin}, nil
}

func (p *Periph) free(pinName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.owned, pinName)
}

type periphLine struct {
	owner    *Periph
	name     string
	pin      gpio.PinIO
	mu       sync.Mutex
	released bool
}

func (l *periphLine) Name() string {
	return l.name
}

func (l *periphLine) Out(level Level) error {
	return l.Set(level)
}

func (l *periphLine) Set(level Level) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return ErrReleased
	}
	return l.pin.Out(gpio.Level(level))
}

// Release halts the pin and leaves it driving its last level, the way a
// released kernel GPIO descriptor does.
func (l *periphLine) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return nil
	}
	l.released = true
	l.owner.free(l.pin.Name())
	return l.pin.Halt()
}
