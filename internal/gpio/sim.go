package gpio

import (
	"log/slog"
	"sync"

	"github.com/smazurov/sevenseg/internal/logging"
)

// OpKind names an operation recorded by Sim.
type OpKind string

// Sim operations.
const (
	OpRequest   OpKind = "request"
	OpConfigure OpKind = "configure"
	OpSet       OpKind = "set"
	OpRelease   OpKind = "release"
)

// Op is one journal entry of Sim.
type Op struct {
	Kind  OpKind
	Line  string
	Level Level
}

type faultKey struct {
	kind OpKind
	line string
}

// Sim is an in-memory Allocator for hosts without GPIO and for tests.
// Every successful operation is appended to a journal; failures can be
// injected per operation and line.
type Sim struct {
	mu      sync.Mutex
	owned   map[string]bool
	levels  map[string]Level
	journal []Op
	faults  map[faultKey]error
	logger  *slog.Logger
}

// NewSim returns an empty simulated allocator. Any name can be requested.
func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = logging.GetLogger("gpio")
	}
	return &Sim{
		owned:  make(map[string]bool),
		levels: make(map[string]Level),
		faults: make(map[faultKey]error),
		logger: logger,
	}
}

// Driver implements Allocator.
func (s *Sim) Driver() string {
	return "sim"
}

// FailOn makes the next and all later kind operations on line return err.
// A nil err clears the fault.
func (s *Sim) FailOn(kind OpKind, line string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, faultKey{kind, line})
		return
	}
	s.faults[faultKey{kind, line}] = err
}

// Request implements Allocator.
func (s *Sim) Request(name string) (Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.faults[faultKey{OpRequest, name}]; err != nil {
		return nil, err
	}
	if s.owned[name] {
		return nil, ErrBusy
	}
	s.owned[name] = true
	s.journal = append(s.journal, Op{Kind: OpRequest, Line: name})
	return &simLine{sim: s, name: name}, nil
}

// Journal returns a copy of the recorded operations.
func (s *Sim) Journal() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.journal...)
}

// Released returns the names of released lines in release order.
func (s *Sim) Released() []string {
	var names []string
	for _, op := range s.Journal() {
		if op.Kind == OpRelease {
			names = append(names, op.Line)
		}
	}
	return names
}

// Level returns the last level driven on name.
func (s *Sim) Level(name string) (Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.levels[name]
	return l, ok
}

// Owned reports whether name is currently owned.
func (s *Sim) Owned(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owned[name]
}

// OwnedCount returns the number of lines currently owned.
func (s *Sim) OwnedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owned)
}

type simLine struct {
	sim      *Sim
	name     string
	released bool
}

func (l *simLine) Name() string {
	return l.name
}

func (l *simLine) Out(level Level) error {
	return l.write(OpConfigure, level)
}

func (l *simLine) Set(level Level) error {
	return l.write(OpSet, level)
}

func (l *simLine) write(kind OpKind, level Level) error {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.released {
		return ErrReleased
	}
	if err := s.faults[faultKey{kind, l.name}]; err != nil {
		return err
	}
	s.levels[l.name] = level
	s.journal = append(s.journal, Op{Kind: kind, Line: l.name, Level: level})
	s.logger.Debug("Simulated line write", "line", l.name, "op", string(kind), "level", level.String())
	return nil
}

func (l *simLine) Release() error {
	s := l.sim
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.released {
		return nil
	}
	l.released = true
	delete(s.owned, l.name)
	s.journal = append(s.journal, Op{Kind: OpRelease, Line: l.name})
	if err := s.faults[faultKey{OpRelease, l.name}]; err != nil {
		return err
	}
	return nil
}
