// Package display holds the digit currently shown and keeps the segment
// lines in step with it.
package display

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/sevenseg/internal/gpio"
	"github.com/smazurov/sevenseg/internal/logging"
	"github.com/smazurov/sevenseg/internal/segment"
)

var (
	// ErrInvalidInput is returned for values the display cannot show.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfRange is returned by Set for digits outside 0..9.
	ErrOutOfRange = fmt.Errorf("%w: digit out of range", ErrInvalidInput)
)

// Driver pushes a pattern onto the segment lines. *gpio.Pool implements it.
type Driver interface {
	Drive(p segment.Pattern) []gpio.LineFault
}

// Change describes one accepted Set.
type Change struct {
	Previous segment.Digit
	Digit    segment.Digit
	Pattern  segment.Pattern
	Faults   []gpio.LineFault
}

// Option configures a State.
type Option func(*State)

// WithObserver registers fn to be called after every accepted Set,
// outside the state lock. Observers see changes in the order they were
// applied and must not call Set.
func WithObserver(fn func(Change)) Option {
	return func(s *State) {
		s.observers = append(s.observers, fn)
	}
}

// WithLogger sets the logger used for drive faults.
func WithLogger(logger *slog.Logger) Option {
	return func(s *State) {
		s.logger = logger
	}
}

// State is the single source of truth for the displayed digit. Storing a
// digit and driving the lines happen under one lock, so concurrent writers
// never leave the lines showing a digit other than the stored one.
type State struct {
	driver    Driver
	observers []func(Change)
	logger    *slog.Logger

	mu        sync.Mutex
	digit     segment.Digit
	committed uint64 // accepted Sets, guarded by mu

	// Observers run in commit order: a Set waits until every earlier
	// ticket has been notified.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	notified   uint64
}

// New creates a State showing 0 and drives the lines to match.
func New(driver Driver, opts ...Option) *State {
	s := &State{driver: driver}
	s.notifyCond = sync.NewCond(&s.notifyMu)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetLogger("display")
	}

	if faults := driver.Drive(segment.Encode(0)); len(faults) > 0 {
		s.logger.Warn("Initial drive incomplete", "faults", len(faults))
	}
	return s
}

// Get returns the stored digit.
func (s *State) Get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.digit)
}

// Set stores d and drives its pattern. Values outside 0..9 are rejected
// with ErrOutOfRange and leave both the digit and the lines untouched.
// Line faults are logged and reported to observers, never returned.
func (s *State) Set(d int) error {
	digit := segment.Digit(d)
	if !digit.Valid() {
		return fmt.Errorf("%w: %d", ErrOutOfRange, d)
	}

	pattern := segment.Encode(digit)

	s.mu.Lock()
	prev := s.digit
	s.digit = digit
	faults := s.driver.Drive(pattern)
	ticket := s.committed
	s.committed++
	s.mu.Unlock()

	if len(faults) > 0 {
		s.logger.Warn("Display partially updated", "digit", d, "faults", len(faults))
	}
	s.logger.Debug("Digit set", "previous", int(prev), "digit", d, "pattern", pattern.String())

	s.notify(ticket, Change{Previous: prev, Digit: digit, Pattern: pattern, Faults: faults})
	return nil
}

func (s *State) notify(ticket uint64, change Change) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for s.notified != ticket {
		s.notifyCond.Wait()
	}
	defer func() {
		s.notified++
		s.notifyCond.Broadcast()
	}()
	for _, fn := range s.observers {
		fn(change)
	}
}
