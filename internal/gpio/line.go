// Package gpio owns the output lines that drive the display segments.
//
// An Allocator hands out exclusively owned Lines. Acquire turns a list of
// line names into a Pool, all or nothing: when any line cannot be requested
// or configured, the lines obtained so far are released in reverse order
// before the error is returned.
package gpio

import (
	"errors"
	"fmt"
)

// Level is the logical state of an output line.
type Level bool

// Line levels. Low is the inactive level of a common-cathode segment.
const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Line is one exclusively owned output.
type Line interface {
	// Name returns the identifier the line was requested with.
	Name() string
	// Out configures the line as an output driving l.
	Out(l Level) error
	// Set changes the output level. Hardware backends treat it as non-failing.
	Set(l Level) error
	// Release gives the line back to its allocator. Calling it twice is a no-op.
	Release() error
}

// Allocator hands out lines by name. A line stays owned until released and
// a second request for it fails with ErrBusy.
type Allocator interface {
	Request(name string) (Line, error)
	Driver() string
}

var (
	// ErrUnavailable marks every failure to obtain or configure a line.
	ErrUnavailable = errors.New("gpio line unavailable")
	// ErrNotFound is returned for names the allocator does not know.
	ErrNotFound = fmt.Errorf("%w: no such line", ErrUnavailable)
	// ErrBusy is returned for lines that are already owned.
	ErrBusy = fmt.Errorf("%w: line already owned", ErrUnavailable)
	// ErrReleased is returned when a released line is used.
	ErrReleased = errors.New("gpio line released")
)

// LineError describes the failure of one line during acquisition.
type LineError struct {
	Index int
	Name  string
	Op    string
	Err   error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("gpio: %s line %d (%s): %v", e.Op, e.Index, e.Name, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Is makes every acquisition failure match ErrUnavailable.
func (e *LineError) Is(target error) bool {
	return target == ErrUnavailable
}

// LineFault records a line that rejected a level change.
type LineFault struct {
	Index int
	Name  string
	Level Level
	Err   error
}

func (f LineFault) Error() string {
	return fmt.Sprintf("gpio: set line %d (%s) %s: %v", f.Index, f.Name, f.Level, f.Err)
}
