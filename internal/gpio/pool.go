package gpio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/smazurov/sevenseg/internal/logging"
	"github.com/smazurov/sevenseg/internal/segment"
)

// Pool is the fixed, ordered set of lines driving one display.
// Line i carries bit i of a segment.Pattern.
type Pool struct {
	mu     sync.Mutex
	lines  []Line
	names  []string
	logger *slog.Logger
}

// guard holds lines during acquisition and releases them unless committed.
type guard struct {
	lines     []Line
	committed bool
	logger    *slog.Logger
}

func (g *guard) commit() []Line {
	g.committed = true
	return g.lines
}

func (g *guard) rollback() {
	if g.committed {
		return
	}
	releaseAll(g.lines, g.logger)
	g.lines = nil
}

// Acquire requests one line per name, in order, each configured as an
// output at the inactive level. It returns a Pool owning all of them or an
// error matching ErrUnavailable, in which case nothing stays owned.
func Acquire(alloc Allocator, names []string, logger *slog.Logger) (*Pool, error) {
	if logger == nil {
		logger = logging.GetLogger("gpio")
	}
	if len(names) != segment.Segments {
		return nil, fmt.Errorf("%w: need %d lines, got %d", ErrUnavailable, segment.Segments, len(names))
	}

	g := &guard{logger: logger}
	defer g.rollback()

	for i, name := range names {
		line, err := alloc.Request(name)
		if err != nil {
			logger.Error("Failed to request line", "index", i, "line", name, "driver", alloc.Driver(), "error", err)
			return nil, &LineError{Index: i, Name: name, Op: "request", Err: err}
		}

		if err := line.Out(Low); err != nil {
			// A line that cannot be configured was never acquired.
			if relErr := line.Release(); relErr != nil {
				logger.Warn("Failed to release unconfigured line", "index", i, "line", name, "error", relErr)
			}
			logger.Error("Failed to configure line as output", "index", i, "line", name, "error", err)
			return nil, &LineError{Index: i, Name: name, Op: "configure", Err: err}
		}

		g.lines = append(g.lines, line)
		logger.Debug("Line acquired", "index", i, "line", name)
	}

	pool := &Pool{
		lines:  g.commit(),
		names:  append([]string(nil), names...),
		logger: logger,
	}
	logger.Info("Line pool acquired", "lines", len(pool.lines), "driver", alloc.Driver())
	return pool, nil
}

// Drive sets line i to bit i of p. It never fails as a whole: lines that
// reject the new level are logged and returned as faults, leaving the
// display partially updated.
func (p *Pool) Drive(pattern segment.Pattern) []LineFault {
	p.mu.Lock()
	defer p.mu.Unlock()

	var faults []LineFault
	for i, line := range p.lines {
		level := Level(pattern.Bit(i))
		if err := line.Set(level); err != nil {
			fault := LineFault{Index: i, Name: line.Name(), Level: level, Err: err}
			p.logger.Warn("Line drive failed", "index", i, "line", line.Name(), "level", level.String(), "error", err)
			faults = append(faults, fault)
		}
	}
	return faults
}

// Release returns every line to its allocator, highest index first.
// It is idempotent.
func (p *Pool) Release() {
	p.mu.Lock()
	lines := p.lines
	p.lines = nil
	p.mu.Unlock()

	if len(lines) == 0 {
		return
	}
	releaseAll(lines, p.logger)
	p.logger.Info("Line pool released", "lines", len(lines))
}

// Names returns the line names in index order.
func (p *Pool) Names() []string {
	return append([]string(nil), p.names...)
}

// Len returns the number of lines still owned.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lines)
}

func releaseAll(lines []Line, logger *slog.Logger) {
	for i := len(lines) - 1; i >= 0; i-- {
		if err := lines[i].Release(); err != nil {
			logger.Warn("Failed to release line", "index", i, "line", lines[i].Name(), "error", err)
		}
	}
}
