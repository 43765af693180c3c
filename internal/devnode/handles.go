package devnode

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHandles caps the handles open on one node at a time.
const DefaultMaxHandles = 64

// openHandle tracks when a handle was last looked up.
type openHandle struct {
	Handle
	lastUsed atomic.Int64 // unix nanoseconds
}

func (r *Registry) newHandle(h Handle) *openHandle {
	oh := &openHandle{Handle: h}
	oh.lastUsed.Store(r.clock.Now().UnixNano())
	return oh
}

// Open opens the named node and returns the new handle's id. It fails with
// ErrTooManyHandles once the node has the maximum number of handles open.
func (r *Registry) Open(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[name]
	if !ok {
		return "", fmt.Errorf("%w: node %q", ErrNotFound, name)
	}
	if len(n.handles) >= r.maxHandles {
		r.logger.Warn("Open refused, handle limit reached", "node", name, "limit", r.maxHandles)
		return "", fmt.Errorf("%w: %d open on %q", ErrTooManyHandles, len(n.handles), name)
	}
	hid := uuid.NewString()
	n.handles[hid] = r.newHandle(n.open())
	r.logger.Debug("Node opened", "node", name, "handle", hid)
	return hid, nil
}

// Handle returns an open handle of the named node and marks it as used.
func (r *Registry) Handle(name, hid string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: node %q", ErrNotFound, name)
	}
	oh, ok := n.handles[hid]
	if !ok {
		return nil, fmt.Errorf("%w: handle %q on %q", ErrNotFound, hid, name)
	}
	oh.lastUsed.Store(r.clock.Now().UnixNano())
	return oh.Handle, nil
}

// CloseHandle closes and forgets a handle.
func (r *Registry) CloseHandle(name, hid string) error {
	r.mu.Lock()
	n, ok := r.nodes[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: node %q", ErrNotFound, name)
	}
	oh, ok := n.handles[hid]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: handle %q on %q", ErrNotFound, hid, name)
	}
	delete(n.handles, hid)
	r.mu.Unlock()

	r.logger.Debug("Node released", "node", name, "handle", hid)
	return oh.Close()
}

// ExpireIdle closes every handle not looked up for longer than maxIdle and
// returns how many were closed.
func (r *Registry) ExpireIdle(maxIdle time.Duration) int {
	cutoff := r.clock.Now().Add(-maxIdle).UnixNano()

	type expired struct {
		node, hid string
		h         Handle
	}
	var stale []expired

	r.mu.Lock()
	for name, n := range r.nodes {
		for hid, oh := range n.handles {
			if oh.lastUsed.Load() < cutoff {
				delete(n.handles, hid)
				stale = append(stale, expired{node: name, hid: hid, h: oh.Handle})
			}
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		if err := e.h.Close(); err != nil {
			r.logger.Debug("Idle handle already closed", "node", e.node, "handle", e.hid, "error", err)
		}
		r.logger.Info("Closed idle handle", "node", e.node, "handle", e.hid, "max_idle", maxIdle)
	}
	return len(stale)
}

// RunReaper expires idle handles every interval until ctx is done.
func (r *Registry) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.ExpireIdle(maxIdle)
		}
	}
}
