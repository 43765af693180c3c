// Package devnode is the userspace stand-in for character device
// registration and sysfs attribute publication. Nodes are grouped by class,
// carry a dynamically allocated major:minor pair and are reachable by name.
// Open handles are tracked by id so the HTTP layer can address them.
package devnode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/smazurov/sevenseg/internal/logging"
)

// Dynamic major range, searched from the top like alloc_chrdev_region.
const (
	MajorMax = 254
	MajorMin = 234
)

var (
	ErrNotFound = errors.New("devnode: not found")
	ErrExists   = errors.New("devnode: already exists")
	ErrNoMajor  = errors.New("devnode: no free major number")

	ErrTooManyHandles = errors.New("devnode: too many open handles")
)

// Handle is an open node.
type Handle interface {
	io.ReadWriteSeeker
	io.Closer
}

// OpenFunc opens a new handle on a node.
type OpenFunc func() Handle

// Attribute is a text file bound to a node.
type Attribute interface {
	Show() string
	Store(buf string) (int, error)
}

// Identity names a registered node.
type Identity struct {
	Class string `json:"class"`
	Name  string `json:"name"`
	Major int    `json:"major"`
	Minor int    `json:"minor"`
}

// Dev returns the "major:minor" form.
func (id Identity) Dev() string {
	return fmt.Sprintf("%d:%d", id.Major, id.Minor)
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s (%s)", id.Class, id.Name, id.Dev())
}

// Node is a snapshot of a registered node.
type Node struct {
	Identity
	Attributes  []string `json:"attributes"`
	OpenHandles int      `json:"open_handles"`
}

type node struct {
	id      Identity
	open    OpenFunc
	attrs   map[string]Attribute
	handles map[string]*openHandle
}

// Registry holds the registered nodes.
type Registry struct {
	mu         sync.RWMutex
	nodes      map[string]*node
	majors     map[int]string
	maxHandles int
	clock      clockwork.Clock
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxHandles caps the handles open per node. Values below 1 keep
// DefaultMaxHandles.
func WithMaxHandles(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxHandles = n
		}
	}
}

// WithClock sets the clock used for handle idle tracking.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = logging.GetLogger("devnode")
	}
	r := &Registry{
		nodes:      make(map[string]*node),
		majors:     make(map[int]string),
		maxHandles: DefaultMaxHandles,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register allocates an identity for name and makes it openable.
func (r *Registry) Register(class, name string, open OpenFunc) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[name]; ok {
		return Identity{}, fmt.Errorf("%w: node %q", ErrExists, name)
	}

	major := 0
	for m := MajorMax; m >= MajorMin; m-- {
		if _, used := r.majors[m]; !used {
			major = m
			break
		}
	}
	if major == 0 {
		return Identity{}, ErrNoMajor
	}

	id := Identity{Class: class, Name: name, Major: major, Minor: 0}
	r.majors[major] = name
	r.nodes[name] = &node{
		id:      id,
		open:    open,
		attrs:   make(map[string]Attribute),
		handles: make(map[string]*openHandle),
	}
	r.logger.Info("Node registered", "node", name, "class", class, "dev", id.Dev())
	return id, nil
}

// Unregister removes the node and closes its open handles. Unknown
// identities are ignored.
func (r *Registry) Unregister(id Identity) {
	r.mu.Lock()
	n, ok := r.nodes[id.Name]
	if !ok || n.id != id {
		r.mu.Unlock()
		return
	}
	delete(r.nodes, id.Name)
	delete(r.majors, id.Major)
	handles := n.handles
	r.mu.Unlock()

	for hid, h := range handles {
		if err := h.Close(); err != nil {
			r.logger.Debug("Handle already closed", "node", id.Name, "handle", hid, "error", err)
		}
	}
	r.logger.Info("Node unregistered", "node", id.Name, "dev", id.Dev(), "closed_handles", len(handles))
}

// PublishAttribute binds attr to a registered node under attrName.
func (r *Registry) PublishAttribute(id Identity, attrName string, attr Attribute) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id.Name]
	if !ok || n.id != id {
		return fmt.Errorf("%w: node %q", ErrNotFound, id.Name)
	}
	if _, ok := n.attrs[attrName]; ok {
		return fmt.Errorf("%w: attribute %q on %q", ErrExists, attrName, id.Name)
	}
	n.attrs[attrName] = attr
	r.logger.Debug("Attribute published", "node", id.Name, "attribute", attrName)
	return nil
}

// UnpublishAttribute removes an attribute. It is idempotent.
func (r *Registry) UnpublishAttribute(id Identity, attrName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[id.Name]
	if !ok || n.id != id {
		return
	}
	if _, ok := n.attrs[attrName]; ok {
		delete(n.attrs, attrName)
		r.logger.Debug("Attribute unpublished", "node", id.Name, "attribute", attrName)
	}
}

// Attribute returns a published attribute. class must match the node's class.
func (r *Registry) Attribute(class, name, attrName string) (Attribute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[name]
	if !ok || n.id.Class != class {
		return nil, fmt.Errorf("%w: node %s/%s", ErrNotFound, class, name)
	}
	attr, ok := n.attrs[attrName]
	if !ok {
		return nil, fmt.Errorf("%w: attribute %q on %s/%s", ErrNotFound, attrName, class, name)
	}
	return attr, nil
}

// Lookup returns the identity registered under name.
func (r *Registry) Lookup(name string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	if !ok {
		return Identity{}, false
	}
	return n.id, true
}

// Nodes returns all registered nodes sorted by name.
func (r *Registry) Nodes() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		attrs := make([]string, 0, len(n.attrs))
		for a := range n.attrs {
			attrs = append(attrs, a)
		}
		sort.Strings(attrs)
		nodes = append(nodes, Node{Identity: n.id, Attributes: attrs, OpenHandles: len(n.handles)})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes
}
