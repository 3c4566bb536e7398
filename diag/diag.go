// Package diag provides a lightweight, in-process introspection registry
// for live channels — a point-in-time view of queue depths and closed
// state, with no transport of its own. A caller that wants this exposed
// over HTTP, as the teacher's own diag web app does for workflow state, can
// wire Registry.Snapshots into whatever handler it likes; shipping one here
// is out of scope for this module.
package diag

import (
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Snapshot is a point-in-time view of one channel's internal queues.
type Snapshot struct {
	Name           string `yaml:"name"`
	Capacity       int    `yaml:"capacity"`
	Len            int    `yaml:"len"`
	Closed         bool   `yaml:"closed"`
	BlockedReaders int    `yaml:"blocked_readers"`
	BlockedWriters int    `yaml:"blocked_writers"`
}

// Introspectable is implemented by anything that can report a Snapshot of
// itself. *corochan.Channel[T] satisfies this for any T.
type Introspectable interface {
	Snapshot() Snapshot
}

// Registry tracks a set of live, named Introspectables.
type Registry struct {
	mu    sync.Mutex
	items map[string]Introspectable
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Introspectable)}
}

// Register adds c under name, overwriting any previous entry with that
// name, and returns a function that removes it again.
func (r *Registry) Register(name string, c Introspectable) func() {
	r.mu.Lock()
	r.items[name] = c
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.items, name)
		r.mu.Unlock()
	}
}

// Snapshots returns a snapshot of every registered item, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Snapshot, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DumpYAML writes Snapshots() to w as YAML, for dropping into logs or a
// debug endpoint without pulling in a full diagnostics web app.
func (r *Registry) DumpYAML(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(r.Snapshots())
}
