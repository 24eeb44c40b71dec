// Package discovery tracks which (object, metric) entities exist for a data
// source.
//
// Entities are discovered incrementally: each poll may reveal new objects,
// and each new (object, metric) pair is reported exactly once. Entities are
// never retracted when an object disappears from a later poll.
package discovery

import (
	"sync"

	"github.com/jpalmerr/hapulse/internal/metric"
	"github.com/jpalmerr/hapulse/internal/stats"
)

// ID identifies one discovered entity.
type ID struct {
	// Scope is the owning data source's identifier.
	Scope string

	Key    stats.ObjectKey
	Metric string
}

// String returns the entity's unique id in "{scope}_{proxy}:{server}_{metric}" form.
func (id ID) String() string {
	return id.Scope + "_" + id.Key.String() + "_" + id.Metric
}

// Discover returns the ids present in snap that are not in known.
//
// Ids are ordered by snapshot key order, then descriptor order. Discover is
// pure: the caller adds the result to its known set after creating the
// corresponding representations.
func Discover(scope string, snap *stats.Snapshot, descriptors []metric.Descriptor, known map[ID]struct{}) []ID {
	var found []ID
	for _, key := range snap.Keys() {
		row, _ := snap.Row(key)
		for _, d := range descriptors {
			if !d.AppliesTo(key, row) {
				continue
			}
			id := ID{Scope: scope, Key: key, Metric: d.Key}
			if _, ok := known[id]; ok {
				continue
			}
			found = append(found, id)
		}
	}
	return found
}

// Registry holds the known entity set for one data source.
//
// The set only grows. Registry is safe for concurrent use: the polling
// goroutine writes while HTTP handlers and metric scrapes read.
type Registry struct {
	scope       string
	descriptors []metric.Descriptor

	mu    sync.RWMutex
	known map[ID]struct{}
	order []ID
}

// NewRegistry creates an empty [Registry] for scope using the given
// descriptor table.
func NewRegistry(scope string, descriptors []metric.Descriptor) *Registry {
	return &Registry{
		scope:       scope,
		descriptors: descriptors,
		known:       make(map[ID]struct{}),
	}
}

// Discover returns ids in snap not yet added to the registry.
// It does not modify the registry; see [Registry.Add].
func (r *Registry) Discover(snap *stats.Snapshot) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Discover(r.scope, snap, r.descriptors, r.known)
}

// Add marks ids as known. Ids already present are ignored.
func (r *Registry) Add(ids ...ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.known[id]; ok {
			continue
		}
		r.known[id] = struct{}{}
		r.order = append(r.order, id)
	}
}

// Known returns all known ids in the order they were added.
func (r *Registry) Known() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]ID, len(r.order))
	copy(cp, r.order)
	return cp
}

