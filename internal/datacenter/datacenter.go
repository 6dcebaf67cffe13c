// Package datacenter implements the data-center registry: identity plus
// per-playlist server capacity accounting, the only contended resource in
// the simulation (spec §3, §5).
package datacenter

import (
	"fmt"
	"sync"

	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/playlist"
)

// ID identifies a data center.
type ID uint64

// DataCenter is one matchmaking region: identity plus capacity accounting
// per playlist.
type DataCenter struct {
	ID       ID
	Name     string
	Location geo.Location
	Region   string

	capacity map[playlist.Playlist]int
	busy     map[playlist.Playlist]int
}

// New constructs a DataCenter with default capacities (spec §3): GroundWar
// 50, everything else 200, unless overridden in capacities.
func New(id ID, name string, loc geo.Location, region string, capacities map[playlist.Playlist]int) *DataCenter {
	capacity := make(map[playlist.Playlist]int, len(playlist.All()))
	for _, p := range playlist.All() {
		capacity[p] = p.DefaultServerCapacity()
	}
	for p, c := range capacities {
		capacity[p] = c
	}
	return &DataCenter{
		ID:       id,
		Name:     name,
		Location: loc,
		Region:   region,
		capacity: capacity,
		busy:     make(map[playlist.Playlist]int, len(playlist.All())),
	}
}

// Capacity returns the configured server count for p.
func (d *DataCenter) Capacity(p playlist.Playlist) int {
	return d.capacity[p]
}

// Busy returns the currently-debited server count for p.
func (d *DataCenter) Busy(p playlist.Playlist) int {
	return d.busy[p]
}

// Available returns the number of free servers for p.
func (d *DataCenter) Available(p playlist.Playlist) int {
	return d.capacity[p] - d.busy[p]
}

// HasCapacity reports whether at least one server for p is free.
func (d *DataCenter) HasCapacity(p playlist.Playlist) bool {
	return d.Available(p) > 0
}

// Debit reserves one server for p. Returns an error if none is available;
// the matchmaker is expected to have already checked HasCapacity, so this
// is a defensive guard against the invariant 0<=busy<=capacity.
func (d *DataCenter) Debit(p playlist.Playlist) error {
	if d.busy[p] >= d.capacity[p] {
		return fmt.Errorf("data center %d has no free %s servers", d.ID, p)
	}
	d.busy[p]++
	return nil
}

// Credit releases one server for p, on match completion.
func (d *DataCenter) Credit(p playlist.Playlist) {
	if d.busy[p] > 0 {
		d.busy[p]--
	}
}

// Registry holds every data center and serializes the debit/credit
// mutations the matchmaker and match-completer perform, per spec §5's
// "sole mutators" rule.
type Registry struct {
	mu  sync.Mutex
	dcs map[ID]*DataCenter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{dcs: make(map[ID]*DataCenter)}
}

// Register adds (or replaces) a data center.
func (r *Registry) Register(dc *DataCenter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dcs[dc.ID] = dc
}

// Get returns the data center for id, or nil if unknown.
func (r *Registry) Get(id ID) *DataCenter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dcs[id]
}

// All returns every registered data center in no particular order (map
// iteration order); callers needing determinism should sort by ID.
func (r *Registry) All() []*DataCenter {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*DataCenter, 0, len(r.dcs))
	for _, dc := range r.dcs {
		out = append(out, dc)
	}
	return out
}

// Len returns the number of registered data centers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dcs)
}

// Debit reserves a server for p at dc id, atomically relative to other
// registry mutations in the same tick (spec §4.E "capacity guarantee").
func (r *Registry) Debit(id ID, p playlist.Playlist) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dc, ok := r.dcs[id]
	if !ok {
		return fmt.Errorf("unknown data center %d", id)
	}
	return dc.Debit(p)
}

// Credit releases a server for p at dc id.
func (r *Registry) Credit(id ID, p playlist.Playlist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dc, ok := r.dcs[id]; ok {
		dc.Credit(p)
	}
}
