// Package search implements the active queue of search objects: one entry
// per searching party, carrying the aggregated attributes the matchmaker
// reads (spec §3 SearchObject, §5 "exclusively owned by the queue").
package search

import (
	"sort"

	"github.com/admiralorbiter/okqueue/internal/datacenter"
	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/player"
)

// Histogram is a small fixed-size (<=3 keys) frequency map, used for the
// platform and input-device aggregates (spec §9).
type Histogram[K comparable] map[K]int

// Object represents one party in the queue. Size is 1 in this design per
// spec §3, but the shape supports multi-party parties as a permitted
// extension (avg_skill_percentile/skill_disparity generalize cleanly).
type Object struct {
	ID                 uint64
	PlayerIDs          []player.ID
	AvgSkillPercentile float64
	SkillDisparity     float64 // 0 for size 1, per spec §9 (never special-cased)
	AvgLocation        geo.Location
	Platforms          Histogram[player.Platform]
	InputDevices       Histogram[player.InputDevice]
	AcceptablePlaylists map[playlist.Playlist]bool
	SearchStartTime    int64 // ticks
	AcceptableDCs      map[datacenter.ID]bool
}

// NewFromPlayers builds a size-N search object from its member players'
// current attributes. For the size-1 case this spec targets, skill
// disparity is exactly 0.
func NewFromPlayers(id uint64, members []*player.Player, acceptablePlaylists map[playlist.Playlist]bool, currentTime int64) *Object {
	locs := make([]geo.Location, len(members))
	platforms := Histogram[player.Platform]{}
	inputs := Histogram[player.InputDevice]{}
	var sumSkillPct float64
	minPct, maxPct := 1.0, 0.0

	for i, m := range members {
		locs[i] = m.Location
		platforms[m.Platform]++
		inputs[m.InputDevice]++
		sumSkillPct += m.SkillPercentile
		if m.SkillPercentile < minPct {
			minPct = m.SkillPercentile
		}
		if m.SkillPercentile > maxPct {
			maxPct = m.SkillPercentile
		}
	}

	ids := make([]player.ID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	disparity := 0.0
	if len(members) > 1 {
		disparity = maxPct - minPct
	}

	return &Object{
		ID:                  id,
		PlayerIDs:           ids,
		AvgSkillPercentile:  sumSkillPct / float64(len(members)),
		SkillDisparity:      disparity,
		AvgLocation:         geo.Midpoint(locs),
		Platforms:           platforms,
		InputDevices:        inputs,
		AcceptablePlaylists: acceptablePlaylists,
		SearchStartTime:     currentTime,
		AcceptableDCs:       map[datacenter.ID]bool{},
	}
}

// Wait returns the object's current wait time in ticks.
func (o *Object) Wait(currentTime int64) float64 {
	return float64(currentTime - o.SearchStartTime)
}

// Size returns the number of member players.
func (o *Object) Size() int {
	return len(o.PlayerIDs)
}

// Queue is the active, ordered store of search objects. Ownership is
// exclusive: an object leaves the queue the instant it's absorbed into a
// proposal (spec §5).
type Queue struct {
	objects map[uint64]*Object
	order   []uint64 // insertion order, for stable wait-time ties
	nextID  uint64
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{objects: make(map[uint64]*Object)}
}

// Add inserts a search object the caller has already constructed with a
// fresh ID from NextID.
func (q *Queue) Add(o *Object) {
	q.objects[o.ID] = o
	q.order = append(q.order, o.ID)
}

// NextID returns a fresh, monotonically increasing search object id.
func (q *Queue) NextID() uint64 {
	q.nextID++
	return q.nextID
}

// Remove removes a search object by id (on proposal absorption).
func (q *Queue) Remove(id uint64) {
	delete(q.objects, id)
	if len(q.order) > 2*(len(q.objects)+1) {
		q.compact()
	}
}

// compact drops stale ids from the insertion-order slice, keeping its
// growth bounded across a long run.
func (q *Queue) compact() {
	fresh := q.order[:0]
	for _, id := range q.order {
		if _, ok := q.objects[id]; ok {
			fresh = append(fresh, id)
		}
	}
	q.order = fresh
}

// Get returns the search object for id, or nil.
func (q *Queue) Get(id uint64) *Object {
	return q.objects[id]
}

// Len returns the number of queued search objects.
func (q *Queue) Len() int {
	return len(q.objects)
}

// OrderedByWaitDescending returns every still-queued search object sorted by
// wait time descending (oldest first), stable on ties by insertion order,
// per spec §4.E step 1 / §5 "ties broken by insertion order".
func (q *Queue) OrderedByWaitDescending(currentTime int64) []*Object {
	out := make([]*Object, 0, len(q.objects))
	for _, id := range q.order {
		if o, ok := q.objects[id]; ok {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Wait(currentTime) > out[j].Wait(currentTime)
	})
	return out
}
