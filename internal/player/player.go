// Package player implements the player data model, the offline→lobby→
// searching→in-match state machine, and the retention feedback that closes
// the loop between match quality and future participation (spec §3, §4.G).
package player

import (
	"math"

	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/playlist"
)

// Platform is a player's hardware platform.
type Platform int

const (
	PlatformPC Platform = iota
	PlatformPlayStation
	PlatformXbox
)

// InputDevice is a player's control scheme.
type InputDevice int

const (
	InputController InputDevice = iota
	InputMouseKeyboard
)

// State is the player lifecycle state, exactly one of which holds at a time.
type State int

const (
	Offline State = iota
	InLobby
	Searching
	InMatch
)

// ID identifies a player.
type ID uint64

// MatchID identifies a match; 0 means "none" since match ids start at 1.
type MatchID uint64

// Player is a single participant. Location, Platform, InputDevice, and
// Skill are immutable for the player's lifetime; everything else is
// runtime/derived state mutated by the tick loop.
type Player struct {
	ID ID

	// immutable-per-lifetime
	Location    geo.Location
	Platform    Platform
	InputDevice InputDevice
	Skill       float64 // in [-1, 1]

	// derived
	SkillPercentile float64 // in [0, 1], set by percentile recomputation
	SkillBucket     int     // in [1, B]

	// network
	DCPings map[uint64]float64 // data-center id -> ping ms
	BestDC  uint64
	BestPing float64

	// runtime
	State           State
	CurrentMatch    MatchID
	SearchStartTime int64 // tick, valid iff State == Searching

	// preferences
	PreferredPlaylists map[playlist.Playlist]bool

	// rolling windows, bounded to 10 samples (spec §9)
	RecentDeltaPings  RollingWindow
	RecentSearchTimes RollingWindow
	RecentBlowouts    RollingWindow

	// retention
	ContinuationProb float64
}

// New constructs a player in the Offline state with windows initialized to
// the spec's bounded-10 FIFO size.
func New(id ID, loc geo.Location, platform Platform, input InputDevice, skill float64, dcPings map[uint64]float64, preferred []playlist.Playlist) *Player {
	prefs := make(map[playlist.Playlist]bool, len(preferred))
	for _, p := range preferred {
		prefs[p] = true
	}

	bestDC, bestPing := bestOf(dcPings)

	return &Player{
		ID:                 id,
		Location:           loc,
		Platform:           platform,
		InputDevice:        input,
		Skill:              skill,
		DCPings:            dcPings,
		BestDC:             bestDC,
		BestPing:           bestPing,
		State:              Offline,
		PreferredPlaylists: prefs,
		RecentDeltaPings:   NewRollingWindow(maxRollingWindowSize),
		RecentSearchTimes:  NewRollingWindow(maxRollingWindowSize),
		RecentBlowouts:     NewRollingWindow(maxRollingWindowSize),
		ContinuationProb:   0.85,
	}
}

func bestOf(dcPings map[uint64]float64) (uint64, float64) {
	best := math.Inf(1)
	var bestID uint64
	for id, ping := range dcPings {
		if ping < best {
			best = ping
			bestID = id
		}
	}
	if math.IsInf(best, 1) {
		return 0, 0
	}
	return bestID, best
}

// AcceptsPlaylist reports whether the player's preferences include p.
func (p *Player) AcceptsPlaylist(pl playlist.Playlist) bool {
	return p.PreferredPlaylists[pl]
}

// UpdateSkillBucket derives SkillBucket from SkillPercentile given a total
// bucket count B: clamp(floor(percentile*B), 1, B) per spec §3's invariant.
func (p *Player) UpdateSkillBucket(numBuckets int) {
	bucket := int(math.Floor(p.SkillPercentile * float64(numBuckets)))
	if bucket < 1 {
		bucket = 1
	}
	if bucket > numBuckets {
		bucket = numBuckets
	}
	p.SkillBucket = bucket
}

// DeltaPing returns the latency inflation incurred by matching onto dcID
// versus the player's best available DC.
func (p *Player) DeltaPing(dcID uint64) float64 {
	ping, ok := p.DCPings[dcID]
	if !ok {
		return math.Inf(1)
	}
	return ping - p.BestPing
}
