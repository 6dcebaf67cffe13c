// Package match implements the active match store and outcome
// determination (spec §3 Match, §4.G "Outcome determination").
package match

import (
	"math"
	"sort"

	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
)

// ID identifies a match.
type ID uint64

// Match is a committed matchmaking proposal: teams of players, the DC and
// playlist they were placed on, and the timing/quality metadata computed at
// creation time.
type Match struct {
	ID            ID
	Playlist      playlist.Playlist
	DataCenterID  uint64
	Teams         [][]player.ID
	TeamSkills    []float64 // avg raw skill per team, in [-1, 1]
	StartTime     int64     // ticks
	ExpectedDuration int64  // ticks
	QualityScore  float64
	SkillDisparity float64
	AvgDeltaPing  float64
}

// IsComplete reports whether the match has run its expected duration by
// currentTime.
func (m *Match) IsComplete(currentTime int64) bool {
	return currentTime >= m.StartTime+m.ExpectedDuration
}

// Outcome is the result of a completed match.
type Outcome struct {
	WinningTeam int
	IsBlowout   bool
}

// sigmoid is the logistic function σ(x) = 1/(1+e^-x).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

const logisticGamma = 2.0

// WinProbability returns team 0's win probability for a two-team match
// given delta = teamSkills[0] - teamSkills[1], per spec §4.G: σ(γ·δ).
func WinProbability(delta float64) float64 {
	return sigmoid(logisticGamma * delta)
}

// BlowoutProbability implements the bounded piecewise function of spec
// §4.G: inputs are |delta| (team skill gap) and imbalance = |p-0.5|*2
// (distance of the win probability from a coin flip, rescaled to [0,1]).
func BlowoutProbability(absDelta, imbalance float64) float64 {
	switch {
	case absDelta > 0.1:
		return clamp(0.1+0.4*math.Min((absDelta-0.1)/0.4, 1)+0.3*imbalance, 0, 0.9)
	case imbalance > 0.4:
		return 0.5 * imbalance
	case absDelta > 0.05:
		return 0.05 + 0.1*imbalance
	default:
		return 0.02
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DetermineOutcome resolves a match's outcome. For single-team (FreeForAll)
// matches it reports winning_team=0, is_blowout=false unconditionally, per
// spec §4.G. u1 selects the winner, u2 resolves the blowout Bernoulli draw;
// callers supply both from a tick-derived rng stream for determinism.
func DetermineOutcome(teamSkills []float64, u1, u2 float64) Outcome {
	if len(teamSkills) < 2 {
		return Outcome{WinningTeam: 0, IsBlowout: false}
	}

	delta := teamSkills[0] - teamSkills[1]
	p := WinProbability(delta)
	imbalance := math.Abs(p-0.5) * 2

	winner := 0
	if u1 >= p {
		winner = 1
	}

	blowoutP := BlowoutProbability(math.Abs(delta), imbalance)
	isBlowout := u2 < blowoutP

	return Outcome{WinningTeam: winner, IsBlowout: isBlowout}
}

// Store holds active matches.
type Store struct {
	matches map[ID]*Match
	nextID  uint64
}

// NewStore returns an empty match store.
func NewStore() *Store {
	return &Store{matches: make(map[ID]*Match)}
}

// NextID returns a fresh match id.
func (s *Store) NextID() ID {
	s.nextID++
	return ID(s.nextID)
}

// Add inserts a newly-created match.
func (s *Store) Add(m *Match) {
	s.matches[m.ID] = m
}

// Get returns the match for id, or nil.
func (s *Store) Get(id ID) *Match {
	return s.matches[id]
}

// Remove deletes a completed match.
func (s *Store) Remove(id ID) {
	delete(s.matches, id)
}

// Len returns the number of active matches.
func (s *Store) Len() int {
	return len(s.matches)
}

// Completed returns every match whose duration has elapsed by currentTime,
// ordered by id so callers that consume a deterministic rng stream per
// match (outcome, blowout, retention draws) see a stable order.
func (s *Store) Completed(currentTime int64) []*Match {
	out := make([]*Match, 0)
	for _, m := range s.matches {
		if m.IsComplete(currentTime) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every active match, ordered by id.
func (s *Store) All() []*Match {
	out := make([]*Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
