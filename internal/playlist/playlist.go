// Package playlist enumerates the matchmaking playlists and their fixed
// topology constants, per spec §3.
package playlist

import "fmt"

// Playlist identifies a matchmaking mode. Ordinal order matters: it is the
// tie-break the matchmaker uses when two playlists have equal candidate
// population (spec §4.E step 2b).
type Playlist int

const (
	TeamDeathmatch Playlist = iota
	SearchAndDestroy
	Domination
	FreeForAll
	GroundWar
)

var allPlaylists = []Playlist{
	TeamDeathmatch,
	SearchAndDestroy,
	Domination,
	FreeForAll,
	GroundWar,
}

// All returns every playlist in ordinal order.
func All() []Playlist {
	out := make([]Playlist, len(allPlaylists))
	copy(out, allPlaylists)
	return out
}

func (p Playlist) String() string {
	switch p {
	case TeamDeathmatch:
		return "TeamDeathmatch"
	case SearchAndDestroy:
		return "SearchAndDestroy"
	case Domination:
		return "Domination"
	case FreeForAll:
		return "FreeForAll"
	case GroundWar:
		return "GroundWar"
	default:
		return fmt.Sprintf("Playlist(%d)", int(p))
	}
}

// RequiredPlayers is the full match size for this playlist.
func (p Playlist) RequiredPlayers() int {
	if p == GroundWar {
		return 64
	}
	return 12
}

// TeamCount is the number of teams a full match splits into. FreeForAll
// treats every player as a singleton team.
func (p Playlist) TeamCount() int {
	if p == FreeForAll {
		return 12
	}
	return 2
}

// AvgMatchDurationSeconds is the mean real-time duration a match of this
// playlist runs for, before the per-match U[0.8,1.2] jitter is applied.
func (p Playlist) AvgMatchDurationSeconds() float64 {
	switch p {
	case SearchAndDestroy:
		return 900
	case GroundWar:
		return 1200
	default:
		return 600
	}
}

// DefaultServerCapacity is the default per-DC server count for this
// playlist (spec §3): GroundWar=50, everything else 200.
func (p Playlist) DefaultServerCapacity() int {
	if p == GroundWar {
		return 50
	}
	return 200
}

// ValidateTopology reports the fatal topology condition spec §7 names:
// required_players not a multiple of team_count for non-FFA playlists.
func (p Playlist) ValidateTopology() error {
	if p == FreeForAll {
		return nil
	}
	if p.RequiredPlayers()%p.TeamCount() != 0 {
		return fmt.Errorf("playlist %s: required_players (%d) not a multiple of team_count (%d)", p, p.RequiredPlayers(), p.TeamCount())
	}
	return nil
}
