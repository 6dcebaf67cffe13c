package simulation

import (
	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/stats"
)

// MetricSummary is the (avg, p50, p90, p99) quadruple the outbound
// projection reports for each rolling sample vector, per spec §4.H.
type MetricSummary struct {
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// StatsSnapshot mirrors the statistics aggregator's field names (spec §4.H),
// plus the get_skill_distribution-style raw skill histogram supplement.
type StatsSnapshot struct {
	StateCounts    map[string]int            `json:"state_counts"`
	ActiveMatches  int                        `json:"active_matches"`
	BlowoutRate    float64                    `json:"blowout_rate"`
	SearchTime     MetricSummary              `json:"search_time"`
	DeltaPing      MetricSummary              `json:"delta_ping"`
	SkillDisparity MetricSummary              `json:"skill_disparity"`
	BucketRollups  map[int]stats.BucketStats  `json:"bucket_rollups"`
	SkillHistogram []int                      `json:"skill_histogram"`
}

// Snapshot is the outbound projection spec §6 names:
// {current_time, tick_interval, total_players, stats, config}. The wire
// schema mirrors §3/§4.H field names; it carries no stability guarantee
// across config changes of the same name, only structural shape.
type Snapshot struct {
	CurrentTime  int64                      `json:"current_time"`
	TickInterval float64                    `json:"tick_interval"`
	TotalPlayers int                        `json:"total_players"`
	Stats        StatsSnapshot              `json:"stats"`
	Config       config.MatchmakingConfig   `json:"config"`
}

var stateNames = map[int]string{
	int(player.Offline):   "offline",
	int(player.InLobby):   "in_lobby",
	int(player.Searching): "searching",
	int(player.InMatch):   "in_match",
}

// Snapshot builds the outbound projection from the simulation's current
// state, suitable for JSON serialization to a UI/analysis collaborator.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	stateCounts := make(map[string]int, 4)
	for st := int(player.Offline); st <= int(player.InMatch); st++ {
		stateCounts[stateNames[st]] = s.stats.StateCounts()[st]
	}

	searchAvg, searchP50, searchP90, searchP99 := s.stats.SearchTimeStats()
	pingAvg, pingP50, pingP90, pingP99 := s.stats.DeltaPingStats()
	dispAvg, dispP50, dispP90, dispP99 := s.stats.SkillDisparityStats()

	skills := make([]float64, 0, len(s.players))
	for _, p := range s.players {
		skills = append(skills, p.Skill)
	}

	return Snapshot{
		CurrentTime:  s.currentTime,
		TickInterval: s.cfg.TickIntervalSec,
		TotalPlayers: len(s.players),
		Config:       s.cfg,
		Stats: StatsSnapshot{
			StateCounts:    stateCounts,
			ActiveMatches:  s.stats.ActiveMatches(),
			BlowoutRate:    s.stats.BlowoutRate(),
			SearchTime:     MetricSummary{Avg: searchAvg, P50: searchP50, P90: searchP90, P99: searchP99},
			DeltaPing:      MetricSummary{Avg: pingAvg, P50: pingP50, P90: pingP90, P99: pingP99},
			SkillDisparity: MetricSummary{Avg: dispAvg, P50: dispP50, P90: dispP90, P99: dispP99},
			BucketRollups:  s.stats.BucketRollups(),
			SkillHistogram: stats.SkillHistogram(skills, 20),
		},
	}
}
