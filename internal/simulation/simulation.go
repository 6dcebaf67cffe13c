// Package simulation wires the eight spec components into the tick-driven
// driver described in spec §2 and §4.G: arrivals, search starts,
// matchmaking, match creation, match completions, stats, clock advance. It
// also owns the inbound/outbound boundaries of spec §6 (ingest_players,
// register_data_center, tick/run/set_arrival_rate/update_config, the
// snapshot projection) and the experiment-sweep helper §SPEC_FULL names.
//
// Grounded on original_source/src/simulation.rs's Simulation::tick and the
// teacher's internal/services/data_fetcher.go for the cron-driven Scheduler
// in scheduler.go.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/datacenter"
	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/match"
	"github.com/admiralorbiter/okqueue/internal/matchmaker"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/rng"
	"github.com/admiralorbiter/okqueue/internal/search"
	"github.com/admiralorbiter/okqueue/internal/stats"
)

// ErrEmptyDataCenterSet is the fatal condition spec §7 names for ingesting
// players before any data center is registered.
var ErrEmptyDataCenterSet = errors.New("data center set is empty at ingest time")

// PlayerInput is the shape ingest_players accepts per spec §6, prior to
// internal state construction.
type PlayerInput struct {
	ID                 player.ID
	Location           geo.Location
	Platform           player.Platform
	InputDevice        player.InputDevice
	Skill              float64
	DCPings            map[uint64]float64
	PreferredPlaylists []playlist.Playlist
}

// DataCenterInput is the shape register_data_center accepts per spec §6.
type DataCenterInput struct {
	ID         datacenter.ID
	Name       string
	Location   geo.Location
	Region     string
	Capacities map[playlist.Playlist]int
}

// Simulation is the single self-contained value spec §6 describes as
// "persisted state": players, DCs, queue, matches, stats, config, seed,
// current_time, next-ids, and λ all live here or behind it.
type Simulation struct {
	mu sync.Mutex

	cfg        config.MatchmakingConfig
	pendingCfg *config.MatchmakingConfig

	seed          uint64
	currentTime   int64
	arrivalLambda float64

	players  map[player.ID]*player.Player
	queue    *search.Queue
	registry *datacenter.Registry
	matches  *match.Store
	stats    *stats.Aggregator
	mm       *matchmaker.Matchmaker

	// lastTickTeamSkills holds the TeamSkills of every match completed on
	// the most recent Tick, for the archive sink's per-tick fairness export.
	// lastTickTeamSkills[i] is the per-team average-skill vector of the
	// i-th match completed on the most recent Tick, for the archive sink's
	// per-tick fairness export.
	lastTickTeamSkills [][]float64
}

// New constructs a Simulation bound to seed and the initial config. It
// fails fast on the fatal conditions spec §7 names that are checkable
// without a population: non-finite/negative config fields and
// required_players not a multiple of team_count for any playlist.
func New(seed uint64, cfg config.MatchmakingConfig) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, pl := range playlist.All() {
		if err := pl.ValidateTopology(); err != nil {
			return nil, err
		}
	}

	return &Simulation{
		cfg:           cfg,
		seed:          seed,
		arrivalLambda: cfg.ArrivalRateLambda,
		players:       make(map[player.ID]*player.Player),
		queue:         search.NewQueue(),
		registry:      datacenter.NewRegistry(),
		matches:       match.NewStore(),
		stats:         stats.New(),
		mm:            matchmaker.New(cfg),
	}, nil
}

// IngestPlayers is the inbound boundary from the population generator
// collaborator (spec §6): it establishes initial (Offline) state for each
// player and triggers percentile/bucket recomputation across the full
// resulting population.
func (s *Simulation) IngestPlayers(inputs []PlayerInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry.Len() == 0 {
		return ErrEmptyDataCenterSet
	}

	for _, in := range inputs {
		s.players[in.ID] = player.New(in.ID, in.Location, in.Platform, in.InputDevice, in.Skill, in.DCPings, in.PreferredPlaylists)
	}
	s.recomputePercentiles()
	return nil
}

// RegisterDataCenter is the inbound boundary from the DC registry
// initializer collaborator (spec §6).
func (s *Simulation) RegisterDataCenter(in DataCenterInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Register(datacenter.New(in.ID, in.Name, in.Location, in.Region, in.Capacities))
}

// SetArrivalRate implements the set_arrival_rate(λ) control surface method.
// It takes effect on the very next Tick, since ticks are synchronous and
// single-threaded (spec §5).
func (s *Simulation) SetArrivalRate(lambda float64) error {
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) || lambda < 0 {
		return fmt.Errorf("arrival rate must be a finite, non-negative number")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arrivalLambda = lambda
	return nil
}

// UpdateConfig implements update_config(cfg): it validates eagerly but the
// new config only takes effect at the start of the next Tick, per spec §6.
func (s *Simulation) UpdateConfig(cfg config.MatchmakingConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingCfg = &cfg
	return nil
}

// TickIntervalSeconds returns the current config's tick_interval, used by
// the Scheduler to derive its cron cadence.
func (s *Simulation) TickIntervalSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.TickIntervalSec
}

// CurrentTime returns the simulation's current tick counter.
func (s *Simulation) CurrentTime() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTime
}

// LastTickTeamSkills returns the per-team average-skill vectors of every
// match completed on the most recent Tick, for the archive sink's per-tick
// fairness export (spec §SUPPLEMENTED FEATURES Match.TeamSkills exposure).
func (s *Simulation) LastTickTeamSkills() [][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]float64, len(s.lastTickTeamSkills))
	copy(out, s.lastTickTeamSkills)
	return out
}

// Tick advances the simulation exactly one step, in the order spec §4.G/§5
// require: arrivals, search starts, matchmaking, match creation, match
// completions, stats, clock.
func (s *Simulation) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickLocked()
}

// Run advances the simulation n steps.
func (s *Simulation) Run(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.tickLocked()
	}
}

func (s *Simulation) tickLocked() {
	if s.pendingCfg != nil {
		s.cfg = *s.pendingCfg
		s.mm.SetConfig(s.cfg)
		s.pendingCfg = nil
	}

	stream := rng.ForTick(s.seed, s.currentTime)
	s.lastTickTeamSkills = nil

	s.processArrivals(stream)
	s.processSearchStarts(stream)
	proposals := s.mm.RunTick(s.queue, s.lookupPlayer, s.registry, s.currentTime)
	s.createMatches(proposals, stream)
	s.processCompletions(stream)
	s.refreshStats()

	s.currentTime++
}

// processArrivals implements spec §4.G step 1: k ~ Poisson(λ), promote the
// first min(k, |Offline|) Offline players to InLobby. Selection order is
// Offline player id ascending — unspecified by spec but deterministic.
func (s *Simulation) processArrivals(stream rng.Stream) {
	k := stream.Poisson(s.arrivalLambda)
	offline := s.offlinePlayerIDsSorted()
	n := k
	if n > len(offline) {
		n = len(offline)
	}
	for i := 0; i < n; i++ {
		s.players[offline[i]].State = player.InLobby
	}
}

// processSearchStarts implements spec §4.G step 2: each InLobby player
// independently becomes Searching with probability search_start_prob.
func (s *Simulation) processSearchStarts(stream rng.Stream) {
	for _, pid := range s.sortedPlayerIDs() {
		p := s.players[pid]
		if p.State != player.InLobby {
			continue
		}
		u := stream.Float64()
		if u >= s.cfg.SearchStartProb {
			continue
		}
		p.StartSearching(s.currentTime)
		obj := search.NewFromPlayers(s.queue.NextID(), []*player.Player{p}, p.PreferredPlaylists, s.currentTime)
		s.queue.Add(obj)
	}
}

// createMatches implements spec §4.G step 4: assign a match id, compute
// expected_duration from the playlist's average duration jittered by
// U[0.8,1.2], transition every listed player to InMatch, and record the
// search-time/delta-ping samples into both the player's rolling windows
// (via Player.EnterMatch) and the global aggregator.
func (s *Simulation) createMatches(proposals []matchmaker.Proposal, stream rng.Stream) {
	for _, prop := range proposals {
		jitter := 0.8 + stream.Float64()*0.4
		base := prop.Playlist.AvgMatchDurationSeconds()
		expectedTicks := int64(math.Round(base * jitter / s.cfg.TickIntervalSec))

		m := &match.Match{
			ID:               match.ID(s.matches.NextID()),
			Playlist:         prop.Playlist,
			DataCenterID:     uint64(prop.DataCenterID),
			Teams:            prop.Teams,
			TeamSkills:       prop.TeamSkills,
			StartTime:        s.currentTime,
			ExpectedDuration: expectedTicks,
			QualityScore:     prop.QualityScore,
			SkillDisparity:   prop.SkillDisparity,
			AvgDeltaPing:     prop.AvgDeltaPing,
		}
		s.matches.Add(m)
		s.stats.RecordSkillDisparity(prop.SkillDisparity)

		for _, pid := range prop.PlayerIDs {
			p := s.players[pid]
			if p == nil {
				continue // referenced but not resident: silently dropped per spec §7
			}
			searchTicks := float64(s.currentTime - p.SearchStartTime)
			deltaPing := p.DeltaPing(uint64(prop.DataCenterID))
			p.EnterMatch(player.MatchID(m.ID), s.currentTime, deltaPing)
			s.stats.RecordSearchTime(searchTicks)
			s.stats.RecordDeltaPing(deltaPing)
		}
	}
}

// processCompletions implements spec §4.G step 5: credit DC capacity,
// determine outcome, push the blowout flag into each participant's window,
// and resolve the continue/leave retention draw per player.
func (s *Simulation) processCompletions(stream rng.Stream) {
	for _, m := range s.matches.Completed(s.currentTime) {
		s.registry.Credit(datacenter.ID(m.DataCenterID), m.Playlist)
		s.lastTickTeamSkills = append(s.lastTickTeamSkills, m.TeamSkills)

		u1 := stream.Float64()
		u2 := stream.Float64()
		outcome := match.DetermineOutcome(m.TeamSkills, u1, u2)

		for teamIdx, roster := range m.Teams {
			won := teamIdx == outcome.WinningTeam
			for _, pid := range roster {
				p := s.players[pid]
				if p == nil {
					continue
				}
				u := stream.Float64()
				p.CompleteMatch(outcome.IsBlowout, s.cfg.ContinuationBase, s.cfg.TickIntervalSec, u)
				s.stats.RecordMatchCompletion(outcome.IsBlowout, p.SkillBucket, won, p.RecentSearchTimes.Avg(), p.RecentDeltaPings.Avg())
			}
		}
		s.matches.Remove(m.ID)
	}
}

// refreshStats implements spec §4.H's per-tick counters: state counts,
// active matches, and per-skill-bucket population.
func (s *Simulation) refreshStats() {
	stateCounts := make(map[int]int, 4)
	bucketPop := make(map[int]int, s.cfg.NumSkillBuckets)
	skills := make([]float64, 0, len(s.players))

	for _, p := range s.players {
		stateCounts[int(p.State)]++
		bucketPop[p.SkillBucket]++
		skills = append(skills, p.Skill)
	}

	for st := int(player.Offline); st <= int(player.InMatch); st++ {
		s.stats.SetStateCount(st, stateCounts[st])
	}
	for b := 1; b <= s.cfg.NumSkillBuckets; b++ {
		s.stats.SetBucketPopulation(b, bucketPop[b])
	}
	s.stats.SetActiveMatches(s.matches.Len())
}

// recomputePercentiles assigns skill_percentile and skill_bucket to every
// resident player by rank over the full population, per spec §3's
// invariant. Ties are broken by player id ascending for determinism.
func (s *Simulation) recomputePercentiles() {
	ids := s.sortedPlayerIDs()
	sort.SliceStable(ids, func(i, j int) bool {
		return s.players[ids[i]].Skill < s.players[ids[j]].Skill
	})

	n := len(ids)
	for rank, id := range ids {
		pct := 0.5
		if n > 1 {
			pct = float64(rank) / float64(n-1)
		}
		p := s.players[id]
		p.SkillPercentile = pct
		p.UpdateSkillBucket(s.cfg.NumSkillBuckets)
	}
}

// AnyDataCenterFull reports whether any registered data center has zero
// available servers for any playlist, for the ops-alerting collaborator.
func (s *Simulation) AnyDataCenterFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, dc := range s.registry.All() {
		for _, pl := range playlist.All() {
			if dc.Capacity(pl) > 0 && !dc.HasCapacity(pl) {
				return true
			}
		}
	}
	return false
}

func (s *Simulation) lookupPlayer(id player.ID) (*player.Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s *Simulation) sortedPlayerIDs() []player.ID {
	ids := make([]player.ID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Simulation) offlinePlayerIDsSorted() []player.ID {
	var ids []player.ID
	for id, p := range s.players {
		if p.State == player.Offline {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
