// Package matchmaker implements the seed-and-fill grouping algorithm: the
// heart of the simulation (spec §4.E, ~35% of the system). Each tick it
// walks the search queue oldest-first, seeds a candidate grouping around
// each unconsumed search, scores candidates by a composite distance, and
// greedily fills toward a full match subject to skill and capacity
// constraints.
//
// Grounded on the teacher's internal/optimizer/algorithm.go (candidate
// generation + greedy/backtracking fill under a combined constraint set)
// generalized from roster-position slots to skill/geo/platform/input
// compatibility, and on positive-vibezz1-nakama/server/evr_matchmaker.go's
// composeMatches/sortByPriority shape for the oldest-wait seeding and
// no-player-twice guarantee.
package matchmaker

import (
	"math"
	"sort"

	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/datacenter"
	"github.com/admiralorbiter/okqueue/internal/match"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/search"
	"github.com/admiralorbiter/okqueue/internal/tolerance"
)

// Proposal is the matchmaker's output: a fully-gathered group ready to
// become a match, per spec §4.E's MatchProposal contract.
type Proposal struct {
	Playlist       playlist.Playlist
	DataCenterID   datacenter.ID
	Teams          [][]player.ID
	PlayerIDs      []player.ID
	TeamSkills     []float64
	QualityScore   float64
	SkillDisparity float64
	AvgDeltaPing   float64
}

// PlayerLookup resolves a player id to its current state. The matchmaker
// never owns player storage; it only reads it.
type PlayerLookup func(id player.ID) (*player.Player, bool)

// Matchmaker runs the seed-and-fill algorithm against a queue, player
// table, and data-center registry.
type Matchmaker struct {
	cfg config.MatchmakingConfig
}

// New returns a Matchmaker bound to the given config. Config is captured by
// value per tick by the caller (via update_config taking effect next tick).
func New(cfg config.MatchmakingConfig) *Matchmaker {
	return &Matchmaker{cfg: cfg}
}

// SetConfig replaces the bound config, taking effect on the next RunTick.
func (m *Matchmaker) SetConfig(cfg config.MatchmakingConfig) {
	m.cfg = cfg
}

// RunTick performs one tick of matchmaking: it mutates the queue (removing
// absorbed searches) and the registry (debiting committed DCs), returning
// the list of proposals for match creation to consume.
func (m *Matchmaker) RunTick(q *search.Queue, players PlayerLookup, registry *datacenter.Registry, currentTime int64) []Proposal {
	ordered := q.OrderedByWaitDescending(currentTime)
	consumed := make(map[uint64]bool, len(ordered))
	var proposals []Proposal

	for _, seed := range ordered {
		if consumed[seed.ID] {
			continue
		}

		m.refreshAcceptableDCs(seed, players, registry, currentTime)

		targetPlaylist, ok := m.chooseTargetPlaylist(seed, ordered, consumed)
		if !ok {
			continue
		}

		targetDC, ok := m.chooseTargetDC(seed, targetPlaylist, players, registry)
		if !ok {
			continue
		}

		disparityCap := tolerance.SkillDisparityCap(m.cfg, seed.Wait(currentTime))

		candidates := m.buildCandidates(seed, ordered, consumed, targetPlaylist, targetDC, players, registry, currentTime)

		filled, minPct, maxPct := m.greedyFill(seed, candidates, targetPlaylist.RequiredPlayers(), disparityCap)

		if sizeOf(filled) != targetPlaylist.RequiredPlayers() {
			continue // release: seed and all candidates stay queued
		}

		proposal := m.commit(filled, targetPlaylist, targetDC, minPct, maxPct, players, registry, currentTime)
		proposals = append(proposals, proposal)
		for _, obj := range filled {
			consumed[obj.ID] = true
		}
	}

	for id := range consumed {
		q.Remove(id)
	}

	return proposals
}

// refreshAcceptableDCs recomputes obj.AcceptableDCs per spec §4.E step 2a: a
// DC is acceptable to a member iff its ping <= best_ping + delta_ping_allowed
// and <= max_ping; the set is the intersection across members.
func (m *Matchmaker) refreshAcceptableDCs(obj *search.Object, players PlayerLookup, registry *datacenter.Registry, currentTime int64) {
	allowed := tolerance.DeltaPingAllowed(m.cfg, obj.Wait(currentTime))
	dcs := registry.All()

	acceptable := make(map[datacenter.ID]bool, len(dcs))
	for _, dc := range dcs {
		ok := true
		for _, pid := range obj.PlayerIDs {
			p, found := players(pid)
			if !found {
				ok = false
				break
			}
			ping, has := p.DCPings[uint64(dc.ID)]
			if !has || ping > p.BestPing+allowed || ping > m.cfg.MaxPingMS {
				ok = false
				break
			}
		}
		if ok {
			acceptable[dc.ID] = true
		}
	}
	obj.AcceptableDCs = acceptable
}

// chooseTargetPlaylist implements spec §4.E step 2b: the playlist in
// seed.AcceptablePlaylists with the largest population of compatible
// waiting searches, ties broken by lowest enum ordinal.
func (m *Matchmaker) chooseTargetPlaylist(seed *search.Object, ordered []*search.Object, consumed map[uint64]bool) (playlist.Playlist, bool) {
	var best playlist.Playlist
	bestCount := -1
	found := false

	for _, pl := range playlist.All() {
		if !seed.AcceptablePlaylists[pl] {
			continue
		}
		count := 0
		for _, o := range ordered {
			if consumed[o.ID] {
				continue
			}
			if o.AcceptablePlaylists[pl] {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = pl
			found = true
		}
	}
	return best, found
}

// chooseTargetDC implements spec §4.E step 2c: among seed.AcceptableDCs
// with >=1 available server for the playlist, pick the one minimizing
// average seed-member ping, ties broken by lowest dcID. Candidate DCs are
// scanned in sorted-id order (not map iteration order) so the choice is
// reproducible given (seed, config, initial population), matching every
// other map-derived ordering in this package.
func (m *Matchmaker) chooseTargetDC(seed *search.Object, pl playlist.Playlist, players PlayerLookup, registry *datacenter.Registry) (datacenter.ID, bool) {
	candidates := make([]datacenter.ID, 0, len(seed.AcceptableDCs))
	for dcID := range seed.AcceptableDCs {
		candidates = append(candidates, dcID)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	var best datacenter.ID
	bestAvgPing := math.Inf(1)
	found := false

	for _, dcID := range candidates {
		dc := registry.Get(dcID)
		if dc == nil || !dc.HasCapacity(pl) {
			continue
		}
		avg := avgMemberPing(seed, dcID, players)
		if avg < bestAvgPing {
			bestAvgPing = avg
			best = dcID
			found = true
		}
	}
	return best, found
}

func avgMemberPing(obj *search.Object, dcID datacenter.ID, players PlayerLookup) float64 {
	var sum float64
	n := 0
	for _, pid := range obj.PlayerIDs {
		p, ok := players(pid)
		if !ok {
			continue
		}
		ping, has := p.DCPings[uint64(dcID)]
		if !has {
			continue
		}
		sum += ping
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}

type scoredCandidate struct {
	obj *search.Object
	d   float64
}

// buildCandidates implements spec §4.E step 2e/2f: gathers every other
// unconsumed search compatible with the target playlist/DC/skill window,
// scores each by composite distance, and returns the top-K lowest-distance
// candidates in ascending order (step 2g's fill order).
func (m *Matchmaker) buildCandidates(seed *search.Object, ordered []*search.Object, consumed map[uint64]bool, pl playlist.Playlist, dcID datacenter.ID, players PlayerLookup, registry *datacenter.Registry, currentTime int64) []scoredCandidate {
	skillWindow := tolerance.SkillWindow(m.cfg, seed.Wait(currentTime))

	var candidates []scoredCandidate
	for _, c := range ordered {
		if c.ID == seed.ID || consumed[c.ID] {
			continue
		}
		if !c.AcceptablePlaylists[pl] {
			continue
		}

		m.refreshAcceptableDCs(c, players, registry, currentTime)
		if !c.AcceptableDCs[dcID] {
			continue
		}

		window := math.Max(skillWindow, tolerance.SkillWindow(m.cfg, c.Wait(currentTime)))
		if math.Abs(c.AvgSkillPercentile-seed.AvgSkillPercentile) > window {
			continue
		}

		d := m.compositeDistance(seed, c)
		candidates = append(candidates, scoredCandidate{obj: c, d: d})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].d < candidates[j].d })

	if len(candidates) > m.cfg.TopKCandidates {
		candidates = candidates[:m.cfg.TopKCandidates]
	}
	return candidates
}

// compositeDistance implements spec §4.E's D(S,C) formula.
func (m *Matchmaker) compositeDistance(s, c *search.Object) float64 {
	geoKM := s.AvgLocation.DistanceKM(c.AvgLocation)
	geoTerm := m.cfg.WeightGeo * geoKM / m.cfg.GeoNormKM
	skillTerm := m.cfg.WeightSkill * math.Abs(s.AvgSkillPercentile-c.AvgSkillPercentile)
	inputTerm := m.cfg.WeightInput * (1 - cosineSimilarityInput(s.InputDevices, c.InputDevices))
	platformTerm := m.cfg.WeightPlatform * (1 - cosineSimilarityPlatform(s.Platforms, c.Platforms))
	return geoTerm + skillTerm + inputTerm + platformTerm
}

func cosineSimilarityInput(a, b search.Histogram[player.InputDevice]) float64 {
	keys := []player.InputDevice{player.InputController, player.InputMouseKeyboard}
	var dot, na, nb float64
	for _, k := range keys {
		av, bv := float64(a[k]), float64(b[k])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	return cosineFromSums(dot, na, nb)
}

func cosineSimilarityPlatform(a, b search.Histogram[player.Platform]) float64 {
	keys := []player.Platform{player.PlatformPC, player.PlatformPlayStation, player.PlatformXbox}
	var dot, na, nb float64
	for _, k := range keys {
		av, bv := float64(a[k]), float64(b[k])
		dot += av * bv
		na += av * av
		nb += bv * bv
	}
	return cosineFromSums(dot, na, nb)
}

func cosineFromSums(dot, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// greedyFill implements spec §4.E step 2g: greedily fill in ascending-D
// order, skipping any candidate that would push the running skill disparity
// (max-min of member percentiles) above the cap or overflow the roster.
func (m *Matchmaker) greedyFill(seed *search.Object, candidates []scoredCandidate, required int, disparityCap float64) ([]*search.Object, float64, float64) {
	filled := []*search.Object{seed}
	size := seed.Size()
	minPct, maxPct := seed.AvgSkillPercentile, seed.AvgSkillPercentile

	for _, cand := range candidates {
		if size+cand.obj.Size() > required {
			continue
		}
		newMin, newMax := minPct, maxPct
		if cand.obj.AvgSkillPercentile < newMin {
			newMin = cand.obj.AvgSkillPercentile
		}
		if cand.obj.AvgSkillPercentile > newMax {
			newMax = cand.obj.AvgSkillPercentile
		}
		if newMax-newMin > disparityCap {
			continue
		}

		filled = append(filled, cand.obj)
		size += cand.obj.Size()
		minPct, maxPct = newMin, newMax

		if size == required {
			break
		}
	}
	return filled, minPct, maxPct
}

func sizeOf(objs []*search.Object) int {
	n := 0
	for _, o := range objs {
		n += o.Size()
	}
	return n
}

// commit implements spec §4.E step 2h: team assignment by snake draft,
// quality score, and the atomic capacity debit.
func (m *Matchmaker) commit(filled []*search.Object, pl playlist.Playlist, dcID datacenter.ID, minPct, maxPct float64, players PlayerLookup, registry *datacenter.Registry, currentTime int64) Proposal {
	var allIDs []player.ID
	for _, o := range filled {
		allIDs = append(allIDs, o.PlayerIDs...)
	}

	sort.SliceStable(allIDs, func(i, j int) bool {
		pi, _ := players(allIDs[i])
		pj, _ := players(allIDs[j])
		return pi.Skill > pj.Skill
	})

	teamCount := pl.TeamCount()
	teams := make([][]player.ID, teamCount)
	for i, pid := range allIDs {
		t := snakeIndex(i, teamCount)
		teams[t] = append(teams[t], pid)
	}

	// team_skills is the raw skill average (range [-1,1]), matching
	// original_source's create_matches: determine_outcome's sigmoid operates
	// on this raw scale, not the percentile scale.
	teamSkills := make([]float64, teamCount)
	for t, roster := range teams {
		var sum float64
		for _, pid := range roster {
			p, _ := players(pid)
			sum += p.Skill
		}
		if len(roster) > 0 {
			teamSkills[t] = sum / float64(len(roster))
		}
	}

	var sumDeltaPing float64
	for _, pid := range allIDs {
		p, _ := players(pid)
		sumDeltaPing += p.DeltaPing(uint64(dcID))
	}
	avgDeltaPing := sumDeltaPing / float64(len(allIDs))

	var sumWaitSec float64
	for _, o := range filled {
		sumWaitSec += o.Wait(currentTime) * m.cfg.TickIntervalSec
	}
	avgWaitSec := sumWaitSec / float64(len(filled))

	skillDisparity := maxPct - minPct
	quality := m.cfg.QualityWeightPing*(1-avgDeltaPing/m.cfg.DeltaPingBackoff.Max) +
		m.cfg.QualityWeightSkillBalance*(1-skillDisparity/m.cfg.SkillDisparityBackoff.Max) +
		m.cfg.QualityWeightWaitTime*(1-math.Min(1, avgWaitSec/m.cfg.QualityWaitRefSec))

	_ = registry.Debit(dcID, pl) // capacity already verified by chooseTargetDC within this tick

	return Proposal{
		Playlist:       pl,
		DataCenterID:   dcID,
		Teams:          teams,
		PlayerIDs:      allIDs,
		TeamSkills:     teamSkills,
		QualityScore:   quality,
		SkillDisparity: skillDisparity,
		AvgDeltaPing:   avgDeltaPing,
	}
}

// snakeIndex returns the team index for the i-th player in a snake draft
// (ABBA...) across teamCount teams.
func snakeIndex(i, teamCount int) int {
	round := i / teamCount
	pos := i % teamCount
	if round%2 == 1 {
		return teamCount - 1 - pos
	}
	return pos
}
