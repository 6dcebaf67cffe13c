package player

import "math"

// StartSearching transitions an InLobby player to Searching and stamps
// search_start_time, per spec §4.G step 2.
func (p *Player) StartSearching(currentTime int64) {
	p.State = Searching
	p.SearchStartTime = currentTime
}

// EnterMatch transitions a Searching player to InMatch and records the
// tick-lifecycle samples (search time in ticks, delta ping in ms) into its
// rolling windows, per spec §4.G step 4.
func (p *Player) EnterMatch(matchID MatchID, currentTime int64, deltaPing float64) {
	p.State = InMatch
	p.CurrentMatch = matchID
	searchTicks := float64(currentTime - p.SearchStartTime)
	p.RecentSearchTimes.Push(searchTicks)
	p.RecentDeltaPings.Push(deltaPing)
	p.SearchStartTime = 0
}

// ContinuationProbability computes continue_prob per spec §4.G:
// clamp(base - 0.2*min(avgΔping/100,1) - 0.15*min(avgSearchSeconds/120,1) -
// 0.2*blowoutRate, 0.3, 1.0). avgSearchSeconds is the rolling search-time
// window converted from ticks using tickIntervalSec, per the §9 unit
// open question.
func (p *Player) ContinuationProbability(base float64, tickIntervalSec float64) float64 {
	avgDeltaPing := p.RecentDeltaPings.Avg()
	avgSearchSeconds := p.RecentSearchTimes.Avg() * tickIntervalSec
	blowoutRate := p.RecentBlowouts.Avg()

	prob := base -
		0.2*math.Min(avgDeltaPing/100, 1) -
		0.15*math.Min(avgSearchSeconds/120, 1) -
		0.2*blowoutRate

	return clamp(prob, 0.3, 1.0)
}

// CompleteMatch transitions an InMatch player out, pushes the blowout flag
// into the rolling window, and resolves the continue/leave draw with the
// caller-supplied uniform sample u (so callers can use a tick-derived rng
// stream deterministically).
func (p *Player) CompleteMatch(isBlowout bool, base, tickIntervalSec, u float64) {
	if isBlowout {
		p.RecentBlowouts.Push(1)
	} else {
		p.RecentBlowouts.Push(0)
	}
	p.CurrentMatch = 0

	continueProb := p.ContinuationProbability(base, tickIntervalSec)
	p.ContinuationProb = continueProb
	if u < continueProb {
		p.State = InLobby
	} else {
		p.State = Offline
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
