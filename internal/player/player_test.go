package player

import (
	"testing"

	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/stretchr/testify/assert"
)

func newTestPlayer() *Player {
	pings := map[uint64]float64{1: 20, 2: 35}
	return New(1, geo.Location{Lat: 1, Lon: 1}, PlatformPC, InputMouseKeyboard, 0.2, pings, []playlist.Playlist{playlist.TeamDeathmatch})
}

func TestNewDerivesBestDC(t *testing.T) {
	p := newTestPlayer()
	assert.Equal(t, uint64(1), p.BestDC)
	assert.Equal(t, 20.0, p.BestPing)
	assert.Equal(t, Offline, p.State)
}

func TestAcceptsPlaylist(t *testing.T) {
	p := newTestPlayer()
	assert.True(t, p.AcceptsPlaylist(playlist.TeamDeathmatch))
	assert.False(t, p.AcceptsPlaylist(playlist.GroundWar))
}

func TestUpdateSkillBucketClamps(t *testing.T) {
	p := newTestPlayer()
	p.SkillPercentile = 0
	p.UpdateSkillBucket(10)
	assert.Equal(t, 1, p.SkillBucket)

	p.SkillPercentile = 1.0
	p.UpdateSkillBucket(10)
	assert.Equal(t, 10, p.SkillBucket)

	p.SkillPercentile = 0.55
	p.UpdateSkillBucket(10)
	assert.Equal(t, 5, p.SkillBucket)
}

func TestDeltaPingUnknownDC(t *testing.T) {
	p := newTestPlayer()
	assert.True(t, p.DeltaPing(999) > 1e300)
}

func TestStartSearchingStampsTime(t *testing.T) {
	p := newTestPlayer()
	p.State = InLobby
	p.StartSearching(42)
	assert.Equal(t, Searching, p.State)
	assert.Equal(t, int64(42), p.SearchStartTime)
}

func TestEnterMatchRecordsWindows(t *testing.T) {
	p := newTestPlayer()
	p.State = InLobby
	p.StartSearching(10)
	p.EnterMatch(7, 15, 5.0)
	assert.Equal(t, InMatch, p.State)
	assert.Equal(t, MatchID(7), p.CurrentMatch)
	assert.Equal(t, []float64{5.0}, p.RecentSearchTimes.Samples())
	assert.Equal(t, []float64{5.0}, p.RecentDeltaPings.Samples())
}

func TestContinuationProbabilityClampsFloor(t *testing.T) {
	p := newTestPlayer()
	for i := 0; i < 10; i++ {
		p.RecentDeltaPings.Push(100)
		p.RecentSearchTimes.Push(1000)
		p.RecentBlowouts.Push(1)
	}
	prob := p.ContinuationProbability(0.85, 5)
	assert.Equal(t, 0.3, prob)
}

func TestContinuationProbabilityNoHistoryUsesBase(t *testing.T) {
	p := newTestPlayer()
	prob := p.ContinuationProbability(0.85, 5)
	assert.Equal(t, 0.85, prob)
}

func TestCompleteMatchTransitionsByDraw(t *testing.T) {
	p := newTestPlayer()
	p.State = InMatch
	p.CompleteMatch(false, 0.85, 5, 0.1)
	assert.Equal(t, InLobby, p.State)
	assert.Equal(t, MatchID(0), p.CurrentMatch)

	p2 := newTestPlayer()
	p2.State = InMatch
	p2.CompleteMatch(false, 0.85, 5, 0.99)
	assert.Equal(t, Offline, p2.State)
}
