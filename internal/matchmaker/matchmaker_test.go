package matchmaker

import (
	"testing"

	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/datacenter"
	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildPlayers(n int, pct float64) (map[player.ID]*player.Player, func(id player.ID) (*player.Player, bool)) {
	players := make(map[player.ID]*player.Player, n)
	for i := 0; i < n; i++ {
		pid := player.ID(i + 1)
		p := player.New(pid, geo.Location{Lat: 10, Lon: 10}, player.PlatformPC, player.InputMouseKeyboard, 0, map[uint64]float64{1: 20}, []playlist.Playlist{playlist.TeamDeathmatch})
		p.SkillPercentile = pct
		players[pid] = p
	}
	lookup := func(id player.ID) (*player.Player, bool) {
		p, ok := players[id]
		return p, ok
	}
	return players, lookup
}

func queueOf(players map[player.ID]*player.Player, currentTime int64) *search.Queue {
	q := search.NewQueue()
	for _, p := range players {
		obj := search.NewFromPlayers(q.NextID(), []*player.Player{p}, map[playlist.Playlist]bool{playlist.TeamDeathmatch: true}, currentTime)
		q.Add(obj)
	}
	return q
}

func TestRunTickCommitsFullMatch(t *testing.T) {
	players, lookup := buildPlayers(12, 0.5)
	q := queueOf(players, 0)

	registry := datacenter.NewRegistry()
	registry.Register(datacenter.New(1, "NA", geo.Location{Lat: 10, Lon: 10}, "NA", nil))

	mm := New(config.Default())
	proposals := mm.RunTick(q, lookup, registry, 0)

	require.Len(t, proposals, 1)
	assert.Equal(t, playlist.TeamDeathmatch, proposals[0].Playlist)
	assert.Len(t, proposals[0].PlayerIDs, 12)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 1, registry.Get(1).Busy(playlist.TeamDeathmatch))
}

func TestRunTickNoPlayerTwiceAcrossProposals(t *testing.T) {
	players, lookup := buildPlayers(24, 0.5)
	q := queueOf(players, 0)

	registry := datacenter.NewRegistry()
	registry.Register(datacenter.New(1, "NA", geo.Location{Lat: 10, Lon: 10}, "NA", nil))

	mm := New(config.Default())
	proposals := mm.RunTick(q, lookup, registry, 0)

	seen := map[player.ID]bool{}
	for _, p := range proposals {
		for _, pid := range p.PlayerIDs {
			assert.False(t, seen[pid], "player appears in two proposals")
			seen[pid] = true
		}
	}
	assert.Equal(t, 2, len(proposals))
}

func TestRunTickInsufficientPlayersReleasesSeed(t *testing.T) {
	players, lookup := buildPlayers(5, 0.5)
	q := queueOf(players, 0)

	registry := datacenter.NewRegistry()
	registry.Register(datacenter.New(1, "NA", geo.Location{Lat: 10, Lon: 10}, "NA", nil))

	mm := New(config.Default())
	proposals := mm.RunTick(q, lookup, registry, 0)

	assert.Len(t, proposals, 0)
	assert.Equal(t, 5, q.Len())
}

func TestRunTickSkipsOvercommittedDC(t *testing.T) {
	players, lookup := buildPlayers(12, 0.5)
	q := queueOf(players, 0)

	registry := datacenter.NewRegistry()
	registry.Register(datacenter.New(1, "NA", geo.Location{Lat: 10, Lon: 10}, "NA", map[playlist.Playlist]int{playlist.TeamDeathmatch: 0}))

	mm := New(config.Default())
	proposals := mm.RunTick(q, lookup, registry, 0)

	assert.Len(t, proposals, 0)
	assert.Equal(t, 12, q.Len())
}

func TestRunTickSkillDisparityCapExcludesFarCandidate(t *testing.T) {
	players, lookup := buildPlayers(11, 0.5)
	outlier := player.New(player.ID(999), geo.Location{Lat: 10, Lon: 10}, player.PlatformPC, player.InputMouseKeyboard, 0, map[uint64]float64{1: 20}, []playlist.Playlist{playlist.TeamDeathmatch})
	outlier.SkillPercentile = 0.99
	players[outlier.ID] = outlier
	lookup = func(id player.ID) (*player.Player, bool) {
		p, ok := players[id]
		return p, ok
	}

	q := queueOf(players, 0)
	registry := datacenter.NewRegistry()
	registry.Register(datacenter.New(1, "NA", geo.Location{Lat: 10, Lon: 10}, "NA", nil))

	mm := New(config.Default())
	proposals := mm.RunTick(q, lookup, registry, 0)

	// at wait=0 the skill window (0.05) and disparity cap (0.1) exclude the
	// 0.99 outlier from the 0.5-percentile pool, so no full match forms yet.
	assert.Len(t, proposals, 0)
	assert.Equal(t, 12, q.Len())
}

func TestRunTickTieBreaksDCSelectionOnLowestID(t *testing.T) {
	registry := datacenter.NewRegistry()
	registry.Register(datacenter.New(5, "EU", geo.Location{Lat: 10, Lon: 10}, "EU", nil))
	registry.Register(datacenter.New(2, "NA", geo.Location{Lat: 10, Lon: 10}, "NA", nil))
	registry.Register(datacenter.New(9, "AS", geo.Location{Lat: 10, Lon: 10}, "AS", nil))

	buildTiedPlayers := func() (map[player.ID]*player.Player, func(id player.ID) (*player.Player, bool)) {
		players := make(map[player.ID]*player.Player, 12)
		for i := 0; i < 12; i++ {
			pid := player.ID(i + 1)
			// every acceptable DC has the identical average member ping, so
			// chooseTargetDC must fall back to the lowest dcID tiebreak.
			pings := map[uint64]float64{2: 20, 5: 20, 9: 20}
			p := player.New(pid, geo.Location{Lat: 10, Lon: 10}, player.PlatformPC, player.InputMouseKeyboard, 0, pings, []playlist.Playlist{playlist.TeamDeathmatch})
			p.SkillPercentile = 0.5
			players[pid] = p
		}
		lookup := func(id player.ID) (*player.Player, bool) {
			p, ok := players[id]
			return p, ok
		}
		return players, lookup
	}

	// Run several times: a map-iteration-order bug would flip the winning
	// DC across runs since Go randomizes map iteration per run.
	for run := 0; run < 10; run++ {
		players, lookup := buildTiedPlayers()
		q := queueOf(players, 0)

		mm := New(config.Default())
		proposals := mm.RunTick(q, lookup, registry, 0)

		require.Len(t, proposals, 1)
		assert.Equal(t, datacenter.ID(2), proposals[0].DataCenterID, "run %d: tie must break on lowest dcID", run)

		registry.Get(2).Credit(playlist.TeamDeathmatch)
	}
}

func TestSnakeIndexDistributesEvenly(t *testing.T) {
	counts := make([]int, 2)
	for i := 0; i < 12; i++ {
		counts[snakeIndex(i, 2)]++
	}
	assert.Equal(t, 6, counts[0])
	assert.Equal(t, 6, counts[1])
}
