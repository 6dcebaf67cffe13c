package simulation

import (
	"testing"

	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/admiralorbiter/okqueue/internal/datacenter"
	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDC(id datacenter.ID) DataCenterInput {
	return DataCenterInput{ID: id, Name: "NA", Location: geo.Location{Lat: 10, Lon: 10}, Region: "NA"}
}

func newTestPlayers(n int) []PlayerInput {
	out := make([]PlayerInput, n)
	for i := 0; i < n; i++ {
		out[i] = PlayerInput{
			ID:                 player.ID(i + 1),
			Location:           geo.Location{Lat: 10, Lon: 10},
			Platform:           player.PlatformPC,
			InputDevice:        player.InputMouseKeyboard,
			Skill:              0,
			DCPings:            map[uint64]float64{1: 20},
			PreferredPlaylists: []playlist.Playlist{playlist.TeamDeathmatch},
		}
	}
	return out
}

func TestIngestPlayersFailsWithoutDataCenters(t *testing.T) {
	sim, err := New(0, config.Default())
	require.NoError(t, err)

	err = sim.IngestPlayers(newTestPlayers(5))
	assert.ErrorIs(t, err, ErrEmptyDataCenterSet)
}

func TestIngestPlayersRecomputesPercentiles(t *testing.T) {
	sim, err := New(0, config.Default())
	require.NoError(t, err)
	sim.RegisterDataCenter(newTestDC(1))

	inputs := []PlayerInput{
		{ID: 1, Location: geo.Location{}, Platform: player.PlatformPC, InputDevice: player.InputMouseKeyboard, Skill: -1, DCPings: map[uint64]float64{1: 10}, PreferredPlaylists: []playlist.Playlist{playlist.TeamDeathmatch}},
		{ID: 2, Location: geo.Location{}, Platform: player.PlatformPC, InputDevice: player.InputMouseKeyboard, Skill: 0, DCPings: map[uint64]float64{1: 10}, PreferredPlaylists: []playlist.Playlist{playlist.TeamDeathmatch}},
		{ID: 3, Location: geo.Location{}, Platform: player.PlatformPC, InputDevice: player.InputMouseKeyboard, Skill: 1, DCPings: map[uint64]float64{1: 10}, PreferredPlaylists: []playlist.Playlist{playlist.TeamDeathmatch}},
	}
	require.NoError(t, sim.IngestPlayers(inputs))

	p1, _ := sim.lookupPlayer(1)
	p2, _ := sim.lookupPlayer(2)
	p3, _ := sim.lookupPlayer(3)
	assert.Equal(t, 0.0, p1.SkillPercentile)
	assert.Equal(t, 0.5, p2.SkillPercentile)
	assert.Equal(t, 1.0, p3.SkillPercentile)
}

func TestTickEmptyQueueAdvancesClockOnly(t *testing.T) {
	sim, err := New(0, config.Default())
	require.NoError(t, err)
	sim.RegisterDataCenter(newTestDC(1))
	require.NoError(t, sim.SetArrivalRate(0))

	sim.Tick()
	assert.Equal(t, int64(1), sim.CurrentTime())
	assert.Equal(t, 0, sim.matches.Len())
}

func TestDeterminismAcrossIdenticalRuns(t *testing.T) {
	build := func() *Simulation {
		sim, _ := New(42, config.Default())
		sim.RegisterDataCenter(newTestDC(1))
		_ = sim.IngestPlayers(newTestPlayers(100))
		sim.Run(20)
		return sim
	}

	a := build().Snapshot()
	b := build().Snapshot()
	assert.Equal(t, a, b)
}

func TestRunAdvancesCurrentTimeByN(t *testing.T) {
	sim, err := New(0, config.Default())
	require.NoError(t, err)
	sim.RegisterDataCenter(newTestDC(1))
	require.NoError(t, sim.SetArrivalRate(0))

	sim.Run(10)
	assert.Equal(t, int64(10), sim.CurrentTime())
}

func TestUpdateConfigTakesEffectNextTick(t *testing.T) {
	sim, err := New(0, config.Default())
	require.NoError(t, err)
	sim.RegisterDataCenter(newTestDC(1))

	newCfg := config.Default()
	newCfg.NumSkillBuckets = 5
	require.NoError(t, sim.UpdateConfig(newCfg))

	assert.Equal(t, 10, sim.cfg.NumSkillBuckets)
	sim.Tick()
	assert.Equal(t, 5, sim.cfg.NumSkillBuckets)
}
