package search

import (
	"testing"

	"github.com/admiralorbiter/okqueue/internal/geo"
	"github.com/admiralorbiter/okqueue/internal/playlist"
	"github.com/admiralorbiter/okqueue/internal/player"
	"github.com/stretchr/testify/assert"
)

func testPlayer(id player.ID, pct float64) *player.Player {
	p := player.New(id, geo.Location{}, player.PlatformPC, player.InputMouseKeyboard, 0, map[uint64]float64{1: 10}, nil)
	p.SkillPercentile = pct
	return p
}

func TestNewFromPlayersSizeOneHasZeroDisparity(t *testing.T) {
	p := testPlayer(1, 0.6)
	obj := NewFromPlayers(1, []*player.Player{p}, map[playlist.Playlist]bool{playlist.TeamDeathmatch: true}, 5)
	assert.Equal(t, 0.0, obj.SkillDisparity)
	assert.Equal(t, 0.6, obj.AvgSkillPercentile)
	assert.Equal(t, int64(5), obj.SearchStartTime)
}

func TestWait(t *testing.T) {
	p := testPlayer(1, 0.6)
	obj := NewFromPlayers(1, []*player.Player{p}, nil, 5)
	assert.Equal(t, 10.0, obj.Wait(15))
}

func TestQueueOrderedByWaitDescendingStableOnTies(t *testing.T) {
	q := NewQueue()
	p1 := testPlayer(1, 0.5)
	p2 := testPlayer(2, 0.5)
	p3 := testPlayer(3, 0.5)

	o1 := NewFromPlayers(q.NextID(), []*player.Player{p1}, nil, 0) // wait 10 at t=10
	o2 := NewFromPlayers(q.NextID(), []*player.Player{p2}, nil, 5) // wait 5
	o3 := NewFromPlayers(q.NextID(), []*player.Player{p3}, nil, 0) // wait 10, inserted after o1

	q.Add(o1)
	q.Add(o2)
	q.Add(o3)

	ordered := q.OrderedByWaitDescending(10)
	assert.Equal(t, []uint64{o1.ID, o3.ID, o2.ID}, []uint64{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestQueueRemoveAndCompact(t *testing.T) {
	q := NewQueue()
	p := testPlayer(1, 0.5)
	for i := 0; i < 10; i++ {
		o := NewFromPlayers(q.NextID(), []*player.Player{p}, nil, 0)
		q.Add(o)
	}
	assert.Equal(t, 10, q.Len())
	for id := uint64(1); id <= 9; id++ {
		q.Remove(id)
	}
	assert.Equal(t, 1, q.Len())
	ordered := q.OrderedByWaitDescending(0)
	assert.Len(t, ordered, 1)
}
