package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinProbabilityAtZeroDeltaIsHalf(t *testing.T) {
	assert.InDelta(t, 0.5, WinProbability(0), 1e-9)
}

func TestWinProbabilityFavorsHigherSkillTeam(t *testing.T) {
	assert.Greater(t, WinProbability(0.2), 0.5)
	assert.Less(t, WinProbability(-0.2), 0.5)
}

func TestBlowoutProbabilityBranches(t *testing.T) {
	assert.InDelta(t, 0.02, BlowoutProbability(0.01, 0.01), 1e-9)
	assert.InDelta(t, 0.05+0.1*0.1, BlowoutProbability(0.06, 0.1), 1e-9)
	assert.InDelta(t, 0.5*0.5, BlowoutProbability(0.04, 0.5), 1e-9)
	assert.InDelta(t, 0.1+0.4*1+0.3*0.2, BlowoutProbability(0.6, 0.2), 1e-9)
}

func TestBlowoutProbabilityNeverExceedsCap(t *testing.T) {
	assert.LessOrEqual(t, BlowoutProbability(10, 1), 0.9)
}

func TestDetermineOutcomeFFASingleTeam(t *testing.T) {
	out := DetermineOutcome([]float64{0.1}, 0.0, 0.99)
	assert.Equal(t, 0, out.WinningTeam)
	assert.False(t, out.IsBlowout)
}

func TestDetermineOutcomeTwoTeamWinnerSelection(t *testing.T) {
	out := DetermineOutcome([]float64{0.5, -0.5}, 0.01, 0.99)
	assert.Equal(t, 0, out.WinningTeam)

	out2 := DetermineOutcome([]float64{0.5, -0.5}, 0.99, 0.99)
	assert.Equal(t, 1, out2.WinningTeam)
}

func TestIsCompleteBoundary(t *testing.T) {
	m := &Match{StartTime: 10, ExpectedDuration: 5}
	assert.False(t, m.IsComplete(14))
	assert.True(t, m.IsComplete(15))
	assert.True(t, m.IsComplete(16))
}

func TestStoreCompletedFiltersActive(t *testing.T) {
	s := NewStore()
	m1 := &Match{ID: s.NextID(), StartTime: 0, ExpectedDuration: 5}
	m2 := &Match{ID: s.NextID(), StartTime: 0, ExpectedDuration: 100}
	s.Add(m1)
	s.Add(m2)

	done := s.Completed(5)
	assert.Len(t, done, 1)
	assert.Equal(t, m1.ID, done[0].ID)
}
