package config

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultMatchesSpecConstants(t *testing.T) {
	c := Default()
	assert.Equal(t, 200.0, c.MaxPingMS)
	assert.Equal(t, 5.0, c.TickIntervalSec)
	assert.Equal(t, 10, c.NumSkillBuckets)
	assert.Equal(t, 50, c.TopKCandidates)
	assert.Equal(t, 10.0, c.ArrivalRateLambda)

	assert.Equal(t, Backoff{Initial: 10, Rate: 2, Max: 100}, c.DeltaPingBackoff)
	assert.Equal(t, Backoff{Initial: 0.05, Rate: 0.01, Max: 0.5}, c.SkillSimilarityBackoff)
	assert.Equal(t, Backoff{Initial: 0.1, Rate: 0.02, Max: 0.8}, c.SkillDisparityBackoff)

	assert.Equal(t, 0.3, c.WeightGeo)
	assert.Equal(t, 0.4, c.WeightSkill)
	assert.Equal(t, 0.15, c.WeightInput)
	assert.Equal(t, 0.15, c.WeightPlatform)

	assert.Equal(t, 0.4, c.QualityWeightPing)
	assert.Equal(t, 0.4, c.QualityWeightSkillBalance)
	assert.Equal(t, 0.2, c.QualityWeightWaitTime)
}

func TestValidateRejectsNegative(t *testing.T) {
	c := Default()
	c.MaxPingMS = -1
	err := c.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsNonFinite(t *testing.T) {
	c := Default()
	c.WeightGeo = math.NaN()
	err := c.Validate()
	assert.Error(t, err)

	c2 := Default()
	c2.WeightGeo = math.Inf(1)
	assert.Error(t, c2.Validate())
}

func TestValidateAcceptsDefault(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestBackoffAllowedClampsAtMax(t *testing.T) {
	b := Backoff{Initial: 10, Rate: 2, Max: 100}
	assert.Equal(t, 10.0, b.Allowed(0))
	assert.Equal(t, 20.0, b.Allowed(5))
	assert.Equal(t, 100.0, b.Allowed(1000))
}

func TestBackoffMonotoneNonDecreasing(t *testing.T) {
	b := Backoff{Initial: 0.1, Rate: 0.02, Max: 0.8}
	prev := b.Allowed(0)
	for w := 1.0; w <= 200; w++ {
		cur := b.Allowed(w)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}
