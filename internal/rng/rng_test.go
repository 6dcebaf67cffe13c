package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForTickDeterministic(t *testing.T) {
	a := ForTick(42, 100)
	b := ForTick(42, 100)
	assert.Equal(t, a.Float64(), b.Float64())
}

func TestForTickDiffersAcrossTicks(t *testing.T) {
	a := ForTick(42, 100).Float64()
	b := ForTick(42, 101).Float64()
	assert.NotEqual(t, a, b)
}

func TestPoissonNonNegative(t *testing.T) {
	s := ForTick(1, 1)
	for i := 0; i < 1000; i++ {
		s = ForTick(1, int64(i))
		k := s.Poisson(10)
		assert.GreaterOrEqual(t, k, 0)
	}
}

func TestPoissonZeroLambdaAlwaysZero(t *testing.T) {
	s := ForTick(7, 7)
	assert.Equal(t, 0, s.Poisson(0))
}
