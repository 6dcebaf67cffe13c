package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}

func TestPercentileIndexFormula(t *testing.T) {
	samples := []float64{1, 2, 3, 4, 5}
	// p*n floored clamped to [0, n-1]: p50 -> idx=2 -> value 3
	assert.Equal(t, 3.0, Percentile(samples, 0.5))
	// p99 -> idx = floor(0.99*5)=4 -> value 5
	assert.Equal(t, 5.0, Percentile(samples, 0.99))
	assert.Equal(t, 1.0, Percentile(samples, 0))
}

func TestBlowoutRateNoSamples(t *testing.T) {
	a := New()
	assert.Equal(t, 0.0, a.BlowoutRate())
}

func TestBlowoutRateComputed(t *testing.T) {
	a := New()
	a.RecordMatchCompletion(true, 1, true, 10, 5)
	a.RecordMatchCompletion(false, 1, false, 12, 6)
	assert.Equal(t, 0.5, a.BlowoutRate())
}

func TestBucketRollups(t *testing.T) {
	a := New()
	a.SetBucketPopulation(3, 42)
	a.RecordMatchCompletion(false, 3, true, 10, 5)
	a.RecordMatchCompletion(false, 3, true, 20, 10)

	rollups := a.BucketRollups()
	bs := rollups[3]
	assert.Equal(t, 42, bs.PlayerCount)
	assert.Equal(t, 2, bs.MatchesPlayed)
	assert.Equal(t, 1.0, bs.WinRate)
	assert.InDelta(t, 15.0, bs.AvgSearchTime, 1e-9)
	assert.InDelta(t, 7.5, bs.AvgDeltaPing, 1e-9)
}

func TestSkillHistogramBucketsFullRange(t *testing.T) {
	hist := SkillHistogram([]float64{-1, -0.5, 0, 0.5, 0.999}, 20)
	assert.Len(t, hist, 20)
	total := 0
	for _, c := range hist {
		total += c
	}
	assert.Equal(t, 5, total)
}

func TestSearchTimeStatsEmpty(t *testing.T) {
	a := New()
	avg, p50, p90, p99 := a.SearchTimeStats()
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0.0, p50)
	assert.Equal(t, 0.0, p90)
	assert.Equal(t, 0.0, p99)
}
