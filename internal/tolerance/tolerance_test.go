package tolerance

import (
	"testing"

	"github.com/admiralorbiter/okqueue/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestDeltaPingAllowedGrowsThenCaps(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 10.0, DeltaPingAllowed(cfg, 0))
	assert.Equal(t, 14.0, DeltaPingAllowed(cfg, 2))
	assert.Equal(t, 100.0, DeltaPingAllowed(cfg, 1000))
}

func TestSkillWindowGrowsThenCaps(t *testing.T) {
	cfg := config.Default()
	assert.InDelta(t, 0.05, SkillWindow(cfg, 0), 1e-9)
	assert.InDelta(t, 0.5, SkillWindow(cfg, 10000), 1e-9)
}

func TestSkillDisparityCapMonotone(t *testing.T) {
	cfg := config.Default()
	prev := SkillDisparityCap(cfg, 0)
	for w := 1.0; w <= 500; w++ {
		cur := SkillDisparityCap(cfg, w)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.LessOrEqual(t, prev, cfg.SkillDisparityBackoff.Max)
}
