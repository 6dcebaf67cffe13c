// Package tolerance implements the three monotonically-relaxing
// piecewise-linear constraint envelopes a search accumulates as it waits,
// per spec §4.B. These are pure functions of wait time and config; they
// carry no state of their own.
package tolerance

import "github.com/admiralorbiter/okqueue/internal/config"

// DeltaPingAllowed returns the maximum delta-ping (ms) a search at wait
// time w (in ticks) will accept.
func DeltaPingAllowed(cfg config.MatchmakingConfig, w float64) float64 {
	return cfg.DeltaPingBackoff.Allowed(w)
}

// SkillWindow returns the percentile half-width a search at wait time w
// will accept when comparing against another search's avg_skill_percentile.
func SkillWindow(cfg config.MatchmakingConfig, w float64) float64 {
	return cfg.SkillSimilarityBackoff.Allowed(w)
}

// SkillDisparityCap returns the maximum (max-min) skill percentile spread a
// forming match at wait time w may have.
func SkillDisparityCap(cfg config.MatchmakingConfig, w float64) float64 {
	return cfg.SkillDisparityBackoff.Allowed(w)
}
