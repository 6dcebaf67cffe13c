// Package config holds the MatchmakingConfig knob bundle: every numeric
// parameter the simulation's components read, all of it runtime-adjustable
// via update_config without a rebuild.
package config

import (
	"fmt"
	"math"

	"github.com/spf13/viper"
)

// Backoff describes one of the three piecewise-linear tolerance schedules:
// allowed(w) = min(Initial + Rate*w, Max).
type Backoff struct {
	Initial float64 `mapstructure:"initial" json:"initial"`
	Rate    float64 `mapstructure:"rate" json:"rate"`
	Max     float64 `mapstructure:"max" json:"max"`
}

// Allowed evaluates the backoff curve at wait time w (in ticks).
func (b Backoff) Allowed(w float64) float64 {
	return math.Min(b.Initial+b.Rate*w, b.Max)
}

// MatchmakingConfig is the full knob bundle from spec §6. All fields are
// numeric and intended to be loadable from environment variables or a file
// via viper, then mutated at runtime through update_config.
type MatchmakingConfig struct {
	MaxPingMS         float64 `mapstructure:"max_ping_ms" json:"max_ping_ms"`
	TickIntervalSec   float64 `mapstructure:"tick_interval_sec" json:"tick_interval_sec"`
	NumSkillBuckets   int     `mapstructure:"num_skill_buckets" json:"num_skill_buckets"`
	TopKCandidates    int     `mapstructure:"top_k_candidates" json:"top_k_candidates"`
	ArrivalRateLambda float64 `mapstructure:"arrival_rate_lambda" json:"arrival_rate_lambda"`

	DeltaPingBackoff       Backoff `mapstructure:"delta_ping_backoff" json:"delta_ping_backoff"`
	SkillSimilarityBackoff Backoff `mapstructure:"skill_similarity_backoff" json:"skill_similarity_backoff"`
	SkillDisparityBackoff  Backoff `mapstructure:"skill_disparity_backoff" json:"skill_disparity_backoff"`

	WeightGeo      float64 `mapstructure:"weight_geo" json:"weight_geo"`
	WeightSkill    float64 `mapstructure:"weight_skill" json:"weight_skill"`
	WeightInput    float64 `mapstructure:"weight_input" json:"weight_input"`
	WeightPlatform float64 `mapstructure:"weight_platform" json:"weight_platform"`

	QualityWeightPing         float64 `mapstructure:"quality_weight_ping" json:"quality_weight_ping"`
	QualityWeightSkillBalance float64 `mapstructure:"quality_weight_skill_balance" json:"quality_weight_skill_balance"`
	QualityWeightWaitTime     float64 `mapstructure:"quality_weight_wait_time" json:"quality_weight_wait_time"`

	GeoNormKM         float64 `mapstructure:"geo_norm_km" json:"geo_norm_km"`
	QualityWaitRefSec float64 `mapstructure:"quality_wait_ref_sec" json:"quality_wait_ref_sec"`
	SearchStartProb   float64 `mapstructure:"search_start_prob" json:"search_start_prob"`
	ContinuationBase  float64 `mapstructure:"continuation_base" json:"continuation_base"`
}

// Default returns the configuration with the exact constants spec.md §6
// specifies (mirroring original_source's MatchmakingConfig::default()).
func Default() MatchmakingConfig {
	return MatchmakingConfig{
		MaxPingMS:         200,
		TickIntervalSec:   5,
		NumSkillBuckets:   10,
		TopKCandidates:    50,
		ArrivalRateLambda: 10,

		DeltaPingBackoff:       Backoff{Initial: 10, Rate: 2, Max: 100},
		SkillSimilarityBackoff: Backoff{Initial: 0.05, Rate: 0.01, Max: 0.5},
		SkillDisparityBackoff:  Backoff{Initial: 0.1, Rate: 0.02, Max: 0.8},

		WeightGeo:      0.3,
		WeightSkill:    0.4,
		WeightInput:    0.15,
		WeightPlatform: 0.15,

		QualityWeightPing:         0.4,
		QualityWeightSkillBalance: 0.4,
		QualityWeightWaitTime:     0.2,

		GeoNormKM:         20000,
		QualityWaitRefSec: 120,
		SearchStartProb:   0.3,
		ContinuationBase:  0.85,
	}
}

// Validate reports the fatal conditions spec.md §7 names: non-finite or
// negative numeric fields. It does not check playlist/team-count topology;
// that check lives with the playlist registry since it isn't a config field.
func (c MatchmakingConfig) Validate() error {
	fields := map[string]float64{
		"max_ping_ms":                  c.MaxPingMS,
		"tick_interval_sec":            c.TickIntervalSec,
		"top_k_candidates":             float64(c.TopKCandidates),
		"num_skill_buckets":            float64(c.NumSkillBuckets),
		"arrival_rate_lambda":          c.ArrivalRateLambda,
		"delta_ping_backoff.initial":   c.DeltaPingBackoff.Initial,
		"delta_ping_backoff.rate":      c.DeltaPingBackoff.Rate,
		"delta_ping_backoff.max":       c.DeltaPingBackoff.Max,
		"skill_similarity_backoff.initial": c.SkillSimilarityBackoff.Initial,
		"skill_similarity_backoff.rate":    c.SkillSimilarityBackoff.Rate,
		"skill_similarity_backoff.max":     c.SkillSimilarityBackoff.Max,
		"skill_disparity_backoff.initial":  c.SkillDisparityBackoff.Initial,
		"skill_disparity_backoff.rate":     c.SkillDisparityBackoff.Rate,
		"skill_disparity_backoff.max":      c.SkillDisparityBackoff.Max,
		"weight_geo":                   c.WeightGeo,
		"weight_skill":                 c.WeightSkill,
		"weight_input":                 c.WeightInput,
		"weight_platform":              c.WeightPlatform,
		"quality_weight_ping":          c.QualityWeightPing,
		"quality_weight_skill_balance": c.QualityWeightSkillBalance,
		"quality_weight_wait_time":     c.QualityWeightWaitTime,
		"geo_norm_km":                  c.GeoNormKM,
		"quality_wait_ref_sec":         c.QualityWaitRefSec,
		"search_start_prob":            c.SearchStartProb,
		"continuation_base":            c.ContinuationBase,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("config field %s is non-finite", name)
		}
		if v < 0 {
			return fmt.Errorf("config field %s is negative: %v", name, v)
		}
	}
	return nil
}

// Load reads a MatchmakingConfig from environment variables (prefixed
// MM_) and an optional config file, falling back to Default() for anything
// unset. Matches the teacher's viper env+file pattern in pkg/config.
func Load() (MatchmakingConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("MM")
	v.AutomaticEnv()
	v.SetConfigName("matchmaking")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	def := Default()
	v.SetDefault("max_ping_ms", def.MaxPingMS)
	v.SetDefault("tick_interval_sec", def.TickIntervalSec)
	v.SetDefault("num_skill_buckets", def.NumSkillBuckets)
	v.SetDefault("top_k_candidates", def.TopKCandidates)
	v.SetDefault("arrival_rate_lambda", def.ArrivalRateLambda)
	v.SetDefault("weight_geo", def.WeightGeo)
	v.SetDefault("weight_skill", def.WeightSkill)
	v.SetDefault("weight_input", def.WeightInput)
	v.SetDefault("weight_platform", def.WeightPlatform)
	v.SetDefault("quality_weight_ping", def.QualityWeightPing)
	v.SetDefault("quality_weight_skill_balance", def.QualityWeightSkillBalance)
	v.SetDefault("quality_weight_wait_time", def.QualityWeightWaitTime)
	v.SetDefault("geo_norm_km", def.GeoNormKM)
	v.SetDefault("quality_wait_ref_sec", def.QualityWaitRefSec)
	v.SetDefault("search_start_prob", def.SearchStartProb)
	v.SetDefault("continuation_base", def.ContinuationBase)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return MatchmakingConfig{}, fmt.Errorf("error reading matchmaking config file: %w", err)
		}
	}

	cfg := def
	// Backoff triples don't round-trip cleanly through mapstructure's flat
	// env lookup, so they're seeded from defaults and only overridden when a
	// file/env value is actually present.
	if v.IsSet("delta_ping_backoff") {
		if err := v.UnmarshalKey("delta_ping_backoff", &cfg.DeltaPingBackoff); err != nil {
			return MatchmakingConfig{}, err
		}
	}
	if v.IsSet("skill_similarity_backoff") {
		if err := v.UnmarshalKey("skill_similarity_backoff", &cfg.SkillSimilarityBackoff); err != nil {
			return MatchmakingConfig{}, err
		}
	}
	if v.IsSet("skill_disparity_backoff") {
		if err := v.UnmarshalKey("skill_disparity_backoff", &cfg.SkillDisparityBackoff); err != nil {
			return MatchmakingConfig{}, err
		}
	}

	cfg.MaxPingMS = v.GetFloat64("max_ping_ms")
	cfg.TickIntervalSec = v.GetFloat64("tick_interval_sec")
	cfg.NumSkillBuckets = v.GetInt("num_skill_buckets")
	cfg.TopKCandidates = v.GetInt("top_k_candidates")
	cfg.ArrivalRateLambda = v.GetFloat64("arrival_rate_lambda")
	cfg.WeightGeo = v.GetFloat64("weight_geo")
	cfg.WeightSkill = v.GetFloat64("weight_skill")
	cfg.WeightInput = v.GetFloat64("weight_input")
	cfg.WeightPlatform = v.GetFloat64("weight_platform")
	cfg.QualityWeightPing = v.GetFloat64("quality_weight_ping")
	cfg.QualityWeightSkillBalance = v.GetFloat64("quality_weight_skill_balance")
	cfg.QualityWeightWaitTime = v.GetFloat64("quality_weight_wait_time")
	cfg.GeoNormKM = v.GetFloat64("geo_norm_km")
	cfg.QualityWaitRefSec = v.GetFloat64("quality_wait_ref_sec")
	cfg.SearchStartProb = v.GetFloat64("search_start_prob")
	cfg.ContinuationBase = v.GetFloat64("continuation_base")

	if err := cfg.Validate(); err != nil {
		return MatchmakingConfig{}, err
	}
	return cfg, nil
}
