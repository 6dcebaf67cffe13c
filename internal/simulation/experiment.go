package simulation

import (
	"fmt"

	"github.com/admiralorbiter/okqueue/internal/config"
)

// ExperimentConfig mirrors original_source's ExperimentConfig: a sweep
// descriptor naming one config parameter, the values to try it at, and how
// many independent runs/ticks each value gets. Orchestrating a full sweep
// across processes is out of scope (spec §1's experiment-sweep-orchestration
// Non-goal); RunSingle below covers construction and single-run execution.
type ExperimentConfig struct {
	Name         string
	Parameter    string
	Values       []float64
	RunsPerValue int
	TicksPerRun  int
}

// ApplyParameter returns a copy of base with the named numeric parameter
// set to value. It supports the knobs spec §6 lists as sweepable.
func (e ExperimentConfig) ApplyParameter(base config.MatchmakingConfig, value float64) (config.MatchmakingConfig, error) {
	cfg := base
	switch e.Parameter {
	case "max_ping_ms":
		cfg.MaxPingMS = value
	case "top_k_candidates":
		cfg.TopKCandidates = int(value)
	case "arrival_rate_lambda":
		cfg.ArrivalRateLambda = value
	case "delta_ping_backoff.rate":
		cfg.DeltaPingBackoff.Rate = value
	case "skill_similarity_backoff.rate":
		cfg.SkillSimilarityBackoff.Rate = value
	case "skill_disparity_backoff.rate":
		cfg.SkillDisparityBackoff.Rate = value
	case "weight_geo":
		cfg.WeightGeo = value
	case "weight_skill":
		cfg.WeightSkill = value
	default:
		return config.MatchmakingConfig{}, fmt.Errorf("unknown sweep parameter %q", e.Parameter)
	}
	return cfg, nil
}

// RunSingle constructs a fresh Simulation at the given seed/config, ingests
// the supplied population and data centers, runs it for ticks steps, and
// returns the final snapshot. This is the "single-run execution" half of
// the experiment helper; driving RunsPerValue/Values across processes is
// the sweep-orchestration collaborator's job (spec §1 Non-goal).
func RunSingle(seed uint64, cfg config.MatchmakingConfig, dcs []DataCenterInput, players []PlayerInput, ticks int) (Snapshot, error) {
	sim, err := New(seed, cfg)
	if err != nil {
		return Snapshot{}, err
	}
	for _, dc := range dcs {
		sim.RegisterDataCenter(dc)
	}
	if err := sim.IngestPlayers(players); err != nil {
		return Snapshot{}, err
	}
	sim.Run(ticks)
	return sim.Snapshot(), nil
}
