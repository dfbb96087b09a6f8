// Package deploy contains pure planning logic for deployments. No I/O:
// a strategy goes in, an ordered step sequence comes out, and the engine
// executes it through the executor gateway.
package deploy

import "github.com/artpar/stackman/internal/core/domain"

// =============================================================================
// Strategy Step Planning
// =============================================================================

// Step is one named operation in a deployment sequence. Steps map 1:1 onto
// executor gateway operations.
type Step string

const (
	StepPull  Step = "pull"
	StepStop  Step = "stop"
	StepBuild Step = "build"
	StepUp    Step = "up"
)

// Plan is the result of planning a deployment strategy.
type Plan struct {
	// Strategy is the strategy the plan was built for.
	Strategy domain.Strategy

	// Steps is the ordered sequence to execute. The first failing step
	// aborts the sequence.
	Steps []Step

	// Degraded is set when the requested strategy has no dedicated
	// algorithm and delegates to recreate.
	Degraded bool
}

// recreateSteps is the full-recreate sequence: pull images, stop current
// services, build, start.
func recreateSteps() []Step {
	return []Step{StepPull, StepStop, StepBuild, StepUp}
}

// PlanStrategy maps a strategy onto its step sequence.
//
// Rolling and blue-green currently delegate to the recreate sequence; they
// are named here so a dedicated algorithm can slot in without touching the
// orchestrator. An unknown strategy also falls back to recreate, matching
// the validation layer which flags it as a warning rather than an error.
func PlanStrategy(strategy domain.Strategy) Plan {
	switch strategy {
	case domain.StrategyRecreate:
		return Plan{Strategy: strategy, Steps: recreateSteps()}
	case domain.StrategyRolling, domain.StrategyBlueGreen:
		return Plan{Strategy: strategy, Steps: recreateSteps(), Degraded: true}
	default:
		return Plan{Strategy: domain.StrategyRecreate, Steps: recreateSteps(), Degraded: true}
	}
}
