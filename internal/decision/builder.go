package decision

import (
	"errors"

	"regime-tier-lab/internal/robustness"
	"regime-tier-lab/internal/sensitivity"
)

var (
	// ErrMissingRobustness is returned when no robustness report is given.
	ErrMissingRobustness = errors.New("missing robustness report")

	// ErrMissingSensitivity is returned when no sensitivity report is given.
	ErrMissingSensitivity = errors.New("missing sensitivity report")
)

// Build creates DecisionInput from a robustness and a sensitivity report
// of the same symbol and base parameters.
func Build(symbol string, rob *robustness.Report, sens *sensitivity.Report) (*DecisionInput, error) {
	if rob == nil {
		return nil, ErrMissingRobustness
	}
	if sens == nil {
		return nil, ErrMissingSensitivity
	}

	input := &DecisionInput{
		Symbol:          symbol,
		Runs:            rob.Runs,
		SurvivalRate:    rob.SurvivalRate,
		MeanCAGR:        rob.MeanCAGR,
		MeanMaxDrawdown: rob.MeanMaxDrawdown,
		MeanWinRate:     rob.MeanWinRate,
		CenterReturn:    sens.CenterReturn,
		MeanReturn:      sens.MeanReturn,
		MinReturn:       sens.MinReturn,
		StabilityRatio:  sens.StabilityRatio,
	}

	// Validate before returning (fail fast)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	return input, nil
}
