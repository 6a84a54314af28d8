package decision

import (
	"errors"
	"fmt"
	"math"
)

// Decision represents the final GO/NO-GO result.
type Decision string

const (
	DecisionGO               Decision = "GO"
	DecisionNOGO             Decision = "NO-GO"
	DecisionInsufficientData Decision = "INSUFFICIENT_DATA"
)

var (
	// ErrNilInput is returned when validating a nil input.
	ErrNilInput = errors.New("decision input is nil")

	// ErrNoRuns is returned when the robustness report covers no windows.
	ErrNoRuns = errors.New("robustness report has no runs")

	// ErrNonFinite is returned when a metric is NaN or infinite.
	ErrNonFinite = errors.New("non-finite metric")
)

// Thresholds are the gate's pass levels.
type Thresholds struct {
	MinSurvivalRate   float64 `yaml:"min_survival_rate"`   // %, windows ending above start equity
	MinMeanCAGR       float64 `yaml:"min_mean_cagr"`       // %, exclusive
	MaxMeanDrawdown   float64 `yaml:"max_mean_drawdown"`   // %, mean max drawdown must not be below
	MinStabilityRatio float64 `yaml:"min_stability_ratio"` // sensitivity mean / center return
	FailSurvivalRate  float64 `yaml:"fail_survival_rate"`  // %, below this is an outright NO-GO
}

// DefaultThresholds returns the stock gate.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSurvivalRate:   60,
		MinMeanCAGR:       0,
		MaxMeanDrawdown:   -40,
		MinStabilityRatio: 0.5,
		FailSurvivalRate:  50,
	}
}

// DecisionInput contains numeric metrics for decision evaluation.
type DecisionInput struct {
	Symbol string

	// Robustness over random windows
	Runs            int
	SurvivalRate    float64 // %
	MeanCAGR        float64 // %
	MeanMaxDrawdown float64 // %, <= 0
	MeanWinRate     float64 // %

	// Sensitivity around the base parameters
	CenterReturn   float64 // %
	MeanReturn     float64 // %
	MinReturn      float64 // %
	StabilityRatio float64
}

// Validate checks that the input can be evaluated.
func (in *DecisionInput) Validate() error {
	if in == nil {
		return ErrNilInput
	}
	if in.Runs <= 0 {
		return ErrNoRuns
	}
	for name, v := range map[string]float64{
		"survival_rate":     in.SurvivalRate,
		"mean_cagr":         in.MeanCAGR,
		"mean_max_drawdown": in.MeanMaxDrawdown,
		"center_return":     in.CenterReturn,
		"mean_return":       in.MeanReturn,
		"min_return":        in.MinReturn,
		"stability_ratio":   in.StabilityRatio,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s", ErrNonFinite, name)
		}
	}
	return nil
}

// CriterionResult represents pass/fail for one criterion.
type CriterionResult struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// DecisionResult contains the final decision with checklist.
type DecisionResult struct {
	Decision   Decision          `json:"decision"`
	Symbol     string            `json:"symbol"`
	DataChecks []CriterionResult `json:"dataChecks,omitempty"` // series sufficiency, checked first
	GOCriteria []CriterionResult `json:"goCriteria"`           // 4 GO criteria
	NOGOChecks []CriterionResult `json:"nogoChecks"`           // 3 NO-GO triggers
}

// Insufficient returns an INSUFFICIENT_DATA result when any data check
// failed, nil otherwise.
func Insufficient(symbol string, checks []CriterionResult) *DecisionResult {
	for _, c := range checks {
		if !c.Pass {
			return &DecisionResult{
				Decision:   DecisionInsufficientData,
				Symbol:     symbol,
				DataChecks: checks,
			}
		}
	}
	return nil
}
