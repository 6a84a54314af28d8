package decision

import "fmt"

// Evaluator evaluates decision criteria.
type Evaluator struct {
	th Thresholds
}

// NewEvaluator creates a new decision evaluator.
func NewEvaluator(th Thresholds) *Evaluator {
	return &Evaluator{th: th}
}

// Evaluate produces DecisionResult from DecisionInput.
// GO if ALL criteria pass and NO NO-GO triggers.
// NO-GO if ANY criterion fails or ANY trigger fires.
func (e *Evaluator) Evaluate(input DecisionInput) (*DecisionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	goCriteria := e.evaluateGOCriteria(input)
	nogoChecks := e.evaluateNOGOTriggers(input)

	decision := DecisionGO
	for _, c := range append(append([]CriterionResult{}, goCriteria...), nogoChecks...) {
		if !c.Pass {
			decision = DecisionNOGO
			break
		}
	}

	return &DecisionResult{
		Decision:   decision,
		Symbol:     input.Symbol,
		GOCriteria: goCriteria,
		NOGOChecks: nogoChecks,
	}, nil
}

// evaluateGOCriteria evaluates the 4 GO criteria.
func (e *Evaluator) evaluateGOCriteria(input DecisionInput) []CriterionResult {
	criteria := make([]CriterionResult, 4)

	// 1. Enough windows end above their start equity
	criteria[0] = CriterionResult{
		Name:      "Window survival",
		Threshold: fmt.Sprintf(">= %.1f%%", e.th.MinSurvivalRate),
		Actual:    fmt.Sprintf("%.2f%% of %d", input.SurvivalRate, input.Runs),
		Pass:      input.SurvivalRate >= e.th.MinSurvivalRate,
	}

	// 2. Positive mean annualized return
	criteria[1] = CriterionResult{
		Name:      "Mean CAGR",
		Threshold: fmt.Sprintf("> %.2f%%", e.th.MinMeanCAGR),
		Actual:    fmt.Sprintf("%.2f%%", input.MeanCAGR),
		Pass:      input.MeanCAGR > e.th.MinMeanCAGR,
	}

	// 3. Drawdowns stay bounded
	criteria[2] = CriterionResult{
		Name:      "Mean max drawdown",
		Threshold: fmt.Sprintf(">= %.2f%%", e.th.MaxMeanDrawdown),
		Actual:    fmt.Sprintf("%.2f%%", input.MeanMaxDrawdown),
		Pass:      input.MeanMaxDrawdown >= e.th.MaxMeanDrawdown,
	}

	// 4. Neighbouring parameters keep most of the return
	criteria[3] = CriterionResult{
		Name:      "Parameter stability",
		Threshold: fmt.Sprintf("center > 0 AND ratio >= %.2f", e.th.MinStabilityRatio),
		Actual:    fmt.Sprintf("center=%.2f%%, ratio=%.2f", input.CenterReturn, input.StabilityRatio),
		Pass:      input.CenterReturn > 0 && input.StabilityRatio >= e.th.MinStabilityRatio,
	}

	return criteria
}

// evaluateNOGOTriggers evaluates the 3 NO-GO triggers.
// Pass=true means NOT triggered, Pass=false means triggered.
func (e *Evaluator) evaluateNOGOTriggers(input DecisionInput) []CriterionResult {
	checks := make([]CriterionResult, 3)

	// 1. Most windows lose money
	checks[0] = CriterionResult{
		Name:      "Most windows lose",
		Threshold: fmt.Sprintf("< %.1f%%", e.th.FailSurvivalRate),
		Actual:    fmt.Sprintf("%.2f%%", input.SurvivalRate),
		Pass:      input.SurvivalRate >= e.th.FailSurvivalRate,
	}

	// 2. Base parameters lose money over the full window
	checks[1] = CriterionResult{
		Name:      "Base parameters lose",
		Threshold: "center <= 0",
		Actual:    fmt.Sprintf("%.2f%%", input.CenterReturn),
		Pass:      input.CenterReturn > 0,
	}

	// 3. Edge disappears under perturbation
	triggered := input.CenterReturn > 0 && input.MeanReturn <= 0
	checks[2] = CriterionResult{
		Name:      "Edge disappears under perturbation",
		Threshold: "center > 0 AND grid mean <= 0",
		Actual:    fmt.Sprintf("center=%.2f%%, mean=%.2f%%, min=%.2f%%", input.CenterReturn, input.MeanReturn, input.MinReturn),
		Pass:      !triggered,
	}

	return checks
}
