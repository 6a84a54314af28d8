// Package sufficiency checks that stored price series can support a decision
// before any analysis runs on them.
package sufficiency

import (
	"errors"
	"fmt"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/regime"
)

// Check represents one data sufficiency criterion.
type Check struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// Result contains all checks.
type Result struct {
	Checks  []Check `json:"checks"`
	AllPass bool    `json:"allPass"`
}

// Thresholds are the minimum data requirements.
type Thresholds struct {
	MinBars     int `yaml:"min_bars"`      // primary bars inside the window
	WarmupWeeks int `yaml:"warmup_weeks"`  // reference weeks before the window start
	MaxGapDays  int `yaml:"max_gap_days"`  // calendar days between consecutive bars
	MinSpanDays int `yaml:"min_span_days"` // primary history span, at least the longest robustness window
}

// DefaultThresholds returns a one-quarter minimum with a full RSI warm-up.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinBars:     60,
		WarmupWeeks: regime.RSIPeriod + 2,
		MaxGapDays:  7,
		MinSpanDays: 120,
	}
}

// ErrInvalidThresholds is returned for non-positive thresholds.
var ErrInvalidThresholds = errors.New("invalid sufficiency thresholds")

// Validate checks that every threshold is usable.
func (t Thresholds) Validate() error {
	if t.MinBars < 1 || t.MaxGapDays < 1 || t.WarmupWeeks < 0 || t.MinSpanDays < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidThresholds, t)
	}
	return nil
}

// Checker validates series against thresholds.
type Checker struct {
	th Thresholds
}

// NewChecker creates a checker.
func NewChecker(th Thresholds) *Checker {
	return &Checker{th: th}
}

// Check runs every criterion over normalized primary and reference series.
func (c *Checker) Check(primary, reference []domain.PriceBar, params domain.SimulationParams) *Result {
	result := &Result{
		Checks:  make([]Check, 0, 6),
		AllPass: true,
	}

	window := inWindow(primary, params.StartDate, params.EndDate)

	for _, check := range []Check{
		c.checkWindowBars(window),
		c.checkWindowStart(window, params.StartDate),
		c.checkWarmup(reference, params.StartDate),
		c.checkGaps(window),
		c.checkReferenceCoverage(window, reference),
		c.checkSpan(primary),
	} {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
		}
	}

	return result
}

// checkWindowBars: primary bars inside [start, end] >= MinBars.
func (c *Checker) checkWindowBars(window []domain.PriceBar) Check {
	return Check{
		Name:      "Primary bars in window",
		Threshold: fmt.Sprintf(">= %d", c.th.MinBars),
		Actual:    fmt.Sprintf("%d", len(window)),
		Pass:      len(window) >= c.th.MinBars,
	}
}

// checkWindowStart: the first bar in the window is within MaxGapDays of start.
func (c *Checker) checkWindowStart(window []domain.PriceBar, start time.Time) Check {
	check := Check{
		Name:      "Window start coverage",
		Threshold: fmt.Sprintf("first bar <= start + %dd", c.th.MaxGapDays),
		Actual:    "no bars",
	}
	if len(window) == 0 {
		return check
	}
	lag := days(domain.Day(start), window[0].Date)
	check.Actual = fmt.Sprintf("%s (+%dd)", window[0].Date.Format(domain.DateLayout), lag)
	check.Pass = lag <= c.th.MaxGapDays
	return check
}

// checkWarmup: distinct reference weeks before start >= WarmupWeeks, so the
// weekly RSI is defined on the first simulated day.
func (c *Checker) checkWarmup(reference []domain.PriceBar, start time.Time) Check {
	weeks := make(map[string]struct{})
	cutoff := domain.Day(start)
	for _, b := range reference {
		if !b.Date.Before(cutoff) {
			break
		}
		weeks[domain.WeekKey(b.Date)] = struct{}{}
	}
	return Check{
		Name:      "Reference warm-up",
		Threshold: fmt.Sprintf(">= %d weeks", c.th.WarmupWeeks),
		Actual:    fmt.Sprintf("%d weeks", len(weeks)),
		Pass:      len(weeks) >= c.th.WarmupWeeks,
	}
}

// checkGaps: no calendar gap between consecutive window bars exceeds MaxGapDays.
func (c *Checker) checkGaps(window []domain.PriceBar) Check {
	if len(window) < 2 {
		return Check{
			Name:      "Max gap between bars",
			Threshold: fmt.Sprintf("<= %dd", c.th.MaxGapDays),
			Actual:    "fewer than 2 bars",
		}
	}

	maxGap := 0
	var at time.Time
	for i := 1; i < len(window); i++ {
		if g := days(window[i-1].Date, window[i].Date); g > maxGap {
			maxGap, at = g, window[i].Date
		}
	}
	return Check{
		Name:      "Max gap between bars",
		Threshold: fmt.Sprintf("<= %dd", c.th.MaxGapDays),
		Actual:    fmt.Sprintf("%dd before %s", maxGap, at.Format(domain.DateLayout)),
		Pass:      maxGap <= c.th.MaxGapDays,
	}
}

// checkReferenceCoverage: the reference series reaches the last window bar.
func (c *Checker) checkReferenceCoverage(window, reference []domain.PriceBar) Check {
	check := Check{
		Name:      "Reference coverage",
		Threshold: "last reference bar >= last window bar",
		Actual:    "no bars",
	}
	if len(window) == 0 || len(reference) == 0 {
		return check
	}
	last, refLast := window[len(window)-1].Date, reference[len(reference)-1].Date
	check.Actual = fmt.Sprintf("%s vs %s", refLast.Format(domain.DateLayout), last.Format(domain.DateLayout))
	check.Pass = !refLast.Before(last)
	return check
}

// checkSpan: primary history spans >= MinSpanDays calendar days.
func (c *Checker) checkSpan(primary []domain.PriceBar) Check {
	span := 0
	if len(primary) > 1 {
		span = days(primary[0].Date, primary[len(primary)-1].Date)
	}
	return Check{
		Name:      "History span",
		Threshold: fmt.Sprintf(">= %d days", c.th.MinSpanDays),
		Actual:    fmt.Sprintf("%d days", span),
		Pass:      span >= c.th.MinSpanDays,
	}
}

func inWindow(bars []domain.PriceBar, start, end time.Time) []domain.PriceBar {
	start, end = domain.Day(start), domain.Day(end)
	lo, hi := len(bars), len(bars)
	for i, b := range bars {
		if !b.Date.Before(start) {
			lo = i
			break
		}
	}
	for i := lo; i < len(bars); i++ {
		if bars[i].Date.After(end) {
			hi = i
			break
		}
	}
	return bars[lo:hi]
}

func days(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
