package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders DecisionResult as Markdown string.
func RenderMarkdown(result *DecisionResult) string {
	var sb strings.Builder

	// Decision header
	sb.WriteString("# Decision Gate Report\n\n")
	if result.Symbol != "" {
		sb.WriteString(fmt.Sprintf("Symbol: %s\n\n", result.Symbol))
	}
	sb.WriteString(fmt.Sprintf("## Decision: %s\n\n", result.Decision))

	if len(result.DataChecks) > 0 {
		sb.WriteString("## Data Sufficiency\n\n")
		sb.WriteString("| # | Check | Threshold | Actual | Pass |\n")
		sb.WriteString("|---|-------|-----------|--------|------|\n")
		for i, c := range result.DataChecks {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
				i+1, c.Name, c.Threshold, c.Actual, passLabel(c.Pass)))
		}
		sb.WriteString("\n")
	}

	if result.Decision == DecisionInsufficientData {
		sb.WriteString("## Summary\n\n")
		sb.WriteString("Analyses were not run; the stored series cannot support a decision:\n")
		for _, c := range result.DataChecks {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- %s: %s (need %s)\n", c.Name, c.Actual, c.Threshold))
			}
		}
		return sb.String()
	}

	// GO Criteria table
	sb.WriteString("## GO Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	for i, c := range result.GOCriteria {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passLabel(c.Pass)))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("GO Criteria: %d/%d passed\n\n", count(result.GOCriteria, true), len(result.GOCriteria)))

	// NO-GO Triggers table
	sb.WriteString("## NO-GO Triggers\n\n")
	sb.WriteString("| # | Trigger | Condition | Actual | Status |\n")
	sb.WriteString("|---|---------|-----------|--------|--------|\n")
	for i, c := range result.NOGOChecks {
		statusStr := "NOT TRIGGERED"
		if !c.Pass { // Pass=false means triggered
			statusStr = "TRIGGERED"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, statusStr))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("NO-GO Triggers: %d/%d triggered\n\n", count(result.NOGOChecks, false), len(result.NOGOChecks)))

	// Summary
	sb.WriteString("## Summary\n\n")
	if result.Decision == DecisionGO {
		sb.WriteString("All GO criteria passed and no NO-GO triggers fired.\n")
		sb.WriteString("The parameters held up across random windows and neighbouring settings.\n")
	} else {
		sb.WriteString("Decision is NO-GO due to:\n")
		for _, c := range result.GOCriteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- GO criterion failed: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
		for _, c := range result.NOGOChecks {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- NO-GO trigger fired: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	}

	return sb.String()
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

// count returns how many criteria have the given pass state.
func count(cs []CriterionResult, pass bool) int {
	n := 0
	for _, c := range cs {
		if c.Pass == pass {
			n++
		}
	}
	return n
}
