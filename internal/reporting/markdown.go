package reporting

import (
	"fmt"
	"strings"
	"time"

	"equal-weight-index/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Equal-Weight Index Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.Run.RunID))

	// Run metadata
	sb.WriteString("## Run\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Universe Size | %d |\n", r.Run.UniverseSize))
	sb.WriteString(fmt.Sprintf("| Base Level | %.2f |\n", r.Run.BaseLevel))
	sb.WriteString(fmt.Sprintf("| Start Date | %s |\n", formatDate(r.Run.StartDate)))
	sb.WriteString(fmt.Sprintf("| End Date | %s |\n", formatDate(r.Run.EndDate)))
	sb.WriteString(fmt.Sprintf("| Trading Days | %d |\n", r.Run.Days))
	sb.WriteString("\n")

	// Summary
	sb.WriteString("## Summary\n\n")
	if len(r.Daily) > 0 {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		for _, m := range SummaryMetrics(r.Summary) {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", m.Metric, m.Value))
		}
		last := r.Daily[len(r.Daily)-1]
		sb.WriteString(fmt.Sprintf("| Final Index Level | %.4f |\n", last.IndexLevel))
	} else {
		sb.WriteString("No trading days in run.\n")
	}
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Treat the index values with care.\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors (always shown if present, even without sufficiency checks)
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// Composition changes
	sb.WriteString("## Composition Changes\n\n")
	changes := CompositionChanges(r.Daily)
	if len(changes) > 0 {
		sb.WriteString("| Rebalance Date | Added | Removed | Intersection with Previous |\n")
		sb.WriteString("|----------------|-------|---------|----------------------------|\n")
		for _, c := range changes {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				c.RebalanceDate, c.TickersAdded, c.TickersRemoved, c.IntersectionWithPrevious))
		}
	} else {
		sb.WriteString("No composition changes.\n")
	}
	sb.WriteString("\n")

	// Verification
	sb.WriteString("## Verification\n\n")
	if len(r.VerificationIssues) == 0 {
		sb.WriteString("No issues found.\n")
	} else {
		for _, issue := range r.VerificationIssues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.DateLayout)
}
