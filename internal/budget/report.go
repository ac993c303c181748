package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// WriteReport persists the full per-metric report as JSON.
func WriteReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var statusIcons = map[Status]string{
	StatusExcellent: "✅",
	StatusGood:      "⚠️",
	StatusFail:      "❌",
}

// WritePRComment renders the human-readable Markdown summary posted on pull
// requests.
func WritePRComment(path string, report *Report) error {
	var b strings.Builder

	b.WriteString("# Performance Budget Report\n\n")
	fmt.Fprintf(&b, "**Environment:** %s (multiplier %.2f)\n", report.Environment, report.Multiplier)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("| Metric | Value | Target | Threshold | Status |\n")
	b.WriteString("|--------|-------|--------|-----------|--------|\n")
	for _, r := range report.Results {
		fmt.Fprintf(&b, "| %s | %.6g%s | %.6g%s | %.6g%s | %s %s |\n",
			r.Metric, r.Value, r.Unit, r.Target, r.Unit, r.Threshold, r.Unit,
			statusIcons[r.Status], r.Status)
	}

	fmt.Fprintf(&b, "\n**Summary:** %d checked — %d passed, %d warnings, %d failed\n",
		report.Summary.Total, report.Summary.Passed, report.Summary.Warnings, report.Summary.Failed)

	if report.ShouldFail {
		b.WriteString("\n🚫 Budget exceeded — this build fails the performance gate.\n")
	} else if report.Summary.Failed > 0 {
		b.WriteString("\nBudget exceeded, but failOn.budgetExceeded is disabled; build passes.\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}
