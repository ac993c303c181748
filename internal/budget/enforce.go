package budget

import (
	"fmt"
	"sort"
	"time"
)

type Status string

const (
	StatusExcellent Status = "excellent" // meets or betters the target
	StatusGood      Status = "good"      // within threshold, short of target
	StatusFail      Status = "fail"      // outside the threshold
)

// CheckResult is one metric's classification against its scaled budget.
type CheckResult struct {
	Metric    string  `json:"metric"`
	Status    Status  `json:"status"`
	Message   string  `json:"message"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Target    float64 `json:"target"`
	Unit      string  `json:"unit"`
}

type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failed   int `json:"failed"`
}

// Report aggregates one enforcement run. ShouldFail already has the
// failOn.budgetExceeded rule applied.
type Report struct {
	Environment string        `json:"environment"`
	Multiplier  float64       `json:"multiplier"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Version     string        `json:"version"`
	Results     []CheckResult `json:"results"`
	Summary     Summary       `json:"summary"`
	ShouldFail  bool          `json:"shouldFail"`
}

// Evaluate is a pure function of its inputs: no process or browser
// interaction, no error paths. Budgets without an observed value are
// skipped.
func Evaluate(doc *Document, observed map[string]float64, environment string) *Report {
	multiplier := doc.Multiplier(environment)

	report := &Report{
		Environment: environment,
		Multiplier:  multiplier,
		GeneratedAt: time.Now().UTC(),
		Version:     doc.Metadata.Version,
	}

	names := make([]string, 0, len(doc.Budgets))
	for name := range doc.Budgets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := observed[name]
		if !ok {
			continue
		}
		result := classify(name, doc.Budgets[name], value, multiplier)
		report.Results = append(report.Results, result)

		report.Summary.Total++
		switch result.Status {
		case StatusExcellent:
			report.Summary.Passed++
		case StatusGood:
			report.Summary.Warnings++
		case StatusFail:
			report.Summary.Failed++
		}
	}

	report.ShouldFail = doc.Rules.FailOn.BudgetExceeded && report.Summary.Failed > 0
	return report
}

// classify scales the budget by the environment multiplier and places the
// observed value. A multiplier above 1 always loosens the budget: max-bound
// metrics multiply, min-bound metrics divide.
func classify(name string, m Metric, value, multiplier float64) CheckResult {
	var status Status
	var threshold, target float64
	var comparison string

	switch {
	case m.Max != nil: // lower is better (latency, size)
		threshold = *m.Max * multiplier
		target = m.Target * multiplier
		comparison = "under"
		switch {
		case value <= target:
			status = StatusExcellent
		case value <= threshold:
			status = StatusGood
		default:
			status = StatusFail
		}
	case m.Min != nil: // higher is better (scores)
		threshold = *m.Min / multiplier
		target = m.Target / multiplier
		comparison = "above"
		switch {
		case value >= target:
			status = StatusExcellent
		case value >= threshold:
			status = StatusGood
		default:
			status = StatusFail
		}
	default:
		// Load rejects bound-less metrics, but Evaluate must stay total
		// for hand-built documents.
		return CheckResult{
			Metric:  name,
			Status:  StatusFail,
			Message: fmt.Sprintf("%s declares neither min nor max", name),
			Value:   value,
			Unit:    m.Unit,
		}
	}

	var message string
	switch status {
	case StatusExcellent:
		message = fmt.Sprintf("%s is %.6g%s, meets the target of %.6g%s", name, value, m.Unit, target, m.Unit)
	case StatusGood:
		message = fmt.Sprintf("%s is %.6g%s, within budget but short of the %.6g%s target", name, value, m.Unit, target, m.Unit)
	case StatusFail:
		message = fmt.Sprintf("%s is %.6g%s, budget requires %s %.6g%s", name, value, m.Unit, comparison, threshold, m.Unit)
	}

	return CheckResult{
		Metric:    name,
		Status:    status,
		Message:   message,
		Value:     value,
		Threshold: threshold,
		Target:    target,
		Unit:      m.Unit,
	}
}
