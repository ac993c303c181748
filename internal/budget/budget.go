package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"auditgate/internal/audit"
)

// ErrBudgetExceeded is what the CLI maps to exit code 1. Budget violations
// are data inside the report; this error is only raised at the very edge.
var ErrBudgetExceeded = errors.New("performance budget exceeded")

// Document is the declarative budget, read-only during an enforcement run.
type Document struct {
	Metadata     Metadata               `json:"metadata"`
	Environments map[string]Environment `json:"environments"`
	Budgets      map[string]Metric      `json:"budgets"`
	Rules        Rules                  `json:"rules"`
}

type Metadata struct {
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type Environment struct {
	Multiplier float64 `json:"multiplier"`
}

// Metric declares one budget. Exactly one of Min/Max should be set: Min for
// score-like metrics (higher is better), Max for latency/size-like metrics
// (lower is better).
type Metric struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Target float64  `json:"target"`
	Unit   string   `json:"unit"`
}

type Rules struct {
	FailOn FailOn `json:"failOn"`
}

type FailOn struct {
	BudgetExceeded bool `json:"budgetExceeded"`
}

// Load reads and validates the budget document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("budget document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed budget document %s: %w", path, err)
	}
	if len(doc.Budgets) == 0 {
		return nil, fmt.Errorf("budget document %s declares no budgets", path)
	}
	for name, m := range doc.Budgets {
		if m.Min == nil && m.Max == nil {
			return nil, fmt.Errorf("budget %q has neither min nor max", name)
		}
	}
	return &doc, nil
}

// Multiplier resolves an environment profile, defaulting to 1.0 for unknown
// environments.
func (d *Document) Multiplier(environment string) float64 {
	if env, ok := d.Environments[environment]; ok && env.Multiplier > 0 {
		return env.Multiplier
	}
	return 1.0
}

// ObservedFromLighthouse extracts the observed value for every declared
// budget from an audit report. Metrics named "<category>-score" read the
// category score (0-100); everything else reads the audit's numeric value.
// Budgets with no matching data are omitted.
func ObservedFromLighthouse(res *audit.LighthouseResult, doc *Document) map[string]float64 {
	observed := make(map[string]float64, len(doc.Budgets))
	for name := range doc.Budgets {
		if cat, ok := strings.CutSuffix(name, "-score"); ok {
			if v, found := res.CategoryScore(cat); found {
				observed[name] = v
			}
			continue
		}
		if v, found := res.Metric(name); found {
			observed[name] = v
		}
	}
	return observed
}
