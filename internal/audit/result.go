package audit

import (
	"encoding/json"
	"fmt"
	"os"
)

// RuntimeErrNoFCP is Lighthouse's code for "the page never painted any
// content". It gets its own failure class because the usual culprit is a
// stuck preview server, not the audit tool.
const RuntimeErrNoFCP = "NO_FCP"

// LighthouseResult is the parsed report. Beyond the runtime-error code it is
// treated as opaque and handed to the budget enforcer as-is.
type LighthouseResult struct {
	RequestedURL string              `json:"requestedUrl"`
	FinalURL     string              `json:"finalUrl"`
	FetchTime    string              `json:"fetchTime"`
	Categories   map[string]Category `json:"categories"`
	Audits       map[string]Audit    `json:"audits"`
	RuntimeError *RuntimeError       `json:"runtimeError,omitempty"`
}

type Category struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"` // 0..1
}

type Audit struct {
	ID           string   `json:"id"`
	Score        *float64 `json:"score"`
	NumericValue float64  `json:"numericValue"`
	DisplayValue string   `json:"displayValue"`
}

type RuntimeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CategoryScore returns a category score on the conventional 0-100 scale.
func (r *LighthouseResult) CategoryScore(id string) (float64, bool) {
	c, ok := r.Categories[id]
	if !ok {
		return 0, false
	}
	return c.Score * 100, true
}

// Metric returns an audit's numeric value (e.g. first-contentful-paint in
// milliseconds).
func (r *LighthouseResult) Metric(id string) (float64, bool) {
	a, ok := r.Audits[id]
	if !ok {
		return 0, false
	}
	return a.NumericValue, true
}

// ParseResultFile reads a Lighthouse JSON report from disk.
func ParseResultFile(path string) (*LighthouseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var res LighthouseResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("malformed lighthouse report %s: %w", path, err)
	}
	return &res, nil
}

// AttemptFailure classifies one failed audit attempt. RestartEligible is
// decided here, at the point the failure is detected, so downstream code
// never re-derives it from error strings.
type AttemptFailure struct {
	Reason          string
	RestartEligible bool
}

func (f *AttemptFailure) Error() string {
	return f.Reason
}

// classify turns a runner outcome into a tagged failure, or nil on success.
func classify(res *LighthouseResult, err error) *AttemptFailure {
	if err != nil {
		return &AttemptFailure{Reason: err.Error()}
	}
	if res == nil {
		return &AttemptFailure{Reason: "audit produced no result"}
	}
	if res.RuntimeError != nil && res.RuntimeError.Code != "" {
		return &AttemptFailure{
			Reason:          fmt.Sprintf("lighthouse runtime error %s: %s", res.RuntimeError.Code, res.RuntimeError.Message),
			RestartEligible: res.RuntimeError.Code == RuntimeErrNoFCP,
		}
	}
	if len(res.Categories) == 0 {
		return &AttemptFailure{Reason: "audit result has no categories"}
	}
	return nil
}
