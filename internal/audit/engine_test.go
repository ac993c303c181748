package audit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"auditgate/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noFCPResult() *LighthouseResult {
	return &LighthouseResult{
		RuntimeError: &RuntimeError{Code: RuntimeErrNoFCP, Message: "The page did not paint any content"},
	}
}

func goodResult() *LighthouseResult {
	return &LighthouseResult{
		Categories: map[string]Category{
			"performance": {ID: "performance", Score: 0.92},
		},
	}
}

// recordingRestarter counts restarts and notes after which attempt each one
// happened. A non-empty newURL simulates the replacement server coming up
// somewhere else.
type recordingRestarter struct {
	restarts      int
	afterAttempts []int
	attemptSeen   *int
	newURL        string
}

func (r *recordingRestarter) Restart(ctx context.Context) (string, error) {
	r.restarts++
	r.afterAttempts = append(r.afterAttempts, *r.attemptSeen)
	return r.newURL, nil
}

func newTestEngine(runner AuditFunc) (*Engine, *[]time.Duration) {
	e := NewEngine(true, runner, logger.New("test", false))
	slept := &[]time.Duration{}
	e.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return e, slept
}

func TestNoFCPTriggersSingleRestartThenSucceeds(t *testing.T) {
	attempts := 0
	runner := func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		attempts = attempt
		if attempt <= 2 {
			return noFCPResult(), nil
		}
		return goodResult(), nil
	}

	e, slept := newTestEngine(runner)
	require.Equal(t, 3, e.MaxRetries, "CI default")

	restarter := &recordingRestarter{attemptSeen: &attempts}
	e.SetRestarter(restarter)

	res, err := e.Run(context.Background(), "http://localhost:4173")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "attempt-3 result returned")
	assert.InDelta(t, 0.92, res.Categories["performance"].Score, 0.001)

	assert.Equal(t, 1, restarter.restarts, "exactly one restart")
	assert.Equal(t, []int{2}, restarter.afterAttempts, "restart happens between attempts 2 and 3")

	assert.Equal(t, []time.Duration{e.RetryDelay, 2 * e.RetryDelay}, *slept, "linear backoff")
}

func TestRestartAdoptsReplacementServerURL(t *testing.T) {
	var urls []string
	attempts := 0
	runner := func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		attempts = attempt
		urls = append(urls, url)
		if attempt <= 2 {
			return noFCPResult(), nil
		}
		return goodResult(), nil
	}

	e, _ := newTestEngine(runner)
	restarter := &recordingRestarter{attemptSeen: &attempts, newURL: "http://localhost:5174"}
	e.SetRestarter(restarter)

	var preflightURLs []string
	e.preflight = func(ctx context.Context, url string) error {
		preflightURLs = append(preflightURLs, url)
		return nil
	}

	res, err := e.Run(context.Background(), "http://localhost:4173")
	require.NoError(t, err)
	assert.NotNil(t, res)

	// The replacement comes up on a different port between attempts 2 and
	// 3; the engine must not keep auditing the dead old URL.
	assert.Equal(t, []string{
		"http://localhost:4173",
		"http://localhost:4173",
		"http://localhost:5174",
	}, urls)
	assert.Equal(t, []string{
		"http://localhost:4173", // attempt 1 (attempt 2 skips pre-flight)
		"http://localhost:5174", // attempt 3 validates the new server
	}, preflightURLs)
}

func TestNoRestartAfterFirstFailure(t *testing.T) {
	runner := func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		if attempt == 1 {
			return noFCPResult(), nil
		}
		return goodResult(), nil
	}

	attempts := 0
	e, _ := newTestEngine(func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		attempts = attempt
		return runner(ctx, url, attempt)
	})
	restarter := &recordingRestarter{attemptSeen: &attempts}
	e.SetRestarter(restarter)

	_, err := e.Run(context.Background(), "http://localhost:4173")
	require.NoError(t, err)
	assert.Zero(t, restarter.restarts, "a single no-FCP failure is retried without a restart")
}

func TestGenericFailureNeverRestarts(t *testing.T) {
	attempts := 0
	e, _ := newTestEngine(func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		attempts = attempt
		return nil, errors.New("lighthouse crashed")
	})
	restarter := &recordingRestarter{attemptSeen: &attempts}
	e.SetRestarter(restarter)

	_, err := e.Run(context.Background(), "http://localhost:4173")
	require.Error(t, err)
	assert.Zero(t, restarter.restarts)
	assert.Contains(t, err.Error(), "lighthouse crashed")
	assert.Contains(t, err.Error(), "3 attempts")
}

func TestRetriesAlwaysTerminate(t *testing.T) {
	calls := 0
	e, slept := newTestEngine(func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		calls++
		return noFCPResult(), nil
	})

	_, err := e.Run(context.Background(), "http://localhost:4173")
	require.Error(t, err)
	assert.Equal(t, e.MaxRetries, calls, "hard upper bound on attempts")
	assert.Len(t, *slept, e.MaxRetries-1, "no backoff after the final attempt")
}

func TestLocalModeUsesTwoRetries(t *testing.T) {
	e := NewEngine(false, nil, logger.New("test", false))
	assert.Equal(t, 2, e.MaxRetries)
}

func TestPreflightScheduleSkipsSecondAttempt(t *testing.T) {
	var events []string
	e, _ := newTestEngine(func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		events = append(events, fmt.Sprintf("audit-%d", attempt))
		if attempt < 3 {
			return nil, errors.New("transient")
		}
		return goodResult(), nil
	})
	e.preflight = func(ctx context.Context, url string) error {
		events = append(events, "preflight")
		return nil
	}

	_, err := e.Run(context.Background(), "http://localhost:4173")
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"preflight", "audit-1", "audit-2", "preflight", "audit-3"},
		events, "validate on attempts 1 and 3, skip on 2")
}

func TestPreflightFailureIsRestartEligible(t *testing.T) {
	e, _ := newTestEngine(func(ctx context.Context, url string, attempt int) (*LighthouseResult, error) {
		t.Fatal("runner must not be called when pre-flight fails")
		return nil, nil
	})
	e.preflight = func(ctx context.Context, url string) error {
		return fmt.Errorf("content never rendered")
	}

	_, failure := e.attempt(context.Background(), "http://localhost:4173", 1)
	require.NotNil(t, failure)
	assert.True(t, failure.RestartEligible)
	assert.Contains(t, failure.Reason, "pre-flight")
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(goodResult(), nil))

	f := classify(nil, errors.New("boom"))
	require.NotNil(t, f)
	assert.False(t, f.RestartEligible)

	f = classify(noFCPResult(), nil)
	require.NotNil(t, f)
	assert.True(t, f.RestartEligible)
	assert.Contains(t, f.Reason, RuntimeErrNoFCP)

	f = classify(&LighthouseResult{RuntimeError: &RuntimeError{Code: "ERRORED_DOCUMENT_REQUEST"}}, nil)
	require.NotNil(t, f)
	assert.False(t, f.RestartEligible, "only no-FCP is restart eligible")

	f = classify(&LighthouseResult{}, nil)
	require.NotNil(t, f)
	assert.Contains(t, f.Reason, "no categories")
}

func TestCategoriesForType(t *testing.T) {
	cats, err := CategoriesForType("performance")
	require.NoError(t, err)
	assert.Equal(t, []string{"performance"}, cats)

	cats, err = CategoriesForType("lighthouse")
	require.NoError(t, err)
	assert.Nil(t, cats)

	_, err = CategoriesForType("a11y")
	assert.Error(t, err)
}
