package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetryDelay is the base of the linear backoff: the wait before
// attempt n+1 is DefaultRetryDelay * n.
const DefaultRetryDelay = 5 * time.Second

type state string

const (
	stateAttempting       state = "ATTEMPTING"
	stateRetrying         state = "RETRYING"
	stateRestartingServer state = "RESTARTING_SERVER"
	stateExhausted        state = "EXHAUSTED"
	stateSuccess          state = "SUCCESS"
)

// AuditFunc runs one audit attempt. The concrete implementation is
// Runner.Run; tests substitute their own.
type AuditFunc func(ctx context.Context, url string, attempt int) (*LighthouseResult, error)

// Restarter tears down and relaunches the managed server. Teardown must be
// fully awaited before the replacement is treated as ready. The replacement
// may come up on a different candidate or port, so Restart reports the new
// URL and the engine audits that from then on.
type Restarter interface {
	Restart(ctx context.Context) (url string, err error)
}

// Engine drives the bounded retry loop around the audit tool, including the
// restart-the-server escape hatch for no-FCP failures.
type Engine struct {
	MaxRetries int
	RetryDelay time.Duration
	CI         bool

	runner    AuditFunc
	preflight func(ctx context.Context, url string) error
	restarter Restarter
	logger    *slog.Logger
	sleep     func(time.Duration)

	attempts int
}

// Attempts reports how many attempts the last Run consumed.
func (e *Engine) Attempts() int {
	return e.attempts
}

func NewEngine(ci bool, runner AuditFunc, logger *slog.Logger) *Engine {
	maxRetries := 2
	if ci {
		maxRetries = 3
	}
	return &Engine{
		MaxRetries: maxRetries,
		RetryDelay: DefaultRetryDelay,
		CI:         ci,
		runner:     runner,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// SetPreflight installs a render validation run before audit attempts.
func (e *Engine) SetPreflight(f func(ctx context.Context, url string) error) {
	e.preflight = f
}

// SetRestarter enables the server-restart escape hatch.
func (e *Engine) SetRestarter(r Restarter) {
	e.restarter = r
}

// Run audits url, retrying with linear backoff up to MaxRetries attempts.
// A no-FCP class failure after at least two attempts additionally restarts
// the managed server before the next try. The final error names the last
// failure.
func (e *Engine) Run(ctx context.Context, url string) (*LighthouseResult, error) {
	var last *AttemptFailure

	for attempt := 1; attempt <= e.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.attempts = attempt
		e.logger.Info("audit attempt", "state", stateAttempting, "attempt", attempt, "max", e.MaxRetries, "url", url)

		res, failure := e.attempt(ctx, url, attempt)
		if failure == nil {
			e.logger.Info("audit succeeded", "state", stateSuccess, "attempt", attempt)
			return res, nil
		}
		last = failure
		e.logger.Warn("audit attempt failed", "attempt", attempt, "reason", failure.Reason, "restart_eligible", failure.RestartEligible)

		if attempt == e.MaxRetries {
			break
		}

		if failure.RestartEligible && attempt >= 2 && e.restarter != nil {
			e.logger.Info("restarting server before retry", "state", stateRestartingServer, "reason", failure.Reason)
			newURL, err := e.restarter.Restart(ctx)
			if err != nil {
				e.logger.Warn("server restart failed, retrying anyway", "error", err)
			} else if newURL != "" && newURL != url {
				e.logger.Info("server replaced, auditing new URL", "old", url, "new", newURL)
				url = newURL
			}
		}

		delay := e.RetryDelay * time.Duration(attempt)
		e.logger.Info("backing off", "state", stateRetrying, "delay", delay)
		e.sleep(delay)
	}

	e.logger.Error("audit retries exhausted", "state", stateExhausted, "attempts", e.MaxRetries)
	return nil, fmt.Errorf("audit of %s failed after %d attempts: %s", url, e.MaxRetries, last.Reason)
}

// attempt runs the optional pre-flight validation plus one audit call.
// Pre-flight is skipped on attempt 2 only: a single failure is usually
// transient, while repeated failures warrant re-checking the environment.
func (e *Engine) attempt(ctx context.Context, url string, attempt int) (*LighthouseResult, *AttemptFailure) {
	if e.preflight != nil && attempt != 2 {
		if err := e.preflight(ctx, url); err != nil {
			// Render failures share the no-FCP recovery path.
			return nil, &AttemptFailure{
				Reason:          fmt.Sprintf("pre-flight render validation: %v", err),
				RestartEligible: true,
			}
		}
	}

	res, err := e.runner(ctx, url, attempt)
	if failure := classify(res, err); failure != nil {
		return nil, failure
	}
	return res, nil
}
