package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultInterval is the pause between probes while a server cold-starts.
	DefaultInterval = 1 * time.Second

	// probeTimeout bounds a single GET; the overall budget is the caller's.
	probeTimeout = 5 * time.Second
)

// Checker polls an HTTP URL until it answers successfully or a budget elapses.
type Checker struct {
	Interval time.Duration
	client   *http.Client
	logger   *slog.Logger
}

func NewChecker(logger *slog.Logger) *Checker {
	return &Checker{
		Interval: DefaultInterval,
		client:   &http.Client{Timeout: probeTimeout},
		logger:   logger,
	}
}

// Wait polls url on a fixed cadence until it returns a success status or
// timeout elapses. Connection refusals during cold-start are expected and
// retried. Never returns an error and never outlives the budget.
func (c *Checker) Wait(ctx context.Context, url string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := retry.Do(ctx, retry.NewConstant(c.Interval), func(ctx context.Context) error {
		if err := c.probe(ctx, url); err != nil {
			if c.logger != nil {
				c.logger.Debug("health probe failed", "url", url, "error", err)
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	return err == nil
}

func (c *Checker) probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
