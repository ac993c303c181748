package health_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"auditgate/internal/health"

	"github.com/stretchr/testify/assert"
)

func newChecker() *health.Checker {
	c := health.NewChecker(nil)
	c.Interval = 20 * time.Millisecond
	return c
}

func TestWaitImmediateSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, newChecker().Wait(context.Background(), srv.URL, time.Second))
}

func TestWaitRecoversFromColdStart(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.True(t, newChecker().Wait(context.Background(), srv.URL, time.Second))
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	start := time.Now()
	ok := newChecker().Wait(context.Background(), srv.URL, 150*time.Millisecond)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second, "must not outlive the budget")
}

func TestWaitDeadlineGatesFinalProbe(t *testing.T) {
	// Interval 50ms with a 125ms budget allows probes at roughly 0, 50 and
	// 100ms; a server that only turns healthy on the fourth request sits past
	// the deadline and must never be reached. When the budget lands exactly
	// on a probe instant, the expired context wins and Wait resolves false.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) >= 4 {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := health.NewChecker(nil)
	c.Interval = 50 * time.Millisecond

	assert.False(t, c.Wait(context.Background(), srv.URL, 125*time.Millisecond))
	assert.LessOrEqual(t, calls.Load(), int32(3), "no probe may start after the budget")
}

func TestWaitConnectionRefused(t *testing.T) {
	// Nothing listens here; the checker must resolve false, not error out.
	ok := newChecker().Wait(context.Background(), "http://localhost:1", 100*time.Millisecond)
	assert.False(t, ok)
}
