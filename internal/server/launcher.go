package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"auditgate/internal/health"
	"auditgate/internal/netutil"
)

const (
	// settleDelay gives the process a moment before health polling starts;
	// npx-based servers fork twice and bind late.
	settleDelay = 3 * time.Second

	healthBudget   = 20 * time.Second
	startupTimeout = 30 * time.Second
	retryDelay     = 2 * time.Second
)

// Launcher spawns one static-file-server candidate and waits for it to
// become healthy.
type Launcher struct {
	health  *health.Checker
	logger  *slog.Logger
	verbose bool // pipe server stdio through instead of discarding it

	sleep func(time.Duration)
}

func NewLauncher(logger *slog.Logger, verbose bool) *Launcher {
	return &Launcher{
		health:  health.NewChecker(logger),
		logger:  logger,
		verbose: verbose,
		sleep:   time.Sleep,
	}
}

// Start attempts to launch cfg up to maxAttempts times. Environment errors
// (port in use, command not found) abort immediately; transient startup
// failures are retried after a fixed delay.
func (l *Launcher) Start(ctx context.Context, cfg ServerConfig, distDir string, maxAttempts int) (*ActiveServer, error) {
	if cfg.Builtin {
		return l.startBuiltin(ctx, cfg, distDir)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Only the first attempt probes the port: a previous attempt may
		// have legitimately bound it before dying mid-startup.
		if attempt == 1 && !netutil.IsPortAvailable(cfg.Port) {
			return nil, fmt.Errorf("%s: port %d: %w", cfg.Name, cfg.Port, ErrPortInUse)
		}

		if !packageManagerWrappers[cfg.Command] {
			if _, err := exec.LookPath(cfg.Command); err != nil {
				return nil, fmt.Errorf("%s: %q: %w", cfg.Name, cfg.Command, ErrCommandNotFound)
			}
		}

		srv, err := l.spawn(ctx, cfg, distDir)
		if err == nil {
			l.logger.Info("server started", "name", cfg.Name, "url", srv.URL, "pid", srv.PID, "attempt", attempt)
			return srv, nil
		}
		lastErr = err
		l.logger.Warn("server attempt failed", "name", cfg.Name, "attempt", attempt, "error", err)

		if attempt < maxAttempts {
			l.sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", cfg.Name, maxAttempts, lastErr)
}

func (l *Launcher) spawn(ctx context.Context, cfg ServerConfig, distDir string) (*ActiveServer, error) {
	cmd := NewJobCmd(cfg.Command, expandArgs(cfg.Args, distDir, cfg.Port)...)
	if l.verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", cfg.Command, err)
	}

	exited := make(chan struct{})
	go func() {
		cmd.Wait()
		close(exited)
	}()

	srv := &ActiveServer{
		Config: cfg,
		URL:    fmt.Sprintf("http://localhost:%d", cfg.Port),
		PID:    cmd.Process.Pid,
		cmd:    cmd,
		exited: exited,
	}

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	l.sleep(settleDelay)

	select {
	case <-exited:
		return nil, fmt.Errorf("%s exited during startup", cfg.Name)
	default:
	}

	if !l.health.Wait(startupCtx, srv.URL, healthBudget) {
		srv.stop(2 * time.Second)
		return nil, fmt.Errorf("%s never became healthy at %s", cfg.Name, srv.URL)
	}
	return srv, nil
}
