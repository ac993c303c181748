package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// launchAttempts per candidate before falling through to the next one.
	launchAttempts = 2

	// stopGrace between SIGTERM and the forced kill.
	stopGrace = 5 * time.Second

	// minIndexSize guards against a truncated build slipping through.
	minIndexSize = 100
)

// Manager orchestrates the candidate fallback list and owns every spawned
// server process. All registry mutation goes through Start/Stop methods.
type Manager struct {
	DistDir string

	candidates []ServerConfig
	logger     *slog.Logger

	mu     sync.Mutex
	active map[string]*ActiveServer

	lastPreferredPort int

	// start is swapped out by tests
	start func(ctx context.Context, cfg ServerConfig, distDir string, maxAttempts int) (*ActiveServer, error)
}

func NewManager(distDir string, candidates []ServerConfig, logger *slog.Logger, verbose bool) *Manager {
	launcher := NewLauncher(logger, verbose)
	return &Manager{
		DistDir:    distDir,
		candidates: candidates,
		logger:     logger,
		active:     make(map[string]*ActiveServer),
		start:      launcher.Start,
	}
}

// StartBestAvailable walks the candidate list in ascending priority order and
// returns the first server that comes up healthy. A preferred port moves the
// matching candidate to the front without disturbing the relative order of
// the rest. If every candidate fails, the error enumerates each per-config
// failure.
func (m *Manager) StartBestAvailable(ctx context.Context, preferredPort int) (*ActiveServer, error) {
	ordered := make([]ServerConfig, len(m.candidates))
	copy(ordered, m.candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	ordered = reorderForPort(ordered, preferredPort)
	m.lastPreferredPort = preferredPort

	var failures []string
	for _, cfg := range ordered {
		if srv := m.lookup(cfg.Name); srv != nil {
			// Never launch a second instance of a name already tracked.
			return srv, nil
		}

		m.logger.Info("trying server candidate", "name", cfg.Name, "priority", cfg.Priority, "description", cfg.Description)
		srv, err := m.start(ctx, cfg, m.DistDir, launchAttempts)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", cfg.Name, err))
			continue
		}

		m.mu.Lock()
		m.active[cfg.Name] = srv
		m.mu.Unlock()
		return srv, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoCandidates, strings.Join(failures, "; "))
}

// Restart tears the active servers down completely, then brings the best
// candidate back up. Teardown is fully awaited before the replacement is
// started so a health check can never hit the old instance.
func (m *Manager) Restart(ctx context.Context) (*ActiveServer, error) {
	m.logger.Info("restarting managed server")
	m.StopAll()
	return m.StartBestAvailable(ctx, m.lastPreferredPort)
}

// StopAll gracefully terminates every registered server, force-killing any
// process still alive after the grace period, and clears the registry.
// Calling it with nothing registered is a no-op.
func (m *Manager) StopAll() {
	m.mu.Lock()
	servers := make([]*ActiveServer, 0, len(m.active))
	for _, srv := range m.active {
		servers = append(servers, srv)
	}
	m.active = make(map[string]*ActiveServer)
	m.mu.Unlock()

	for _, srv := range servers {
		m.logger.Info("stopping server", "name", srv.Config.Name, "pid", srv.PID)
		srv.stop(stopGrace)
	}
}

// ActiveCount reports how many servers the registry currently tracks.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (m *Manager) lookup(name string) *ActiveServer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[name]
}

// ValidateDist fails fast when the build output is missing or truncated,
// instead of letting every candidate fail individually for the same root
// cause.
func (m *Manager) ValidateDist() error {
	info, err := os.Stat(m.DistDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: directory %s does not exist (run the build first)", ErrDistMissing, m.DistDir)
	}
	index := filepath.Join(m.DistDir, "index.html")
	fi, err := os.Stat(index)
	if err != nil {
		return fmt.Errorf("%w: %s not found", ErrDistMissing, index)
	}
	if fi.Size() < minIndexSize {
		return fmt.Errorf("%w: %s is only %d bytes, build looks truncated", ErrDistMissing, index, fi.Size())
	}
	return nil
}

// reorderForPort moves the candidate matching port to the front, keeping the
// relative order of everything else stable.
func reorderForPort(list []ServerConfig, port int) []ServerConfig {
	if port == 0 {
		return list
	}
	matched := make([]ServerConfig, 0, 1)
	rest := make([]ServerConfig, 0, len(list))
	for _, cfg := range list {
		if cfg.Port == port {
			matched = append(matched, cfg)
		} else {
			rest = append(rest, cfg)
		}
	}
	return append(matched, rest...)
}
