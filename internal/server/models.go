package server

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig describes one static-file-server candidate. Configs are
// immutable; the candidate list is fixed at process start.
type ServerConfig struct {
	Name        string   `yaml:"name"`
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"` // {dist} and {port} tokens are expanded at launch
	Port        int      `yaml:"port"`
	Priority    int      `yaml:"priority"` // ascending, tried first
	Description string   `yaml:"description"`
	Builtin     bool     `yaml:"builtin"` // served in-process instead of spawning a command
}

// DefaultCandidates is the priority-ordered fallback list. The in-process
// server sits last so an environment with none of the external tools
// installed can still be audited.
func DefaultCandidates() []ServerConfig {
	return []ServerConfig{
		{
			Name:        "vite-preview",
			Command:     "npx",
			Args:        []string{"vite", "preview", "--port", "{port}", "--strictPort"},
			Port:        4173,
			Priority:    1,
			Description: "Vite preview server",
		},
		{
			Name:        "serve",
			Command:     "npx",
			Args:        []string{"serve", "-s", "{dist}", "-l", "{port}"},
			Port:        3000,
			Priority:    2,
			Description: "Vercel serve (SPA mode)",
		},
		{
			Name:        "http-server",
			Command:     "npx",
			Args:        []string{"http-server", "{dist}", "-p", "{port}", "-c-1"},
			Port:        8080,
			Priority:    3,
			Description: "node http-server, caching disabled",
		},
		{
			Name:        "python-http",
			Command:     "python3",
			Args:        []string{"-m", "http.server", "{port}", "--directory", "{dist}"},
			Port:        8000,
			Priority:    4,
			Description: "Python stdlib http.server",
		},
		{
			Name:        "builtin",
			Port:        0, // picks a free port at launch
			Priority:    99,
			Description: "in-process static server, last resort",
			Builtin:     true,
		},
	}
}

// LoadCandidates reads a YAML candidate list from path, falling back to the
// defaults when the file does not exist.
func LoadCandidates(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultCandidates(), nil
	}
	if err != nil {
		return nil, err
	}
	var list []ServerConfig
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(list) == 0 {
		return DefaultCandidates(), nil
	}
	return list, nil
}

func expandArgs(args []string, dist string, port int) []string {
	out := make([]string, len(args))
	for i, a := range args {
		a = strings.ReplaceAll(a, "{dist}", dist)
		a = strings.ReplaceAll(a, "{port}", fmt.Sprintf("%d", port))
		out[i] = a
	}
	return out
}

// packageManagerWrappers resolve their own targets, so LookPath on the
// wrapped tool would report false negatives.
var packageManagerWrappers = map[string]bool{
	"npx": true, "npm": true, "yarn": true, "pnpm": true, "bunx": true,
}

// ActiveServer is a successfully started candidate. The process handle is
// owned exclusively by the Manager's registry; all teardown goes through
// Manager.StopAll to prevent double-kill races.
type ActiveServer struct {
	Config ServerConfig
	URL    string
	PID    int

	cmd      *JobCmd                     // nil for builtin servers
	exited   chan struct{}               // closed once the process has been reaped
	shutdown func(context.Context) error // builtin servers only
}

// stop sends a graceful termination and force-kills after the grace period
// if the process has not exited.
func (s *ActiveServer) stop(grace time.Duration) {
	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		s.shutdown(ctx)
		return
	}
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.cmd.Terminate()
	select {
	case <-s.exited:
	case <-time.After(grace):
		s.cmd.ForceKill()
		if s.exited != nil {
			<-s.exited
		}
	}
}
