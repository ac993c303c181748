package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"auditgate/internal/logger"
	"auditgate/internal/netutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLauncher(t *testing.T) (*Launcher, *int) {
	t.Helper()
	l := NewLauncher(logger.New("test", false), false)
	sleeps := 0
	l.sleep = func(time.Duration) { sleeps++ }
	return l, &sleeps
}

func TestStartFailsFastOnPortInUse(t *testing.T) {
	port, err := netutil.FreePort()
	require.NoError(t, err)
	lis, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	require.NoError(t, err)
	defer lis.Close()

	l, sleeps := newTestLauncher(t)
	cfg := ServerConfig{Name: "busy", Command: "some-server", Port: port}

	_, err = l.Start(context.Background(), cfg, t.TempDir(), 3)
	assert.ErrorIs(t, err, ErrPortInUse)
	assert.Zero(t, *sleeps, "environment errors are not retried")
}

func TestStartFailsFastOnMissingCommand(t *testing.T) {
	port, err := netutil.FreePort()
	require.NoError(t, err)

	l, sleeps := newTestLauncher(t)
	cfg := ServerConfig{Name: "ghost", Command: "definitely-not-installed-anywhere", Port: port}

	_, err = l.Start(context.Background(), cfg, t.TempDir(), 3)
	assert.ErrorIs(t, err, ErrCommandNotFound)
	assert.Zero(t, *sleeps)
}

func TestExpandArgs(t *testing.T) {
	args := expandArgs([]string{"serve", "-s", "{dist}", "-l", "{port}"}, "build/out", 4173)
	assert.Equal(t, []string{"serve", "-s", "build/out", "-l", "4173"}, args)
}

func TestDefaultCandidatesOrderingAndFallback(t *testing.T) {
	list := DefaultCandidates()
	require.NotEmpty(t, list)

	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i].Priority, list[i-1].Priority, "declared in ascending priority")
	}
	last := list[len(list)-1]
	assert.True(t, last.Builtin, "in-process server is the last resort")
}

func TestBuiltinServerServesDist(t *testing.T) {
	dist := t.TempDir()
	index := []byte("<html><body>" + strings.Repeat("<div>hello</div>", 20) + "</body></html>")
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), index, 0644))

	l := NewLauncher(logger.New("test", false), false)
	srv, err := l.Start(context.Background(), ServerConfig{Name: "builtin", Builtin: true}, dist, 1)
	require.NoError(t, err)
	defer srv.stop(time.Second)

	resp, err := http.Get(srv.URL + "/some/spa/route")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, index, body, "unknown routes fall back to index.html")
}

func TestLoadCandidatesFallsBackToDefaults(t *testing.T) {
	list, err := LoadCandidates("/nonexistent/servers.yml")
	require.NoError(t, err)
	assert.Equal(t, DefaultCandidates(), list)
}
