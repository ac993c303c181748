package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"auditgate/internal/netutil"

	"github.com/gin-gonic/gin"
)

// startBuiltin serves the dist directory from this process. It is the
// last-resort candidate for environments with no node or python toolchain.
func (l *Launcher) startBuiltin(ctx context.Context, cfg ServerConfig, distDir string) (*ActiveServer, error) {
	port := cfg.Port
	if port == 0 || !netutil.IsPortAvailable(port) {
		p, err := netutil.FreePort()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		port = p
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(spaHandler(distDir))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("localhost:%d", port),
		Handler: r,
	}
	go httpSrv.ListenAndServe()

	srv := &ActiveServer{
		Config:   cfg,
		URL:      fmt.Sprintf("http://localhost:%d", port),
		PID:      os.Getpid(),
		shutdown: httpSrv.Shutdown,
	}

	if !l.health.Wait(ctx, srv.URL, 5*time.Second) {
		httpSrv.Close()
		return nil, fmt.Errorf("%s never became healthy at %s", cfg.Name, srv.URL)
	}
	l.logger.Info("builtin server started", "url", srv.URL)
	return srv, nil
}

// spaHandler serves files from dist, falling back to index.html for
// client-side routes.
func spaHandler(distDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusMethodNotAllowed)
			return
		}
		path := filepath.Join(distDir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		c.File(filepath.Join(distDir, "index.html"))
	}
}
