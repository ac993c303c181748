package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"auditgate/config"
	"auditgate/internal/audit"
	"auditgate/internal/browser"
	"auditgate/internal/history"
	"auditgate/internal/logger"
	"auditgate/internal/server"

	"github.com/spf13/cobra"
)

// managerRestarter adapts the server manager to the audit engine's escape
// hatch.
type managerRestarter struct {
	mgr *server.Manager
}

func (r managerRestarter) Restart(ctx context.Context) (string, error) {
	srv, err := r.mgr.Restart(ctx)
	if err != nil {
		return "", err
	}
	return srv.URL, nil
}

func auditCmd() *cobra.Command {
	var startServer bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "audit <type> <url> <output>",
		Short: "Run a Lighthouse audit with bounded retries",
		Long: `Audits a URL and writes the JSON report to the output path. Type is one
of performance, seo or lighthouse (the full category set).

With --start-server the built site is served first and the url argument is
ignored ("-" by convention); failing audits that never paint then restart
the managed server before the final retry.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			auditType, url, outPath := args[0], args[1], args[2]

			categories, err := audit.CategoriesForType(auditType)
			if err != nil {
				return err
			}

			auditLog := logger.New("audit", config.DebugAudit)
			chromeLog := logger.New("chrome", config.DebugChrome)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			browserLauncher := browser.NewLauncher(config.IsCI, chromeLog)
			runner := audit.NewRunner(config.IsCI, categories, browserLauncher.CommandLineFlags(), config.DebugAudit, auditLog)
			engine := audit.NewEngine(config.IsCI, runner.Run, auditLog)

			if !skipPreflight {
				validator := browser.NewValidator(browserLauncher, chromeLog)
				engine.SetPreflight(func(ctx context.Context, url string) error {
					_, err := validator.Validate(ctx, url, browser.DefaultValidateTimeout)
					return err
				})
			}

			if startServer {
				serverLog := logger.New("server", config.DebugServer)
				candidates, err := server.LoadCandidates(config.ServerListFile)
				if err != nil {
					return err
				}
				mgr := server.NewManager(config.DistDir, candidates, serverLog, config.DebugServer)
				if err := mgr.ValidateDist(); err != nil {
					return err
				}
				defer mgr.StopAll()

				srv, err := mgr.StartBestAvailable(ctx, 0)
				if err != nil {
					return err
				}
				url = srv.URL
				engine.SetRestarter(managerRestarter{mgr})
			}

			result, runErr := engine.Run(ctx, url)

			recordHistory(auditLog, history.Run{
				URL:       url,
				AuditType: auditType,
				Attempts:  engine.Attempts(),
				Success:   runErr == nil,
				PerformanceScore: func() float64 {
					if result == nil {
						return 0
					}
					score, _ := result.CategoryScore("performance")
					return score
				}(),
			})

			if runErr != nil {
				return runErr
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			fmt.Printf("Audit complete: %s\n", outPath)
			for id, cat := range result.Categories {
				fmt.Printf("  %-14s %.0f\n", id, cat.Score*100)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&startServer, "start-server", false, "serve the dist directory and audit that URL")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip the render validation before audit attempts")
	return cmd
}

// recordHistory is best-effort; a broken store never fails the audit.
func recordHistory(log *slog.Logger, run history.Run) {
	store, err := history.Open(config.HistoryDBFile)
	if err != nil {
		log.Warn("history store unavailable", "error", err)
		return
	}
	defer store.Close()
	if _, err := store.Record(run); err != nil {
		log.Warn("failed to record audit run", "error", err)
	}
}
