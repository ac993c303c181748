package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"auditgate/config"
	"auditgate/internal/logger"
	"auditgate/internal/server"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [port]",
		Short: "Serve the built site with the best available static server",
		Long: `Walks the candidate server list in priority order until one comes up
healthy, prints its URL, and blocks until interrupted. An optional port
argument moves the matching candidate to the front of the list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preferredPort := 0
			if len(args) == 1 {
				p, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid port %q: %w", args[0], err)
				}
				preferredPort = p
			}

			log := logger.New("server", config.DebugServer)
			candidates, err := server.LoadCandidates(config.ServerListFile)
			if err != nil {
				return err
			}
			mgr := server.NewManager(config.DistDir, candidates, log, config.DebugServer)

			if err := mgr.ValidateDist(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			defer mgr.StopAll()

			srv, err := mgr.StartBestAvailable(ctx, preferredPort)
			if err != nil {
				return err
			}

			fmt.Printf("Serving %s via %s (%s)\n", config.DistDir, srv.Config.Name, srv.Config.Description)
			fmt.Println(srv.URL)

			<-ctx.Done()
			log.Info("interrupted, stopping servers")
			return nil
		},
	}
}
