package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the auditgate CLI.
func Execute() error {
	rootCmd := &cobra.Command{
		Use:           "auditgate",
		Short:         "Static-site audit orchestration and performance-budget gate",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(budgetCmd())

	return rootCmd.Execute()
}
