package cli

import (
	"fmt"

	"auditgate/config"
	"auditgate/internal/audit"
	"auditgate/internal/budget"

	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Enforce the performance budget over fresh audit results",
		Long: `Reads performance-budgets.json and lighthouse-results.json from the
working directory, writes performance-budget-report.json and
pr-budget-comment.md, and exits nonzero when rules.failOn.budgetExceeded is
set and any metric failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := budget.Load(config.BudgetFile)
			if err != nil {
				return err
			}
			results, err := audit.ParseResultFile(config.ResultsFile)
			if err != nil {
				return fmt.Errorf("audit results: %w (run `auditgate audit` first)", err)
			}

			environment := config.BudgetEnvironment()
			observed := budget.ObservedFromLighthouse(results, doc)
			report := budget.Evaluate(doc, observed, environment)

			if err := budget.WriteReport(config.BudgetReport, report); err != nil {
				return err
			}
			if err := budget.WritePRComment(config.PRCommentFile, report); err != nil {
				return err
			}

			fmt.Printf("Budget check (%s, multiplier %.2f):\n", environment, report.Multiplier)
			for _, r := range report.Results {
				fmt.Printf("  [%-9s] %s\n", r.Status, r.Message)
			}
			fmt.Printf("%d checked, %d passed, %d warnings, %d failed\n",
				report.Summary.Total, report.Summary.Passed, report.Summary.Warnings, report.Summary.Failed)
			fmt.Printf("Report written to %s, PR comment to %s\n", config.BudgetReport, config.PRCommentFile)

			if report.ShouldFail {
				return fmt.Errorf("%w: %d of %d metrics failed",
					budget.ErrBudgetExceeded, report.Summary.Failed, report.Summary.Total)
			}
			return nil
		},
	}
}
