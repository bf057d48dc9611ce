package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show report run history",
	Long: `Lists recent report runs. With a run ID, shows that run's customer results
including error details.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if runHistory == nil {
		return errors.New("run history not configured")
	}

	ctx := context.Background()

	if len(args) == 1 {
		run, err := runHistory.GetRun(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		printSummary(cmd, run)
		for _, r := range run.Failures() {
			if r.Stack != "" {
				cmd.Printf("\n%s stack:\n%s\n", r.Customer.Label(), r.Stack)
			}
		}
		return nil
	}

	runs, err := runHistory.ListRuns(ctx, runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		cmd.Printf("%s  %-20s %-10s %s  %s\n",
			r.ID, r.Report, r.Status, r.StartedAt.Format("2006-01-02 15:04"), duration(r))
	}
	return nil
}

func duration(r domain.RunSummary) string {
	if r.FinishedAt.IsZero() {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
