package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

var (
	runCustomers      []string
	runSheet          string
	runWarehouseTable string
	runDriveFolder    string
	runShareWith      []string
	runOptions        []string
)

var runCmd = &cobra.Command{
	Use:   "run <report>",
	Short: "Run a report for one or more customers",
	Long: `Runs a registered report for every customer concurrently and delivers each
customer's tables to the configured outputs. A failing customer does not stop
the others; failures are listed in the summary.

Customers are given as "id" or "id:name", for example:
  adreports run shopping --customer 123-456-7890:Acme --customer 987-654-3210`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runCustomers, "customer", "c", nil, "Customer id[:name] (repeatable)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "Spreadsheet URL (defaults to spreadsheet_url setting)")
	runCmd.Flags().StringVar(&runWarehouseTable, "warehouse-table", "", "Warehouse table prefix")
	runCmd.Flags().StringVar(&runDriveFolder, "drive-folder", "", "Drive folder ID for CSV exports")
	runCmd.Flags().StringArrayVar(&runShareWith, "share-with", nil, "Email given access to exports (repeatable)")
	runCmd.Flags().StringArrayVarP(&runOptions, "option", "o", nil, "Report option key=value (repeatable)")
	rootCmd.AddCommand(runCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportRunner == nil {
		return errors.New("report service not configured")
	}

	customers := parseCustomers(runCustomers)
	if len(customers) == 0 {
		return errors.New("at least one --customer is required")
	}

	options, err := parseOptions(runOptions)
	if err != nil {
		return err
	}

	def := domain.ReportDefinition{
		Name:           args[0],
		SpreadsheetURL: runSheet,
		WarehouseTable: runWarehouseTable,
		DriveFolderID:  runDriveFolder,
		ShareWith:      runShareWith,
		Options:        options,
	}
	if settingsService != nil {
		settings := settingsService.Settings()
		if def.SpreadsheetURL == "" {
			def.SpreadsheetURL = settings.SpreadsheetURL
		}
		if def.DriveFolderID == "" {
			def.DriveFolderID = settings.DriveFolderID
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd.Printf("Running %s for %d customers...\n", def.Name, len(customers))
	summary, err := reportRunner.Run(ctx, def, customers)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	printSummary(cmd, summary)
	if summary.Status == domain.RunFailed {
		return fmt.Errorf("report %s failed for every customer", def.Name)
	}
	return nil
}

func parseCustomers(raw []string) []domain.Customer {
	var out []domain.Customer
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if c := domain.ParseCustomer(part); c.ID != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

func parseOptions(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, r := range raw {
		key, value, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid option %q, expected key=value", r)
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out, nil
}

func printSummary(cmd *cobra.Command, s *domain.RunSummary) {
	cmd.Printf("\nRun %s: %s (%d rows)\n", s.ID, s.Status, s.TotalRows())
	for _, r := range s.Results {
		if r.Status == domain.CustomerFailed {
			cmd.Printf("  %-30s FAILED  %s\n", r.Customer.Label(), r.Error)
			continue
		}
		cmd.Printf("  %-30s ok      %d rows\n", r.Customer.Label(), r.Rows)
	}
}
