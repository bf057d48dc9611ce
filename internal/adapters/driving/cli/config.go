package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change settings in config.toml",
	Long: `Reads and changes settings. Keys use dots for tables, for example:
  adreports config set environment production
  adreports config set production.spreadsheet_url https://docs.google.com/spreadsheets/d/...
  adreports config set schedules.shopping.customers 1234567890:Acme,9876543210`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s := settingsService.Settings()
	cmd.Printf("Environment:        %s\n", settingsService.Environment())
	cmd.Printf("Credentials dir:    %s\n", orNone(s.CredentialsDir))
	cmd.Printf("Developer email:    %s\n", orNone(s.DeveloperEmail))
	cmd.Printf("Ads API version:    %s\n", orNone(s.AdsAPIVersion))
	cmd.Printf("Graph API version:  %s\n", orNone(s.GraphAPIVersion))
	cmd.Printf("Spreadsheet:        %s\n", orNone(s.SpreadsheetURL))
	cmd.Printf("Report emails:      %s\n", orNone(strings.Join(s.ReportEmails, ", ")))
	cmd.Printf("Slack channel:      %s\n", orNone(s.SlackChannel))
	cmd.Printf("Warehouse driver:   %s\n", orNone(s.WarehouseDriver))
	cmd.Printf("Drive folder:       %s\n", orNone(s.DriveFolderID))

	sched, err := settingsService.SchedulerConfig()
	if err != nil {
		return err
	}
	cmd.Printf("\nScheduler enabled:  %t\n", sched.Enabled)
	ids := make([]string, 0, len(sched.TaskConfigs))
	for id := range sched.TaskConfigs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		task := sched.TaskConfigs[id]
		if task.Report == "" {
			continue
		}
		cmd.Printf("  %-20s %s every %s (%d customers)\n", id, task.Report, task.Interval, len(task.Customers))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	v, ok := settingsService.Value(args[0])
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	cmd.Println(v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetValue(args[0], args[1]); err != nil {
		return fmt.Errorf("set %s: %w", args[0], err)
	}
	cmd.Printf("%s updated.\n", args[0])
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
