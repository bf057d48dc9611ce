// Package cli provides the adreports command line.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/adreports/internal/core/ports/driving"
	"github.com/custodia-labs/adreports/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

var verbose bool

// Services wired by main.
var (
	reportRunner    driving.ReportRunner
	runHistory      driving.RunHistory
	batchRunner     driving.BatchRunner
	labelManager    driving.LabelManager
	scheduler       driving.Scheduler
	settingsService driving.SettingsService
	apiHandler      http.Handler

	// configPath is watched by the schedule command.
	configPath string

	// reloadConfig re-reads config.toml before the scheduler reloads.
	reloadConfig func() error
)

// Services holds the application services the commands drive.
type Services struct {
	Reports      driving.ReportRunner
	History      driving.RunHistory
	Batch        driving.BatchRunner
	Labels       driving.LabelManager
	Scheduler    driving.Scheduler
	Settings     driving.SettingsService
	API          http.Handler
	ConfigPath   string
	ReloadConfig func() error
}

// SetServices makes the services available to the commands.
func SetServices(s Services) {
	reportRunner = s.Reports
	runHistory = s.History
	batchRunner = s.Batch
	labelManager = s.Labels
	scheduler = s.Scheduler
	settingsService = s.Settings
	apiHandler = s.API
	configPath = s.ConfigPath
	reloadConfig = s.ReloadConfig
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "adreports",
	Short: "Marketing report automation",
	Long: `adreports pulls performance data from Google Ads, Facebook, Google Analytics
and Merchant Center, shapes it into report tables and delivers them to Google
Sheets, a SQL warehouse and Drive.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
