// Command adreports runs marketing reports from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/adreports/internal/adapters/driven/config/env"
	"github.com/custodia-labs/adreports/internal/adapters/driven/config/file"
	"github.com/custodia-labs/adreports/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/adreports/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/adreports/internal/adapters/driven/storage/warehouse"
	"github.com/custodia-labs/adreports/internal/adapters/driving/cli"
	"github.com/custodia-labs/adreports/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/adreports/internal/connectors/facebook"
	"github.com/custodia-labs/adreports/internal/connectors/google"
	"github.com/custodia-labs/adreports/internal/connectors/google/ads"
	"github.com/custodia-labs/adreports/internal/connectors/google/analytics"
	"github.com/custodia-labs/adreports/internal/connectors/google/drive"
	"github.com/custodia-labs/adreports/internal/connectors/google/gmail"
	"github.com/custodia-labs/adreports/internal/connectors/google/merchant"
	"github.com/custodia-labs/adreports/internal/connectors/google/sheets"
	"github.com/custodia-labs/adreports/internal/connectors/slack"
	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
	"github.com/custodia-labs/adreports/internal/core/services"
	"github.com/custodia-labs/adreports/internal/logger"
	"github.com/custodia-labs/adreports/internal/normalisers"
	"github.com/custodia-labs/adreports/internal/postprocessors"
	"github.com/custodia-labs/adreports/internal/reports"
	"github.com/custodia-labs/adreports/internal/reports/shopping"
	"github.com/custodia-labs/adreports/internal/reports/source"
	"github.com/custodia-labs/adreports/internal/tabular"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Names the single-table source reports are registered under.
const (
	reportGoogleAds = "google_ads"
	reportFacebook  = "facebook"
	reportAnalytics = "analytics"
	reportMerchant  = "merchant"
)

// adsConfigFile lives in the credentials directory.
const adsConfigFile = "google-ads.yaml"

func main() {
	cli.SetVersion(version)

	closers, err := wire(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	err = cli.Execute()
	for _, c := range closers {
		c.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

// wire builds every service from config.toml, .env and the credentials
// directory. Connectors without credentials are left out with a warning so
// commands like auth and config keep working.
func wire(ctx context.Context) ([]io.Closer, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	configDir := filepath.Dir(configStore.Path())

	secrets, err := env.Load(".env", filepath.Join(configDir, ".env"))
	if err != nil {
		return nil, err
	}

	settingsService := services.NewSettingsService(configStore, secrets.Production)
	settings := settingsService.Settings()
	environment := settingsService.Environment()

	var (
		closers        []io.Closer
		runStore       driven.RunStore
		schedulerStore driven.SchedulerStore
	)
	if store, err := sqlite.NewStore(configDir); err != nil {
		logger.Warn("run history: %v, keeping history in memory", err)
		runStore = memory.NewRunStore()
		schedulerStore = memory.NewSchedulerStore()
	} else {
		closers = append(closers, store)
		runStore = store.RunStore()
		schedulerStore = store.SchedulerStore()
	}

	adsClient := newAdsClient(ctx, settings, secrets)
	var (
		labelManager driving.LabelManager
		defaultsOpts []postprocessors.DefaultsOption
	)
	if adsClient != nil {
		adsLabels := ads.NewLabels(adsClient)
		labelManager = adsLabels
		defaultsOpts = append(defaultsOpts, postprocessors.WithLabelSource(adsLabels))
	}

	processors := postprocessors.NewDefaultRegistry(defaultsOpts...)
	pipeline, err := postprocessors.Build(processors, settingsService.GetPipelineConfig())
	if err != nil {
		return closers, fmt.Errorf("build pipeline: %w", err)
	}
	downloader := services.NewTableDownloader(normalisers.NewDefaultRegistry(), tabular.DefaultFillPolicy())

	registry := reports.NewRegistry()
	opts := []services.ReportOption{services.WithRunStore(runStore)}

	var merchantClient *merchant.Client
	if settings.CredentialsDir != "" {
		ts, err := google.TokenSourceFromDir(ctx, settings.CredentialsDir)
		if err != nil {
			logger.Warn("google: %v (run 'adreports auth google')", err)
		} else {
			googleOpts, err := wireGoogle(ctx, ts, settings, environment, registry, downloader, pipeline)
			if err != nil {
				return closers, err
			}
			opts = append(opts, googleOpts...)
			contentService, err := google.NewContentService(ctx, ts)
			if err != nil {
				return closers, fmt.Errorf("content: %w", err)
			}
			merchantClient = merchant.NewClient(contentService)
			registry.Register(source.New(reportMerchant, merchantClient, downloader, pipeline))
		}
	}

	var batchRunner driving.BatchRunner
	if adsClient != nil {
		adsSource := ads.NewSource(adsClient)
		registry.Register(source.New(reportGoogleAds, adsSource, downloader, pipeline))
		if merchantClient != nil {
			registry.Register(shopping.New(adsSource, merchantClient))
		}

		jobs := ads.NewBatchJobs(adsClient)
		batchRunner = services.NewBatchProcessor(jobs, services.NewBatchPoller(jobs, services.TimerSleeper{}))
	}

	if secrets.FacebookToken != "" {
		fb := facebook.NewClient(secrets.FacebookToken, facebook.WithAPIVersion(settings.GraphAPIVersion))
		registry.Register(source.New(reportFacebook, fb, downloader, pipeline))
	}

	if secrets.SlackToken != "" && settings.SlackChannel != "" {
		opts = append(opts, services.WithNotifier(slack.NewClient(secrets.SlackToken), settings.SlackChannel))
	}

	if settings.WarehouseDriver != "" {
		dsn := settings.WarehouseDSN
		if secrets.WarehouseDSN != "" {
			dsn = secrets.WarehouseDSN
		}
		sink, err := warehouse.Open(ctx, settings.WarehouseDriver, dsn)
		if err != nil {
			logger.Warn("warehouse: %v", err)
		} else {
			opts = append(opts, services.WithTableSink(sink))
			if c, ok := sink.(io.Closer); ok {
				closers = append(closers, c)
			}
		}
	}

	reportService := services.NewReportService(registry, opts...)

	schedulerConfig, err := settingsService.SchedulerConfig()
	if err != nil {
		logger.Warn("schedules: %v", err)
		schedulerConfig = domain.DefaultSchedulerConfig()
	}
	scheduler := services.NewScheduler(
		schedulerConfig,
		schedulerStore,
		reportService,
		services.WithRunHistory(runStore),
		services.WithConfigLoader(func(context.Context) (domain.SchedulerConfig, error) {
			return settingsService.SchedulerConfig()
		}),
	)

	cli.SetServices(cli.Services{
		Reports:      reportService,
		History:      reportService,
		Batch:        batchRunner,
		Labels:       labelManager,
		Scheduler:    scheduler,
		Settings:     settingsService,
		API:          httpapi.NewServer(reportService, reportService),
		ConfigPath:   configStore.Path(),
		ReloadConfig: configStore.Load,
	})
	return closers, nil
}

// wireGoogle builds the Sheets, Drive and Gmail sinks and registers the
// GA4 report.
func wireGoogle(
	ctx context.Context,
	ts oauth2.TokenSource,
	settings domain.AppSettings,
	environment domain.Environment,
	registry *reports.Registry,
	downloader *services.TableDownloader,
	pipeline driven.TablePipeline,
) ([]services.ReportOption, error) {
	sheetsService, err := google.NewSheetsService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("sheets: %w", err)
	}
	driveService, err := google.NewDriveService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("drive: %w", err)
	}
	gmailService, err := google.NewGmailService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("gmail: %w", err)
	}
	analyticsService, err := google.NewAnalyticsDataService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}

	registry.Register(source.New(reportAnalytics, analytics.NewSource(analyticsService), downloader, pipeline))

	return []services.ReportOption{
		services.WithSpreadsheetSink(sheets.NewSink(sheetsService)),
		services.WithFileExporter(drive.NewExporter(driveService)),
		services.WithMailer(gmail.NewMailer(gmailService), settings.Recipients(environment)...),
	}, nil
}

// newAdsClient returns nil when google-ads.yaml is missing or incomplete.
func newAdsClient(ctx context.Context, settings domain.AppSettings, secrets *env.Secrets) *ads.Client {
	if settings.CredentialsDir == "" {
		return nil
	}
	cfg, err := env.LoadAdsConfig(filepath.Join(settings.CredentialsDir, adsConfigFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("google ads: %v", err)
		}
		return nil
	}
	resolved := cfg.WithSecrets(secrets)
	if err := resolved.Validate(); err != nil {
		logger.Warn("google ads: %v", err)
		return nil
	}

	ts := google.RefreshTokenSource(ctx, resolved.ClientID, resolved.ClientSecret, resolved.RefreshToken)
	return ads.NewClient(oauth2.NewClient(ctx, ts), resolved.DeveloperToken,
		ads.WithAPIVersion(settings.AdsAPIVersion),
		ads.WithLoginCustomerID(resolved.LoginCustomerID))
}
