package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
	"github.com/custodia-labs/adreports/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys and tables for settings storage.
const (
	keyEnvironment      = "environment"
	keySchedulerEnabled = "scheduler.enabled"

	layerBase        = "settings"
	layerProduction  = "production"
	layerDevelopment = "development"

	keyCredentialsDir  = "credentials_dir"
	keyDeveloperEmail  = "developer_email"
	keyAdsAPIVersion   = "ads_api_version"
	keyGraphAPIVersion = "graph_api_version"
	keySpreadsheetURL  = "spreadsheet_url"
	keyReportEmails    = "report_emails"
	keySlackChannel    = "slack_channel"
	keyWarehouseDriver = "warehouse_driver"
	keyWarehouseDSN    = "warehouse_dsn"
	keyDriveFolderID   = "drive_folder_id"

	prefixSchedules = "schedules."
	prefixPipeline  = "pipeline."
)

// defaultScheduleInterval applies to schedules without an interval.
const defaultScheduleInterval = 24 * time.Hour

// settableRoots lists the top-level tables SetValue accepts.
var settableRoots = []string{
	keyEnvironment, "scheduler", layerBase, layerProduction, layerDevelopment, "schedules", "pipeline",
}

// SettingsService manages application settings kept in the ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
	production  *bool
}

// NewSettingsService creates a new settings service. A non-nil production
// overrides the environment stored in config, as ADREPORTS_PRODUCTION does.
func NewSettingsService(configStore driven.ConfigStore, production *bool) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		production:  production,
	}
}

// Environment returns the active environment. Development is the default.
func (s *SettingsService) Environment() domain.Environment {
	if s.production != nil {
		return domain.EnvironmentFor(*s.production)
	}
	if domain.Environment(s.configStore.GetString(keyEnvironment)) == domain.EnvironmentProduction {
		return domain.EnvironmentProduction
	}
	return domain.EnvironmentDevelopment
}

// Layers returns the stored base, production and development layers.
func (s *SettingsService) Layers() domain.LayeredSettings {
	return domain.LayeredSettings{
		Base:        domain.DefaultAppSettings().Merge(s.readLayer(layerBase)),
		Production:  s.readLayer(layerProduction),
		Development: s.readLayer(layerDevelopment),
	}
}

// Settings returns the settings resolved for the active environment.
func (s *SettingsService) Settings() domain.AppSettings {
	return s.Layers().Resolve(s.Environment())
}

func (s *SettingsService) readLayer(layer string) domain.AppSettings {
	get := func(key string) string {
		return s.configStore.GetString(layer + "." + key)
	}
	return domain.AppSettings{
		CredentialsDir:  get(keyCredentialsDir),
		DeveloperEmail:  get(keyDeveloperEmail),
		AdsAPIVersion:   get(keyAdsAPIVersion),
		GraphAPIVersion: get(keyGraphAPIVersion),
		SpreadsheetURL:  get(keySpreadsheetURL),
		ReportEmails:    s.configStore.GetStringSlice(layer + "." + keyReportEmails),
		SlackChannel:    get(keySlackChannel),
		WarehouseDriver: get(keyWarehouseDriver),
		WarehouseDSN:    get(keyWarehouseDSN),
		DriveFolderID:   get(keyDriveFolderID),
	}
}

// Value returns a raw configuration value.
func (s *SettingsService) Value(key string) (any, bool) {
	return s.configStore.Get(key)
}

// SetValue parses raw and stores it under key. Booleans and integers are
// stored typed, keys ending in "emails" or "customers" take a comma list.
func (s *SettingsService) SetValue(key, raw string) error {
	root, _, _ := strings.Cut(key, ".")
	known := false
	for _, r := range settableRoots {
		if root == r {
			known = true
			break
		}
	}
	if !known || strings.HasSuffix(key, ".") {
		return fmt.Errorf("config key %q: %w", key, domain.ErrInvalidInput)
	}

	if key == keyEnvironment {
		env := domain.Environment(raw)
		if env != domain.EnvironmentProduction && env != domain.EnvironmentDevelopment {
			return fmt.Errorf("environment %q: %w", raw, domain.ErrInvalidInput)
		}
		return s.configStore.Set(key, raw)
	}

	return s.configStore.Set(key, parseConfigValue(key, raw))
}

func parseConfigValue(key, raw string) any {
	if strings.HasSuffix(key, "emails") || strings.HasSuffix(key, "customers") {
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	return raw
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		cfg.Processors = processors
	}

	for _, key := range s.configStore.Keys(prefixPipeline) {
		rest := strings.TrimPrefix(key, prefixPipeline)
		name, option, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		val, _ := s.configStore.Get(key)
		if cfg.ProcessorConfigs == nil {
			cfg.ProcessorConfigs = make(map[string]map[string]any)
		}
		if cfg.ProcessorConfigs[name] == nil {
			cfg.ProcessorConfigs[name] = make(map[string]any)
		}
		cfg.ProcessorConfigs[name][option] = val
	}

	return cfg
}

// SchedulerConfig returns the scheduler configuration with one task per
// [schedules.<id>] table.
func (s *SettingsService) SchedulerConfig() (domain.SchedulerConfig, error) {
	cfg := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		cfg.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	seen := make(map[string]bool)
	for _, key := range s.configStore.Keys(prefixSchedules) {
		rest := strings.TrimPrefix(key, prefixSchedules)
		idx := strings.LastIndexByte(rest, '.')
		if idx <= 0 {
			continue
		}
		id := rest[:idx]
		if seen[id] {
			continue
		}
		seen[id] = true

		task, err := s.taskConfig(prefixSchedules + id + ".")
		if err != nil {
			return cfg, fmt.Errorf("schedule %s: %w", id, err)
		}
		cfg.TaskConfigs[id] = task
	}

	return cfg, nil
}

func (s *SettingsService) taskConfig(prefix string) (domain.TaskConfig, error) {
	task := domain.TaskConfig{
		Enabled:        true,
		Interval:       defaultScheduleInterval,
		Report:         s.configStore.GetString(prefix + "report"),
		Customers:      s.configStore.GetStringSlice(prefix + "customers"),
		SpreadsheetURL: s.configStore.GetString(prefix + keySpreadsheetURL),
	}
	if task.Report == "" {
		return task, fmt.Errorf("report is required: %w", domain.ErrInvalidInput)
	}

	if _, exists := s.configStore.Get(prefix + "enabled"); exists {
		task.Enabled = s.configStore.GetBool(prefix + "enabled")
	}

	if raw := s.configStore.GetString(prefix + "interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return task, fmt.Errorf("interval %q: %w", raw, domain.ErrInvalidInput)
		}
		task.Interval = d
	}
	return task, nil
}
