package domain

// Environment selects which settings overlay applies.
type Environment string

// Available environments.
const (
	// EnvironmentDevelopment routes output to the developer.
	EnvironmentDevelopment Environment = "development"

	// EnvironmentProduction routes output to the real recipients.
	EnvironmentProduction Environment = "production"
)

// EnvironmentFor returns the environment for a production flag.
func EnvironmentFor(production bool) Environment {
	if production {
		return EnvironmentProduction
	}
	return EnvironmentDevelopment
}

// String returns the string representation.
func (e Environment) String() string {
	return string(e)
}

// AppSettings holds all application settings.
type AppSettings struct {
	// CredentialsDir holds Google client secrets, tokens and google-ads.yaml.
	CredentialsDir string

	// DeveloperEmail receives output when not in production.
	DeveloperEmail string

	// AdsAPIVersion is the Google Ads REST version, e.g. "v21".
	AdsAPIVersion string

	// GraphAPIVersion is the Facebook Graph version, e.g. "v21.0".
	GraphAPIVersion string

	// SpreadsheetURL is the default report spreadsheet.
	SpreadsheetURL string

	// ReportEmails receive run summaries.
	ReportEmails []string

	// SlackChannel receives failure notifications.
	SlackChannel string

	// WarehouseDriver is "mysql" or "pgx". Empty disables the warehouse sink.
	WarehouseDriver string

	// WarehouseDSN is the warehouse connection string.
	WarehouseDSN string

	// DriveFolderID receives CSV exports.
	DriveFolderID string
}

// Merge returns s with every non-zero field of overlay applied on top.
func (s AppSettings) Merge(overlay AppSettings) AppSettings {
	out := s
	if overlay.CredentialsDir != "" {
		out.CredentialsDir = overlay.CredentialsDir
	}
	if overlay.DeveloperEmail != "" {
		out.DeveloperEmail = overlay.DeveloperEmail
	}
	if overlay.AdsAPIVersion != "" {
		out.AdsAPIVersion = overlay.AdsAPIVersion
	}
	if overlay.GraphAPIVersion != "" {
		out.GraphAPIVersion = overlay.GraphAPIVersion
	}
	if overlay.SpreadsheetURL != "" {
		out.SpreadsheetURL = overlay.SpreadsheetURL
	}
	if len(overlay.ReportEmails) > 0 {
		out.ReportEmails = append([]string(nil), overlay.ReportEmails...)
	}
	if overlay.SlackChannel != "" {
		out.SlackChannel = overlay.SlackChannel
	}
	if overlay.WarehouseDriver != "" {
		out.WarehouseDriver = overlay.WarehouseDriver
	}
	if overlay.WarehouseDSN != "" {
		out.WarehouseDSN = overlay.WarehouseDSN
	}
	if overlay.DriveFolderID != "" {
		out.DriveFolderID = overlay.DriveFolderID
	}
	return out
}

// LayeredSettings holds a base layer and one overlay per environment.
type LayeredSettings struct {
	Base        AppSettings
	Production  AppSettings
	Development AppSettings
}

// Resolve merges the overlay for env onto the base layer.
func (l LayeredSettings) Resolve(env Environment) AppSettings {
	if env == EnvironmentProduction {
		return l.Base.Merge(l.Production)
	}
	return l.Base.Merge(l.Development)
}

// Recipients returns the report recipients for env. Outside production
// everything goes to the developer.
func (s AppSettings) Recipients(env Environment) []string {
	if env != EnvironmentProduction && s.DeveloperEmail != "" {
		return []string{s.DeveloperEmail}
	}
	return s.ReportEmails
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		AdsAPIVersion:   "v21",
		GraphAPIVersion: "v21.0",
	}
}

// PipelineConfig holds table post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the processors every downloaded table goes through.
// Micros conversion runs before roas so the ratio reads currency units.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"coerce", "micros", "roas", "resourcenames"},
		ProcessorConfigs: map[string]map[string]any{
			"roas": {
				"revenue": "metrics.conversions_value",
				"cost":    "metrics.cost_micros",
			},
		},
	}
}
