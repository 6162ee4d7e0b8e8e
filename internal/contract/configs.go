package contract

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/huangsam/riskmap/schema"
)

// Default values for configuration.
const (
	DefaultGeometryPath = "lima_callao_distritos_simple.geojson"
	DefaultLabelField   = "distrito"
	DefaultResultLimit  = 50
	MaxResultLimit      = 1000
	DefaultPrecision    = 2
	MaxPrecision        = 4
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ThresholdsRawInput holds risk label thresholds from the YAML config file.
// Use float64 pointers so unset values keep their defaults.
type ThresholdsRawInput struct {
	Critical *float64 `mapstructure:"critical"`
	High     *float64 `mapstructure:"high"`
	Moderate *float64 `mapstructure:"moderate"`
}

// Config holds the runtime configuration for a pipeline run.
// This struct remains the "final, validated" config.
type Config struct {
	GeometryPath string
	LabelField   string
	DatasetPath  string // empty means the embedded dataset
	District     schema.DistrictID

	View        schema.Column
	Policy      schema.CompositePolicy
	ResultLimit int
	Ascending   bool
	Workers     int
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)
	MetricsFile string

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext

	Thresholds RiskThresholds

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DistrictStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Geometry       string `mapstructure:"geometry"`
	LabelField     string `mapstructure:"label-field"`
	Dataset        string `mapstructure:"dataset"`
	Policy         string `mapstructure:"policy"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	MetricsFile    string `mapstructure:"metrics-file"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	RunsBackend    string `mapstructure:"runs-backend"`
	RunsDBConnect  string `mapstructure:"runs-db-connect"`
	Emoji          string `mapstructure:"emoji"`
	Color          string `mapstructure:"color"`

	// --- Fields from scoreCmd.Flags() ---
	View      string `mapstructure:"view"`
	Limit     int    `mapstructure:"limit"`
	Ascending bool   `mapstructure:"ascending"`

	// --- Risk thresholds from config file ---
	Thresholds ThresholdsRawInput `mapstructure:"thresholds"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processSources(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return processRiskThresholds(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		// Empty means localhost:6379.
		if strings.Contains(connStr, "://") && !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must be host:port or a redis:// URL")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and run history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- Runs Backend Validation ---
	cfg.RunsBackend = schema.DatabaseBackend(strings.ToLower(input.RunsBackend))
	if cfg.RunsBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.RunsBackend]; !ok {
		return fmt.Errorf("invalid runs backend '%s'. must be sqlite, mysql, postgresql, none", input.RunsBackend)
	}
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return err
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunsBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		runsDBPath := cfg.RunsDBConnect
		if runsDBPath == "" {
			runsDBPath = GetRunsDBFilePath()
		}
		if cacheDBPath == runsDBPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Ascending = input.Ascending
	cfg.MetricsFile = input.MetricsFile

	// Parse emoji flag
	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. ResultLimit Validation ---
	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	// --- 2. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 3. View and Policy Validation ---
	cfg.View = schema.DefaultView
	if strings.TrimSpace(input.View) != "" {
		cfg.View = schema.ParseColumn(input.View)
	}
	if _, ok := schema.LookupView(cfg.View); !ok {
		return fmt.Errorf("invalid view '%s'. must be %s", input.View, strings.Join(schema.ViewNames(), ", "))
	}

	cfg.Policy = schema.ZeroFillPolicy
	if input.Policy != "" {
		cfg.Policy = schema.CompositePolicy(strings.ToLower(input.Policy))
	}
	if _, ok := schema.ValidCompositePolicies[cfg.Policy]; !ok {
		return fmt.Errorf("invalid policy '%s'. must be zero-fill, exclude-absent", input.Policy)
	}

	// --- 4. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet, geojson", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	return nil
}

// processSources resolves the geometry and dataset inputs and the optional district argument.
func processSources(cfg *Config, input *ConfigRawInput) error {
	cfg.GeometryPath = strings.TrimSpace(input.Geometry)
	if cfg.GeometryPath == "" {
		return fmt.Errorf("geometry path must not be empty")
	}
	cfg.LabelField = strings.TrimSpace(input.LabelField)
	if cfg.LabelField == "" {
		cfg.LabelField = DefaultLabelField
	}
	cfg.DatasetPath = strings.TrimSpace(input.Dataset)

	if input.DistrictStr != "" {
		cfg.District = schema.NewDistrictID(input.DistrictStr)
		if cfg.District == "" {
			return fmt.Errorf("district name %q is blank", input.DistrictStr)
		}
	}
	return nil
}

// processRiskThresholds applies config file overrides onto DefaultThresholds.
func processRiskThresholds(cfg *Config, input *ConfigRawInput) error {
	th := DefaultThresholds
	if input.Thresholds.Critical != nil {
		th.Critical = *input.Thresholds.Critical
	}
	if input.Thresholds.High != nil {
		th.High = *input.Thresholds.High
	}
	if input.Thresholds.Moderate != nil {
		th.Moderate = *input.Thresholds.Moderate
	}
	if err := th.Validate(); err != nil {
		return err
	}
	cfg.Thresholds = th
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// RevalidateSelection applies a view and policy chosen after startup, such as
// from an MCP tool call. Empty values keep the current settings.
func RevalidateSelection(cfg *Config, view, policy string) error {
	if strings.TrimSpace(view) != "" {
		c := schema.ParseColumn(view)
		if _, ok := schema.LookupView(c); !ok {
			return fmt.Errorf("invalid view '%s'. must be %s", view, strings.Join(schema.ViewNames(), ", "))
		}
		cfg.View = c
	}
	if policy != "" {
		p := schema.CompositePolicy(strings.ToLower(policy))
		if _, ok := schema.ValidCompositePolicies[p]; !ok {
			return fmt.Errorf("invalid policy '%s'. must be zero-fill, exclude-absent", policy)
		}
		cfg.Policy = p
	}
	return nil
}
