// =============================================================================
// TPV & Markup Reporter - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Settings are resolved in
// three layers, later layers winning:
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. The YAML file (config.yaml by default)
//   3. Environment variables prefixed with TPV_ (e.g. TPV_INPUT_DIR)
//
// The resolved configuration is validated with struct tags before use. The
// directories themselves are NOT touched here: checking that the input
// directory exists is a setup step of the pipeline, so that the CLI can
// report it as a fatal setup error.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "TPV"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned for .csv and .xlsx files.
	// Default: "./data"
	InputDir string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`

	// ReportDir is where HTML charts, the CSV export and the processing
	// summary are written. Created if missing.
	// Default: "./reports"
	ReportDir string `yaml:"report_dir" envconfig:"REPORT_DIR" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	// LogFormat selects the slog handler.
	// Valid values: "text", "json"
	// Default: "text"
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT" validate:"oneof=text json"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// Workers bounds how many files are parsed concurrently.
	// Set to 1 for sequential loading. Output order does not depend on it.
	// Default: 4
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"min=1,max=64"`

	// GroupByPeriod adds the month (derived from the Date column) to the
	// aggregation key.
	// Default: false
	GroupByPeriod bool `yaml:"group_by_period" envconfig:"GROUP_BY_PERIOD"`

	// ChartOrder controls the bar order in client charts.
	//   "appearance" : order in which clients first appear in the input
	//   "desc"       : highest value first (ties keep appearance order)
	// Default: "appearance"
	ChartOrder string `yaml:"chart_order" envconfig:"CHART_ORDER" validate:"oneof=appearance desc"`

	// CSVSettings contains settings for parsing CSV input files.
	CSVSettings CSVSettings `yaml:"csv_settings" envconfig:"CSV"`

	// ColumnAliases adds header names on top of the built-in aliases.
	// Keys: "client", "tpv", "markup", "date".
	//
	// Example:
	//   column_aliases:
	//     client: ["razao social"]
	//     tpv: ["valor transacionado"]
	ColumnAliases map[string][]string `yaml:"column_aliases" ignored:"true"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields.
	// Accepts a single character or one of: "tab", "pipe", "semicolon".
	// Default: ","
	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER" validate:"required"`

	// Encoding is the character encoding of CSV files.
	// Valid values: see SupportedEncodings
	// Default: "utf-8"
	Encoding string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=utf-8 utf8 windows-1252 cp1252 iso-8859-1 latin1"`
}

// SupportedEncodings lists the accepted csv_settings.encoding values,
// aliases included. Keep in sync with the Encoding validate tag.
var SupportedEncodings = []string{"utf-8", "utf8", "windows-1252", "cp1252", "iso-8859-1", "latin1"}

// aliasKeys are the accepted keys of ColumnAliases.
var aliasKeys = map[string]bool{
	"client": true,
	"tpv":    true,
	"markup": true,
	"date":   true,
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration populated only with default values.
func Default() *MainConfig {
	cfg := &MainConfig{}
	applyMainConfigDefaults(cfg)
	return cfg
}

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: The path to the YAML configuration file.
//   - mustExist:  When false, a missing file is not an error and the
//                 defaults (plus environment overrides) are used.
//
// RETURNS:
//   - A pointer to the validated MainConfig.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string, mustExist bool) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
		// No file: defaults and environment only.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./data"
	}
	if config.ReportDir == "" {
		config.ReportDir = "./reports"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	config.LogLevel = strings.ToLower(config.LogLevel)
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
	config.LogFormat = strings.ToLower(config.LogFormat)
	if config.Workers == 0 {
		config.Workers = 4
	}
	if config.ChartOrder == "" {
		config.ChartOrder = "appearance"
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "utf-8"
	}
	config.CSVSettings.Encoding = strings.ToLower(config.CSVSettings.Encoding)
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	for key, aliases := range config.ColumnAliases {
		if !aliasKeys[strings.ToLower(key)] {
			return fmt.Errorf("column_aliases: unknown column %q (expected client, tpv, markup or date)", key)
		}
		for _, alias := range aliases {
			if strings.TrimSpace(alias) == "" {
				return fmt.Errorf("column_aliases.%s: empty alias", key)
			}
		}
	}

	return nil
}
