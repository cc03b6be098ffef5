package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/stability-cli/internal/analysis"
	"github.com/KaramelBytes/stability-cli/internal/export"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".stability"

// Global configuration structure.
type Global struct {
	// Workbook source
	SourcePath string `mapstructure:"source_path" yaml:"source_path"`
	SourceURL  string `mapstructure:"source_url" yaml:"source_url"`
	CachePath  string `mapstructure:"cache_path" yaml:"cache_path"`

	// Workbook layout
	StaticValuesSheet   string   `mapstructure:"static_values_sheet" yaml:"static_values_sheet"`
	ExcludedSheets      []string `mapstructure:"excluded_sheets" yaml:"excluded_sheets"`
	DefaultBusinessUnit string   `mapstructure:"default_business_unit" yaml:"default_business_unit"`

	// Metric discovery and normalization
	MetricPatterns     []string `mapstructure:"metric_patterns" yaml:"metric_patterns"`
	ExcludePatterns    []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	DatePatterns       []string `mapstructure:"date_patterns" yaml:"date_patterns"`
	DefaultThreshold   float64  `mapstructure:"default_threshold" yaml:"default_threshold"`
	FractionProportion float64  `mapstructure:"fraction_proportion" yaml:"fraction_proportion"`
	RescaleProportion  float64  `mapstructure:"rescale_proportion" yaml:"rescale_proportion"`

	// Output
	OutputDir           string `mapstructure:"output_dir" yaml:"output_dir"`
	CSVFilenameTemplate string `mapstructure:"csv_filename_template" yaml:"csv_filename_template"`
	ChartWidth          int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight         int    `mapstructure:"chart_height" yaml:"chart_height"`
	SummaryChartHeight  int    `mapstructure:"summary_chart_height" yaml:"summary_chart_height"`
	Workers             int    `mapstructure:"workers" yaml:"workers"`
	ProjectsDir         string `mapstructure:"projects_dir" yaml:"projects_dir"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty" yaml:"log_pretty"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`
}

// EngineOptions converts the metric settings into analysis options.
func (c *Global) EngineOptions() analysis.Options {
	return analysis.Options{
		MetricPatterns:     c.MetricPatterns,
		ExcludePatterns:    c.ExcludePatterns,
		DatePatterns:       c.DatePatterns,
		DefaultThreshold:   c.DefaultThreshold,
		FractionProportion: c.FractionProportion,
		RescaleProportion:  c.RescaleProportion,
	}
}

// Dir returns ~/.stability.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.stability/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := analysis.DefaultOptions()
	v.SetDefault("source_path", "")
	v.SetDefault("source_url", "")
	v.SetDefault("cache_path", "")
	v.SetDefault("static_values_sheet", "Static Values")
	v.SetDefault("excluded_sheets", []string{"Static Values", "Sheet1", "Sheet2", "Sheet3", "Template", "Instructions"})
	v.SetDefault("default_business_unit", "Kruidvat")
	v.SetDefault("metric_patterns", def.MetricPatterns)
	v.SetDefault("exclude_patterns", def.ExcludePatterns)
	v.SetDefault("date_patterns", def.DatePatterns)
	v.SetDefault("default_threshold", def.DefaultThreshold)
	v.SetDefault("fraction_proportion", def.FractionProportion)
	v.SetDefault("rescale_proportion", def.RescaleProportion)
	v.SetDefault("output_dir", "reports")
	v.SetDefault("csv_filename_template", export.DefaultCSVTemplate)
	v.SetDefault("chart_width", 1000)
	v.SetDefault("chart_height", 400)
	v.SetDefault("summary_chart_height", 500)
	v.SetDefault("workers", 4)
	v.SetDefault("projects_dir", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
}

// Load loads configuration from file, env, and defaults. A .env file in the
// working directory is read first so its variables feed the env layer.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STABILITY")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ProjectsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.ProjectsDir = filepath.Join(dir, "projects")
	}
	if c.CachePath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.CachePath = filepath.Join(dir, "cache", "stability_data.xlsx")
	}
	return &c, nil
}
