package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/KaramelBytes/stability-cli/internal/config"
	"github.com/KaramelBytes/stability-cli/internal/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set stability configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. List keys (excluded_sheets,
metric_patterns, exclude_patterns, date_patterns) take a comma separated value.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireConfig(); err != nil {
			return err
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	var err error
	switch key {
	case "source_path":
		c.SourcePath = val
	case "source_url":
		c.SourceURL = val
	case "cache_path":
		c.CachePath = val
	case "static_values_sheet":
		c.StaticValuesSheet = val
	case "default_business_unit":
		c.DefaultBusinessUnit = val
	case "excluded_sheets":
		c.ExcludedSheets = splitList(val)
	case "metric_patterns":
		c.MetricPatterns = splitList(val)
	case "exclude_patterns":
		c.ExcludePatterns = splitList(val)
	case "date_patterns":
		c.DatePatterns = splitList(val)
	case "default_threshold":
		c.DefaultThreshold, err = parseFraction(key, val)
	case "fraction_proportion":
		c.FractionProportion, err = parseFraction(key, val)
	case "rescale_proportion":
		c.RescaleProportion, err = parseFraction(key, val)
	case "output_dir":
		c.OutputDir = val
	case "csv_filename_template":
		if !strings.Contains(val, "{bu}") {
			return fmt.Errorf("invalid csv_filename_template: %q must contain {bu}", val)
		}
		c.CSVFilenameTemplate = val
	case "chart_width":
		c.ChartWidth, err = parsePositive(key, val)
	case "chart_height":
		c.ChartHeight, err = parsePositive(key, val)
	case "summary_chart_height":
		c.SummaryChartHeight, err = parsePositive(key, val)
	case "workers":
		c.Workers, err = parsePositive(key, val)
	case "projects_dir":
		c.ProjectsDir = val
	case "log_level":
		lvl := strings.ToLower(strings.TrimSpace(val))
		if !lo.Contains([]string{"debug", "info", "warn", "warning", "error"}, lvl) {
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
		c.LogLevel = logging.ParseLevel(lvl).String()
	case "log_pretty":
		c.LogPretty, err = strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for log_pretty: %v", val)
		}
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = parsePositive(key, val)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = parsePositive(key, val)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = parsePositive(key, val)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = parsePositive(key, val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func splitList(val string) []string {
	parts := lo.Map(strings.Split(val, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Compact(parts)
}

// parseFraction accepts "0.05" or "5%".
func parseFraction(key, val string) (float64, error) {
	s := strings.TrimSpace(val)
	pct := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid fraction for %s: %v", key, val)
	}
	if pct {
		f /= 100
	}
	if f > 1 {
		return 0, fmt.Errorf("invalid fraction for %s: %v (must be between 0 and 1)", key, val)
	}
	return f, nil
}

func parsePositive(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
	}
	return i, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
}
