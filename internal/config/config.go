package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// GroupingRule marks rows carrying Field as one section of a complex report.
type GroupingRule struct {
	Field string `mapstructure:"field" yaml:"field"`
	Label string `mapstructure:"label" yaml:"label,omitempty"`
}

// DatasetEntry registers a dataset the local backend can answer from.
type DatasetEntry struct {
	ID          string `mapstructure:"id" yaml:"id"`
	Name        string `mapstructure:"name" yaml:"name"`
	Path        string `mapstructure:"path" yaml:"path"`
	Description string `mapstructure:"description" yaml:"description,omitempty"`
}

// Global configuration structure.
type Global struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Report assembly
	DefaultFormat    string         `mapstructure:"default_format" yaml:"default_format"`
	ReportIDStrategy string         `mapstructure:"report_id_strategy" yaml:"report_id_strategy"`
	PlaceholderText  string         `mapstructure:"placeholder_text" yaml:"placeholder_text"`
	EmptyResultsText string         `mapstructure:"empty_results_text" yaml:"empty_results_text"`
	ChartColor       string         `mapstructure:"chart_color" yaml:"chart_color"`
	GroupingRules    []GroupingRule `mapstructure:"grouping_rules" yaml:"grouping_rules"`

	Datasets         []DatasetEntry `mapstructure:"datasets" yaml:"datasets"`
	MaxRows          int            `mapstructure:"max_rows" yaml:"max_rows"`
	MaxHistoryTokens int            `mapstructure:"max_history_tokens" yaml:"max_history_tokens"`

	ServerAddr string `mapstructure:"server_addr" yaml:"server_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists the scalar settings `config set` accepts.
var Keys = []string{
	"backend", "api_base_url", "api_key",
	"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
	"default_format", "report_id_strategy", "placeholder_text", "empty_results_text", "chart_color",
	"max_rows", "max_history_tokens", "server_addr", "log_level",
}

// Dir returns ~/.reportloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".reportloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.reportloom/config.yaml, creating the directory if necessary.
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
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", "local")
	v.SetDefault("api_base_url", "http://127.0.0.1:8000/api")
	// registered so REPORTLOOM_API_KEY is seen by Unmarshal
	v.SetDefault("api_key", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// assembly defaults
	v.SetDefault("default_format", "markdown")
	v.SetDefault("report_id_strategy", "uuid")
	v.SetDefault("placeholder_text", "Here are the results of your query.")
	v.SetDefault("empty_results_text", "The query returned no results.")
	v.SetDefault("chart_color", "#4F46E5")
	v.SetDefault("grouping_rules", []map[string]any{
		{"field": "Client", "label": "Client Analysis"},
		{"field": "TherapyArea", "label": "Therapy Area Analysis"},
	})
	v.SetDefault("max_rows", 100000)
	v.SetDefault("max_history_tokens", 2000)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("log_level", "info")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("REPORTLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
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
		switch {
		case errors.As(err, &notFound):
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Set assigns a scalar key from its string form, as used by `config set`.
func (c *Global) Set(key, value string) error {
	var n int
	intVal := func() error {
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s expects an integer: %w", key, err)
		}
		n = v
		return nil
	}
	switch key {
	case "backend":
		c.Backend = value
	case "api_base_url":
		c.APIBaseURL = value
	case "api_key":
		c.APIKey = value
	case "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms", "max_rows", "max_history_tokens":
		if err := intVal(); err != nil {
			return err
		}
		switch key {
		case "http_timeout_sec":
			c.HTTPTimeoutSec = n
		case "retry_max_attempts":
			c.RetryMaxAttempts = n
		case "retry_base_delay_ms":
			c.RetryBaseDelayMs = n
		case "retry_max_delay_ms":
			c.RetryMaxDelayMs = n
		case "max_rows":
			c.MaxRows = n
		default:
			c.MaxHistoryTokens = n
		}
	case "default_format":
		c.DefaultFormat = value
	case "report_id_strategy":
		c.ReportIDStrategy = value
	case "placeholder_text":
		c.PlaceholderText = value
	case "empty_results_text":
		c.EmptyResultsText = value
	case "chart_color":
		c.ChartColor = value
	case "server_addr":
		c.ServerAddr = value
	case "log_level":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
