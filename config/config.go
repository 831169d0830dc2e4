package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tradehub      TradehubConfig      `yaml:"tradehub"`
	Hub           HubConfig           `yaml:"hub"`
	Web           WebConfig           `yaml:"web"`
	Trading       TradingConfig       `yaml:"trading"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	CloudWatch    CloudWatchConfig    `yaml:"cloudwatch"`
}

type TradehubConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// HubConfig controls the push-socket connection to the signal hub.
type HubConfig struct {
	URL           string `yaml:"url"`
	APIKey        string `yaml:"api_key"`
	TradedChannel string `yaml:"traded_channel"`
}

// WebConfig controls the reporting web server.
type WebConfig struct {
	Port      int    `yaml:"port"`
	Password  string `yaml:"password"`
	Precision int32  `yaml:"precision"`
	MaxColors int    `yaml:"max_colors"`
	PageSize  int    `yaml:"page_size"`
	GraphDays int    `yaml:"graph_days"`
}

type TradingConfig struct {
	QuoteAsset    string  `yaml:"quote_asset"`
	VirtualFunds  float64 `yaml:"virtual_funds"`
	BNBFreeFloat  float64 `yaml:"bnb_free_float"`
	MarginEnabled bool    `yaml:"margin_enabled"`
}

type NotificationsConfig struct {
	Enabled       bool     `yaml:"enabled"`
	SMTPHost      string   `yaml:"smtp_host"`
	SMTPPort      int      `yaml:"smtp_port"`
	SMTPUsername  string   `yaml:"smtp_username"`
	SMTPPassword  string   `yaml:"smtp_password"`
	From          string   `yaml:"from"`
	To            []string `yaml:"to"`
	RatePerMinute int      `yaml:"rate_per_minute"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

const defaultConfigPath = "config/config.yml"

var envConfigPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
	environmentStaging:    "config/config.staging.yml",
}

// LoadConfig reads and validates the application configuration. Secrets may
// be supplied through environment variables, which take precedence over the
// values in the file.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Web: WebConfig{
			Port:      8080,
			Precision: 8,
			MaxColors: 8,
			PageSize:  1000,
			GraphDays: 7,
		},
		Hub: HubConfig{
			TradedChannel: "traded_signal",
		},
		Trading: TradingConfig{
			QuoteAsset:   "USDT",
			VirtualFunds: 1000,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override secrets from environment variables if available
	if v := os.Getenv("HUB_API_KEY"); v != "" {
		config.Hub.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("WEB_PASSWORD"); v != "" {
		config.Web.Password = strings.TrimSpace(v)
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		config.Notifications.SMTPPassword = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Tradehub.Name == "" {
		return fmt.Errorf("tradehub.name is required")
	}

	if cfg.Tradehub.Version == "" {
		return fmt.Errorf("tradehub.version is required")
	}

	if cfg.Hub.URL == "" {
		return fmt.Errorf("hub.url is required")
	}

	if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
		return fmt.Errorf("web.port must be between 1 and 65535")
	}
	if cfg.Web.Precision <= 0 {
		return fmt.Errorf("web.precision must be greater than 0")
	}
	if cfg.Web.MaxColors <= 0 {
		return fmt.Errorf("web.max_colors must be greater than 0")
	}
	if cfg.Web.PageSize <= 0 {
		return fmt.Errorf("web.page_size must be greater than 0")
	}
	if cfg.Web.GraphDays <= 0 {
		return fmt.Errorf("web.graph_days must be greater than 0")
	}

	if cfg.Trading.BNBFreeFloat < 0 {
		return fmt.Errorf("trading.bnb_free_float must not be negative")
	}
	if cfg.Trading.QuoteAsset == "" {
		return fmt.Errorf("trading.quote_asset is required")
	}
	if cfg.Trading.VirtualFunds <= 0 {
		return fmt.Errorf("trading.virtual_funds must be greater than 0")
	}

	if cfg.Notifications.Enabled {
		if cfg.Notifications.SMTPHost == "" {
			return fmt.Errorf("notifications.smtp_host is required when notifications are enabled")
		}
		if cfg.Notifications.From == "" || len(cfg.Notifications.To) == 0 {
			return fmt.Errorf("notifications.from and notifications.to are required when notifications are enabled")
		}
	}

	return nil
}
