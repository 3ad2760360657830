package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	envPrefix                     = "LOTOSTATS"
	defaultHTTPAddress            = "0.0.0.0:8080"
	defaultDatabasePath           = "lotostats.db"
	defaultLogLevel               = "info"
	defaultLogFormat              = "json"
	defaultProviderBaseURL        = "https://lotobonheur.ci/api/results"
	defaultProviderReferer        = "https://lotobonheur.ci/resultats"
	defaultProviderTimeoutSeconds = 20
	defaultSyncInitialMonths      = 3
	defaultAIModel                = "gemini-2.0-flash"
	defaultAIHistoryWindow        = 75
	maxSyncInitialMonths          = 24
)

// AppConfig captures runtime configuration for the API server and sync command.
type AppConfig struct {
	HTTPAddress       string
	DatabasePath      string
	LogLevel          string
	LogFormat         string
	AllowedOrigins    []string
	ProviderBaseURL   string
	ProviderReferer   string
	ProviderTimeout   time.Duration
	SyncInitialMonths int
	SyncSchedule      string
	AIAPIKey          string
	AIModel           string
	AIHistoryWindow   int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("provider.base_url", defaultProviderBaseURL)
	configViper.SetDefault("provider.referer", defaultProviderReferer)
	configViper.SetDefault("provider.timeout_seconds", defaultProviderTimeoutSeconds)
	configViper.SetDefault("sync.initial_months", defaultSyncInitialMonths)
	configViper.SetDefault("sync.schedule", "")
	configViper.SetDefault("ai.api_key", "")
	configViper.SetDefault("ai.model", defaultAIModel)
	configViper.SetDefault("ai.history_window", defaultAIHistoryWindow)
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       configViper.GetString("http.address"),
		DatabasePath:      configViper.GetString("database.path"),
		LogLevel:          configViper.GetString("log.level"),
		LogFormat:         configViper.GetString("log.format"),
		AllowedOrigins:    splitList(configViper.GetStringSlice("http.allowed_origins")),
		ProviderBaseURL:   configViper.GetString("provider.base_url"),
		ProviderReferer:   configViper.GetString("provider.referer"),
		ProviderTimeout:   time.Duration(configViper.GetInt("provider.timeout_seconds")) * time.Second,
		SyncInitialMonths: configViper.GetInt("sync.initial_months"),
		SyncSchedule:      strings.TrimSpace(configViper.GetString("sync.schedule")),
		AIAPIKey:          strings.TrimSpace(configViper.GetString("ai.api_key")),
		AIModel:           configViper.GetString("ai.model"),
		AIHistoryWindow:   configViper.GetInt("ai.history_window"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	parsed, err := url.Parse(c.ProviderBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("provider.base_url must be an absolute url")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be positive")
	}
	if c.SyncInitialMonths < 1 || c.SyncInitialMonths > maxSyncInitialMonths {
		return fmt.Errorf("sync.initial_months must be between 1 and %d", maxSyncInitialMonths)
	}
	if c.SyncSchedule != "" {
		if _, err := cron.ParseStandard(c.SyncSchedule); err != nil {
			return fmt.Errorf("sync.schedule is invalid: %w", err)
		}
	}
	if c.AIHistoryWindow <= 0 {
		return fmt.Errorf("ai.history_window must be positive")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console")
	}
	return nil
}

// PredictionsEnabled reports whether an AI key is configured.
func (c AppConfig) PredictionsEnabled() bool {
	return c.AIAPIKey != ""
}

func splitList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
