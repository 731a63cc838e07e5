package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Validation ValidationConfig `yaml:"validation"`
	Spikes     SpikesConfig     `yaml:"spikes"`
	Insights   InsightsConfig   `yaml:"insights"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// StorageConfig selects and configures the log store backend
type StorageConfig struct {
	Backend    string           `yaml:"backend"` // "memory", "postgres", or "opensearch"
	Postgres   PostgresConfig   `yaml:"postgres"`
	OpenSearch OpenSearchConfig `yaml:"opensearch"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// OpenSearchConfig contains OpenSearch connection settings
type OpenSearchConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

// ValidationConfig contains schema/domain validation parameters
type ValidationConfig struct {
	AllowedLevels   []string      `yaml:"allowed_levels"`
	MaxMessageBytes int           `yaml:"max_message_bytes"`
	MaxFutureSkew   time.Duration `yaml:"max_future_skew"`
}

// SpikesConfig contains spike detection defaults
type SpikesConfig struct {
	WindowMinutes   int     `yaml:"window_minutes"`
	RatioThreshold  float64 `yaml:"ratio_threshold"`
	BaselineWindows int     `yaml:"baseline_windows"`
	MinCount        int     `yaml:"min_count"`
	Epsilon         float64 `yaml:"epsilon"`
}

// InsightsConfig contains summarizer provider settings. Providers are tried
// in priority order: OpenRouter, Gemini, OpenAI, then the static fallback.
type InsightsConfig struct {
	TopGroupsLimit  int           `yaml:"top_groups_limit"`
	Timeout         time.Duration `yaml:"timeout"`
	OpenRouterKey   string        `yaml:"openrouter_api_key"`
	OpenRouterModel string        `yaml:"openrouter_model"`
	GeminiKey       string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	OpenAIKey       string        `yaml:"openai_api_key"`
	OpenAIModel     string        `yaml:"openai_model"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from a YAML file with environment variable substitution
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Substitute environment variables
	content := string(data)
	content = substituteEnvVars(content)

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied, without reading
// a file. Used when no config file is present.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}

// applyDefaults applies default values for optional configuration parameters
func applyDefaults(config *Config) {
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 15 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 15 * time.Second
	}
	if config.Storage.Backend == "" {
		config.Storage.Backend = "memory"
	}
	if config.Storage.Postgres.Host == "" {
		config.Storage.Postgres.Host = "localhost"
	}
	if config.Storage.Postgres.Port == 0 {
		config.Storage.Postgres.Port = 5432
	}
	if config.Storage.Postgres.User == "" {
		config.Storage.Postgres.User = "postgres"
	}
	if config.Storage.Postgres.Database == "" {
		config.Storage.Postgres.Database = "logs"
	}
	if config.Storage.Postgres.SSLMode == "" {
		config.Storage.Postgres.SSLMode = "disable"
	}
	if config.Storage.OpenSearch.Index == "" {
		config.Storage.OpenSearch.Index = "canonical-logs"
	}
	if len(config.Validation.AllowedLevels) == 0 {
		config.Validation.AllowedLevels = []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	}
	if config.Validation.MaxMessageBytes == 0 {
		config.Validation.MaxMessageBytes = 50000
	}
	if config.Validation.MaxFutureSkew == 0 {
		config.Validation.MaxFutureSkew = 5 * time.Minute
	}
	if config.Spikes.WindowMinutes == 0 {
		config.Spikes.WindowMinutes = 5
	}
	if config.Spikes.RatioThreshold == 0 {
		config.Spikes.RatioThreshold = 2.0
	}
	if config.Spikes.BaselineWindows == 0 {
		config.Spikes.BaselineWindows = 6
	}
	if config.Spikes.MinCount == 0 {
		config.Spikes.MinCount = 3
	}
	if config.Spikes.Epsilon == 0 {
		config.Spikes.Epsilon = 0.1
	}
	if config.Insights.TopGroupsLimit == 0 {
		config.Insights.TopGroupsLimit = 10
	}
	if config.Insights.Timeout == 0 {
		config.Insights.Timeout = 30 * time.Second
	}
	if config.Insights.OpenRouterModel == "" {
		config.Insights.OpenRouterModel = "google/gemini-2.5-flash"
	}
	if config.Insights.GeminiModel == "" {
		config.Insights.GeminiModel = "gemini-1.5-flash"
	}
	if config.Insights.OpenAIModel == "" {
		config.Insights.OpenAIModel = "gpt-4o-mini"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

// validate checks if the configuration is valid
func validate(config *Config) error {
	switch config.Storage.Backend {
	case "memory":
	case "postgres":
		if config.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
	case "opensearch":
		if config.Storage.OpenSearch.URL == "" {
			return fmt.Errorf("storage.opensearch.url is required")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", config.Storage.Backend)
	}
	if config.Validation.MaxMessageBytes <= 0 {
		return fmt.Errorf("validation.max_message_bytes must be positive")
	}
	if config.Spikes.WindowMinutes <= 0 {
		return fmt.Errorf("spikes.window_minutes must be positive")
	}
	if config.Spikes.RatioThreshold < 1.0 {
		return fmt.Errorf("spikes.ratio_threshold must be at least 1.0")
	}
	if config.Spikes.BaselineWindows <= 0 {
		return fmt.Errorf("spikes.baseline_windows must be positive")
	}
	return nil
}
