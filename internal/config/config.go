package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"changelens/internal/paths"
)

// CurrentVersion is the config schema version written by Save
const CurrentVersion = 1

// EnvPrefix is the prefix for environment overrides, e.g. CHANGELENS_GROUPING_THRESHOLD
const EnvPrefix = "CHANGELENS"

// Embedding provider names
const (
	ProviderLocal  = "local"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config represents the complete changelens configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version" yaml:"version"`

	Git       GitConfig       `json:"git" mapstructure:"git" toml:"git" yaml:"git"`
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding" toml:"embedding" yaml:"embedding"`
	Grouping  GroupingConfig  `json:"grouping" mapstructure:"grouping" toml:"grouping" yaml:"grouping"`
	Blame     BlameConfig     `json:"blame" mapstructure:"blame" toml:"blame" yaml:"blame"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging" yaml:"logging"`
}

// GitConfig contains git subprocess limits
type GitConfig struct {
	TimeoutMs      int   `json:"timeoutMs" mapstructure:"timeoutMs" toml:"timeoutMs" yaml:"timeoutMs"`
	MaxOutputBytes int64 `json:"maxOutputBytes" mapstructure:"maxOutputBytes" toml:"maxOutputBytes" yaml:"maxOutputBytes"`
}

// EmbeddingConfig selects and tunes the embedding provider
type EmbeddingConfig struct {
	Provider          string               `json:"provider" mapstructure:"provider" toml:"provider" yaml:"provider"`
	Model             string               `json:"model" mapstructure:"model" toml:"model" yaml:"model"`
	BaseURL           string               `json:"baseUrl" mapstructure:"baseUrl" toml:"baseUrl" yaml:"baseUrl"`
	APIKeyEnv         string               `json:"apiKeyEnv" mapstructure:"apiKeyEnv" toml:"apiKeyEnv" yaml:"apiKeyEnv"`
	Dimensions        int                  `json:"dimensions" mapstructure:"dimensions" toml:"dimensions" yaml:"dimensions"`
	BatchSize         int                  `json:"batchSize" mapstructure:"batchSize" toml:"batchSize" yaml:"batchSize"`
	RequestsPerSecond float64              `json:"requestsPerSecond" mapstructure:"requestsPerSecond" toml:"requestsPerSecond" yaml:"requestsPerSecond"`
	Cache             EmbeddingCacheConfig `json:"cache" mapstructure:"cache" toml:"cache" yaml:"cache"`
}

// EmbeddingCacheConfig controls the on-disk vector cache
type EmbeddingCacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled" toml:"enabled" yaml:"enabled"`
	TTLSeconds int  `json:"ttlSeconds" mapstructure:"ttlSeconds" toml:"ttlSeconds" yaml:"ttlSeconds"`
}

// GroupingConfig contains clustering defaults
type GroupingConfig struct {
	Threshold float64 `json:"threshold" mapstructure:"threshold" toml:"threshold" yaml:"threshold"`
}

// BlameConfig contains ownership rollup settings
type BlameConfig struct {
	TimeDecayHalfLifeDays int      `json:"timeDecayHalfLifeDays" mapstructure:"timeDecayHalfLifeDays" toml:"timeDecayHalfLifeDays" yaml:"timeDecayHalfLifeDays"`
	ExcludeBots           bool     `json:"excludeBots" mapstructure:"excludeBots" toml:"excludeBots" yaml:"excludeBots"`
	BotPatterns           []string `json:"botPatterns" mapstructure:"botPatterns" toml:"botPatterns" yaml:"botPatterns"`
	MinContribution       float64  `json:"minContribution" mapstructure:"minContribution" toml:"minContribution" yaml:"minContribution"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level" toml:"level" yaml:"level"`
	MaxSize    int64  `json:"maxSize" mapstructure:"maxSize" toml:"maxSize" yaml:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups" yaml:"maxBackups"`
}

// APIKey resolves the API key from the configured environment variable
func (e EmbeddingConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Git: GitConfig{
			TimeoutMs:      30000,
			MaxOutputBytes: 64 << 20,
		},
		Embedding: EmbeddingConfig{
			Provider:          ProviderLocal,
			Model:             "",
			BaseURL:           "",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimensions:        256,
			BatchSize:         32,
			RequestsPerSecond: 5,
			Cache: EmbeddingCacheConfig{
				Enabled:    true,
				TTLSeconds: 7 * 24 * 3600,
			},
		},
		Grouping: GroupingConfig{
			Threshold: 0.80,
		},
		Blame: BlameConfig{
			TimeDecayHalfLifeDays: 90,
			ExcludeBots:           true,
			BotPatterns: []string{
				`\[bot\]$`,
				`^dependabot`,
				`^renovate`,
				`^github-actions`,
			},
			MinContribution: 0.05,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("git.timeoutMs", d.Git.TimeoutMs)
	v.SetDefault("git.maxOutputBytes", d.Git.MaxOutputBytes)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.baseUrl", d.Embedding.BaseURL)
	v.SetDefault("embedding.apiKeyEnv", d.Embedding.APIKeyEnv)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.batchSize", d.Embedding.BatchSize)
	v.SetDefault("embedding.requestsPerSecond", d.Embedding.RequestsPerSecond)
	v.SetDefault("embedding.cache.enabled", d.Embedding.Cache.Enabled)
	v.SetDefault("embedding.cache.ttlSeconds", d.Embedding.Cache.TTLSeconds)

	v.SetDefault("grouping.threshold", d.Grouping.Threshold)

	v.SetDefault("blame.timeDecayHalfLifeDays", d.Blame.TimeDecayHalfLifeDays)
	v.SetDefault("blame.excludeBots", d.Blame.ExcludeBots)
	v.SetDefault("blame.botPatterns", d.Blame.BotPatterns)
	v.SetDefault("blame.minContribution", d.Blame.MinContribution)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// LoadConfig loads configuration from .changelens/config.{json,toml,yaml}.
// A missing file yields the defaults; CHANGELENS_* environment variables
// override both.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(paths.StateDir(repoRoot))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode renders the configuration as "json", "toml" or "yaml".
func (c *Config) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "toml":
		return toml.Marshal(c)
	case "yaml", "yml":
		return yaml.Marshal(c)
	}
	return nil, &ConfigError{Field: "format", Message: "unsupported config format " + strconv.Quote(format)}
}

// Save writes the configuration to path. The encoding is chosen by the
// file extension: .json, .toml, .yaml or .yml.
func (c *Config) Save(path string) error {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return &ConfigError{Field: "path", Message: "config path needs an extension"}
	}
	data, err := c.Encode(ext)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Git.TimeoutMs <= 0 {
		return &ConfigError{Field: "git.timeoutMs", Message: "must be positive"}
	}
	if c.Git.MaxOutputBytes <= 0 {
		return &ConfigError{Field: "git.maxOutputBytes", Message: "must be positive"}
	}

	switch c.Embedding.Provider {
	case ProviderLocal, ProviderOllama, ProviderOpenAI:
	default:
		return &ConfigError{Field: "embedding.provider", Message: fmt.Sprintf("unknown provider %q", c.Embedding.Provider)}
	}
	if c.Embedding.Provider == ProviderLocal && c.Embedding.Dimensions <= 0 {
		return &ConfigError{Field: "embedding.dimensions", Message: "must be positive"}
	}
	if c.Embedding.BatchSize < 0 {
		return &ConfigError{Field: "embedding.batchSize", Message: "must not be negative"}
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return &ConfigError{Field: "embedding.requestsPerSecond", Message: "must not be negative"}
	}

	if c.Grouping.Threshold <= 0 || c.Grouping.Threshold > 1 {
		return &ConfigError{Field: "grouping.threshold", Message: "must be in (0, 1]"}
	}
	if c.Blame.MinContribution < 0 || c.Blame.MinContribution > 1 {
		return &ConfigError{Field: "blame.minContribution", Message: "must be in [0, 1]"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
