// Package config provides configuration loading, defaults, and validation
// for the flowsegment CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "FLOWSEGMENT"

// Config is the fully resolved runtime configuration.
type Config struct {
	Provider    string `mapstructure:"provider"`
	Model       string `mapstructure:"model"`
	MaxTokens   int    `mapstructure:"max_tokens"`
	MaxAttempts int    `mapstructure:"max_attempts"`

	// Language selects the built-in lexicon table ("fr", ...); LexiconPath,
	// when set, loads a table from disk instead.
	Language    string `mapstructure:"language"`
	LexiconPath string `mapstructure:"lexicon_path"`

	// SourceLanguage/TargetLanguage are the human-readable names used in
	// the generator prompt.
	SourceLanguage string `mapstructure:"source_language"`
	TargetLanguage string `mapstructure:"target_language"`

	Escalation []EscalationStep `mapstructure:"escalation"`

	Redis RedisConfig `mapstructure:"redis"`
	Log   LogConfig   `mapstructure:"log"`
}

// EscalationStep is one entry of the retry escalation table.
type EscalationStep struct {
	Temperature float64 `mapstructure:"temperature"`
	DelayMs     int     `mapstructure:"delay_ms"`
}

func (s EscalationStep) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// RedisConfig enables the shared result cache when Addr is non-empty.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Prefix     string `mapstructure:"prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// newViper builds a pre-configured Viper instance: YAML file type,
// FLOWSEGMENT_ env prefix, automatic env binding, and a key replacer that
// maps "." → "_" so that nested keys like "redis.addr" resolve to
// FLOWSEGMENT_REDIS_ADDR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// Unmarshal only sees env values for keys viper already knows about,
	// so every scalar key is bound explicitly. The escalation table is
	// file-only; it has no sensible env encoding.
	for _, key := range []string{
		"provider", "model", "max_tokens", "max_attempts",
		"language", "lexicon_path", "source_language", "target_language",
		"redis.addr", "redis.prefix", "redis.ttl_seconds",
		"log.level",
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges FLOWSEGMENT_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from FLOWSEGMENT_* environment
// variables and defaults, with no config file required.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Language == "" {
		cfg.Language = "fr"
	}
	if cfg.SourceLanguage == "" {
		cfg.SourceLanguage = "French"
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "English"
	}
	if len(cfg.Escalation) == 0 {
		cfg.Escalation = []EscalationStep{
			{Temperature: 0.3, DelayMs: 0},
			{Temperature: 0.7, DelayMs: 500},
			{Temperature: 1.0, DelayMs: 1200},
		}
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "flowsegment:"
	}
	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 30 * 24 * 3600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-20250514",
	"openai":    "gpt-4o",
	"google":    "gemini-2.0-flash",
}

// DefaultModel returns the default model for a provider, or "" for an
// unknown provider.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

func validate(cfg *Config) error {
	switch cfg.Provider {
	case "anthropic", "openai", "google":
	default:
		return fmt.Errorf("config: unknown provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		return fmt.Errorf("config: model is required for provider %q", cfg.Provider)
	}
	for i, step := range cfg.Escalation {
		if step.Temperature < 0 || step.Temperature > 2 {
			return fmt.Errorf("config: escalation[%d]: temperature %v out of range [0, 2]", i, step.Temperature)
		}
		if step.DelayMs < 0 {
			return fmt.Errorf("config: escalation[%d]: negative delay", i)
		}
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", cfg.Log.Level)
	}
	return nil
}
