// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.mathbot/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: chat/image model selection, temperature
//   - Corpus: problem library variant and source URLs
//   - Serve: HTTP listen address, turn timeout, model rate limit
//
// NOTE: GEMINI_API_KEY is read by the model client at first use, not via
// Viper. Its absence must not fail startup; the client surfaces a typed
// error when the first model call is attempted.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidModelName indicates a model name is empty or malformed.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidVariant indicates an unknown corpus variant.
	ErrInvalidVariant = errors.New("invalid corpus variant")

	// ErrInvalidCorpusURL indicates a missing or malformed corpus URL.
	ErrInvalidCorpusURL = errors.New("invalid corpus URL")

	// ErrInvalidTurnTimeout indicates the turn timeout is out of range.
	ErrInvalidTurnTimeout = errors.New("invalid turn timeout")

	// ErrInvalidRateLimit indicates the model rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// Corpus variant identifiers used in CorpusConfig.Variant.
const (
	// VariantHierarchical addresses tasks by book → chapter → task id,
	// loading a manifest at startup and chapter documents lazily.
	VariantHierarchical = "hierarchical"

	// VariantFlat addresses tasks by (section substring, number), loading a
	// fixed set of NDJSON record files at startup.
	VariantFlat = "flat"
)

// CorpusConfig holds problem-library source configuration.
type CorpusConfig struct {
	// Variant selects the addressing scheme: "hierarchical" or "flat".
	Variant string `mapstructure:"variant" json:"variant"`

	// ManifestURL is the global chapter index document (hierarchical).
	ManifestURL string `mapstructure:"manifest_url" json:"manifest_url"`

	// BaseURL prefixes relative chapter paths from the manifest.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// RecordURLs are the NDJSON record documents (flat).
	RecordURLs []string `mapstructure:"record_urls" json:"record_urls"`

	// ImageBaseURL prefixes tokens extracted from {{PIC:...}} directives.
	ImageBaseURL string `mapstructure:"image_base_url" json:"image_base_url"`
}

// Config stores application configuration.
type Config struct {
	// AI model configuration
	ChatModel   string  `mapstructure:"chat_model" json:"chat_model"`
	ImageModel  string  `mapstructure:"image_model" json:"image_model"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`

	// Corpus configuration
	Corpus CorpusConfig `mapstructure:"corpus" json:"corpus"`

	// Serve configuration
	Addr        string        `mapstructure:"addr" json:"addr"`
	TurnTimeout time.Duration `mapstructure:"turn_timeout" json:"turn_timeout"`

	// Model call rate limiting (proactive, before quota errors)
	RequestsPerMinute int `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	RateBurst         int `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.mathbot/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mathbot")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
// Corpus URLs default to the public tasks-db repository the original
// library was published from.
func setDefaults() {
	// AI defaults
	viper.SetDefault("chat_model", "gemini-2.5-pro")
	viper.SetDefault("image_model", "gemini-2.5-flash-image")
	viper.SetDefault("temperature", 0.7)

	// Corpus defaults
	viper.SetDefault("corpus.variant", VariantHierarchical)
	viper.SetDefault("corpus.manifest_url",
		"https://raw.githubusercontent.com/leonidmikhlin239/tasks-db/master/global-chapter-index.json")
	viper.SetDefault("corpus.base_url",
		"https://raw.githubusercontent.com/leonidmikhlin239/tasks-db/master/")
	viper.SetDefault("corpus.record_urls", []string{})
	viper.SetDefault("corpus.image_base_url",
		"https://endearing-bubblegum-26ba72.netlify.app/")

	// Serve defaults
	viper.SetDefault("addr", "127.0.0.1:8080")
	viper.SetDefault("turn_timeout", "120s")

	// Rate limit defaults
	viper.SetDefault("requests_per_minute", 30)
	viper.SetDefault("rate_burst", 5)
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("chat_model", "MATHBOT_CHAT_MODEL")
	mustBind("image_model", "MATHBOT_IMAGE_MODEL")
	mustBind("addr", "MATHBOT_ADDR")
	mustBind("corpus.variant", "MATHBOT_CORPUS_VARIANT")
	mustBind("corpus.manifest_url", "MATHBOT_MANIFEST_URL")
	mustBind("corpus.base_url", "MATHBOT_CORPUS_BASE_URL")
	mustBind("corpus.image_base_url", "MATHBOT_IMAGE_BASE_URL")

	// NOTE: GEMINI_API_KEY is read directly by the model client, not via
	// Viper. Its presence is checked at first model use, not here.
}
