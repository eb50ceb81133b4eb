package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes validation, for tests to
// break one field at a time.
func validConfig() *Config {
	return &Config{
		ChatModel:         "gemini-2.5-pro",
		ImageModel:        "gemini-2.5-flash-image",
		Temperature:       0.7,
		Corpus: CorpusConfig{
			Variant:      VariantHierarchical,
			ManifestURL:  "https://example.com/index.json",
			BaseURL:      "https://example.com/",
			ImageBaseURL: "https://example.com/pics/",
		},
		Addr:              "127.0.0.1:8080",
		TurnTimeout:       2 * time.Minute,
		RequestsPerMinute: 30,
		RateBurst:         5,
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "empty chat model",
			mutate:  func(c *Config) { c.ChatModel = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty image model",
			mutate:  func(c *Config) { c.ImageModel = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature too high",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "temperature negative",
			mutate:  func(c *Config) { c.Temperature = -0.1 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "unknown variant",
			mutate:  func(c *Config) { c.Corpus.Variant = "graph" },
			wantErr: ErrInvalidVariant,
		},
		{
			name:    "hierarchical without manifest",
			mutate:  func(c *Config) { c.Corpus.ManifestURL = "" },
			wantErr: ErrInvalidCorpusURL,
		},
		{
			name: "flat without record urls",
			mutate: func(c *Config) {
				c.Corpus.Variant = VariantFlat
				c.Corpus.RecordURLs = nil
			},
			wantErr: ErrInvalidCorpusURL,
		},
		{
			name:    "missing image base",
			mutate:  func(c *Config) { c.Corpus.ImageBaseURL = "" },
			wantErr: ErrInvalidCorpusURL,
		},
		{
			name:    "turn timeout too small",
			mutate:  func(c *Config) { c.TurnTimeout = time.Second },
			wantErr: ErrInvalidTurnTimeout,
		},
		{
			name:    "rate limit zero",
			mutate:  func(c *Config) { c.RequestsPerMinute = 0 },
			wantErr: ErrInvalidRateLimit,
		},
		{
			name:    "burst zero",
			mutate:  func(c *Config) { c.RateBurst = 0 },
			wantErr: ErrInvalidRateLimit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidate_FlatVariantOK(t *testing.T) {
	cfg := validConfig()
	cfg.Corpus.Variant = VariantFlat
	cfg.Corpus.RecordURLs = []string{"https://example.com/tasks.ndjson"}
	require.NoError(t, cfg.Validate())
}
