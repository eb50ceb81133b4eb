package config

import (
	"fmt"
	"time"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Deliberately does NOT check GEMINI_API_KEY: a missing key must not block
// startup, it is surfaced by the model client on first use.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Model configuration
	if c.ChatModel == "" {
		return fmt.Errorf("%w: chat_model cannot be empty", ErrInvalidModelName)
	}
	if c.ImageModel == "" {
		return fmt.Errorf("%w: image_model cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0 (maximum creativity)
	// Reference: Gemini API documentation
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// Corpus configuration
	switch c.Corpus.Variant {
	case VariantHierarchical:
		if c.Corpus.ManifestURL == "" {
			return fmt.Errorf("%w: corpus.manifest_url is required for the hierarchical variant", ErrInvalidCorpusURL)
		}
		if c.Corpus.BaseURL == "" {
			return fmt.Errorf("%w: corpus.base_url is required for the hierarchical variant", ErrInvalidCorpusURL)
		}
	case VariantFlat:
		if len(c.Corpus.RecordURLs) == 0 {
			return fmt.Errorf("%w: corpus.record_urls is required for the flat variant", ErrInvalidCorpusURL)
		}
	default:
		return fmt.Errorf("%w: %q (expected %q or %q)",
			ErrInvalidVariant, c.Corpus.Variant, VariantHierarchical, VariantFlat)
	}

	if c.Corpus.ImageBaseURL == "" {
		return fmt.Errorf("%w: corpus.image_base_url cannot be empty", ErrInvalidCorpusURL)
	}

	// Turn timeout bounds the "stuck typing" state; zero would disable it.
	if c.TurnTimeout < 5*time.Second || c.TurnTimeout > 30*time.Minute {
		return fmt.Errorf("%w: must be between 5s and 30m, got %s", ErrInvalidTurnTimeout, c.TurnTimeout)
	}

	if c.RequestsPerMinute < 1 || c.RequestsPerMinute > 1000 {
		return fmt.Errorf("%w: requests_per_minute must be between 1 and 1000, got %d",
			ErrInvalidRateLimit, c.RequestsPerMinute)
	}
	if c.RateBurst < 1 || c.RateBurst > 100 {
		return fmt.Errorf("%w: rate_burst must be between 1 and 100, got %d",
			ErrInvalidRateLimit, c.RateBurst)
	}

	return nil
}
