// Package model wraps the Gemini API behind the small surface the chat
// pipeline needs: immutable conversation session handles with declared
// tools, response streaming as a channel of increments, and one-shot
// illustration generation.
//
// The underlying genai client is constructed lazily on first use so a
// missing API key defers to a typed error at the first model call instead
// of crashing startup.
package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/zadachnik/mathbot/internal/log"
)

// ErrMissingAPIKey indicates no Gemini API key is available. Checked with
// errors.Is at the call site that first needs the model.
var ErrMissingAPIKey = errors.New("missing API key")

// apiKeyEnv is the environment variable holding the Gemini API key.
const apiKeyEnv = "GEMINI_API_KEY"

// Config contains all required parameters for the model client.
type Config struct {
	// ChatModel handles conversations (e.g. "gemini-2.5-pro").
	ChatModel string

	// ImageModel handles illustration generation.
	ImageModel string

	// Temperature for chat sessions.
	Temperature float32

	// APIKey overrides the GEMINI_API_KEY environment variable. Optional.
	APIKey string

	// Limiter proactively rate-limits outbound model calls. Optional.
	Limiter *rate.Limiter

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.ChatModel == "" {
		return errors.New("chat model is required")
	}
	if cfg.ImageModel == "" {
		return errors.New("image model is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Client is the explicitly constructed, dependency-injected model client.
// Safe for concurrent use.
type Client struct {
	cfg     Config
	logger  log.Logger
	limiter *rate.Limiter

	mu  sync.Mutex
	api *genai.Client // nil until first use
}

// New creates a model client. The API key is NOT checked here.
func New(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		logger:  cfg.Logger,
		limiter: cfg.Limiter,
	}, nil
}

// ensureAPI returns the underlying genai client, constructing it on first
// use. A missing key is reported as ErrMissingAPIKey with guidance.
func (c *Client) ensureAPI(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api != nil {
		return c.api, nil
	}

	key := c.cfg.APIKey
	if key == "" {
		key = os.Getenv(apiKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: set %s (get a key at https://ai.google.dev/gemini-api/docs/api-key)",
			ErrMissingAPIKey, apiKeyEnv)
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	c.logger.Info("model client initialized", "chat_model", c.cfg.ChatModel, "image_model", c.cfg.ImageModel)
	c.api = api
	return api, nil
}

// wait applies the proactive rate limit, if configured.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
