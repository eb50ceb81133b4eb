package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/zadachnik/mathbot/internal/chat"
	"github.com/zadachnik/mathbot/internal/config"
	"github.com/zadachnik/mathbot/internal/corpus"
	"github.com/zadachnik/mathbot/internal/log"
	"github.com/zadachnik/mathbot/internal/model"
	"github.com/zadachnik/mathbot/internal/picture"
	"github.com/zadachnik/mathbot/internal/transcript"
	"github.com/zadachnik/mathbot/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MathBot web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe loads the corpus, wires the pipeline and runs the HTTP server
// until interrupted.
func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	level := slog.LevelInfo
	if os.Getenv("MATHBOT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	logger.Info("starting mathbot", "version", AppVersion)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := loadCorpus(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RateBurst)
	}

	client, err := model.New(model.Config{
		ChatModel:   cfg.ChatModel,
		ImageModel:  cfg.ImageModel,
		Temperature: cfg.Temperature,
		Limiter:     limiter,
		Logger:      logger.With("component", "model"),
	})
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}

	tl := transcript.New()
	pipeline, err := chat.New(chat.Config{
		Corpus:     store,
		Transcript: tl,
		Sessions: func(ctx context.Context, sc model.SessionContext) (chat.Transport, error) {
			return client.StartSession(ctx, sc)
		},
		Illustrator: client,
		Extractor:   picture.Extractor{BaseURL: cfg.Corpus.ImageBaseURL},
		Logger:      logger.With("component", "chat"),
		TurnTimeout: cfg.TurnTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Pipeline:   pipeline,
		Transcript: tl,
		Corpus:     store,
		Logger:     logger.With("component", "web"),
	})
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	logger.Info("web UI ready", "addr", cfg.Addr, "corpus", cfg.Corpus.Variant)
	return server.Run(ctx, cfg.Addr)
}

// loadCorpus loads whichever corpus variant the config selects, logging
// progress as it goes.
func loadCorpus(ctx context.Context, cfg *config.Config, logger log.Logger) (*corpus.Store, error) {
	start := time.Now()
	progress := func(p corpus.Progress) {
		logger.Info("corpus loading",
			"status", p.Status,
			"files", fmt.Sprintf("%d/%d", p.FilesProcessed, p.FilesDiscovered),
			"records", p.Records)
	}

	var (
		store *corpus.Store
		err   error
	)
	switch cfg.Corpus.Variant {
	case config.VariantFlat:
		store, err = corpus.LoadRecords(ctx, corpus.RecordsConfig{
			URLs:   cfg.Corpus.RecordURLs,
			Logger: logger.With("component", "corpus"),
		}, progress)
	default:
		store, err = corpus.LoadLibrary(ctx, corpus.LibraryConfig{
			ManifestURL: cfg.Corpus.ManifestURL,
			BaseURL:     cfg.Corpus.BaseURL,
			Logger:      logger.With("component", "corpus"),
		}, progress)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("corpus loaded", "variant", cfg.Corpus.Variant, "elapsed", time.Since(start))
	return store, nil
}
