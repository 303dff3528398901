package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tgfeed/internal/cdn"
	"tgfeed/internal/ingest"
	"tgfeed/internal/output/feed"
	"tgfeed/internal/platform/config"
	"tgfeed/internal/process/media"
	"tgfeed/internal/process/retention"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)
	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var uploader media.Uploader

	var sweeper feed.Sweeper

	if cfg.MediaSink == config.SinkCDN {
		client := cdn.NewClient(cfg.CDNBaseURL, cfg.CDNUploadURL, cfg.CDNPrivateKey, cfg.MediaDownloadTimeout)
		uploader = client
		sweeper = retention.NewSweeper(client, cfg.CDNFolder, cfg.MediaRetention(), &logger)
	}

	reader := ingest.NewReader(cfg, uploader, &logger)
	store := feed.NewStore(cfg.OutputPath, &logger)
	aggregator := feed.NewAggregator(cfg, reader, store, sweeper, &logger)

	if err := reader.Run(ctx, aggregator.Run); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("fetcher stopped")
			return
		}

		logger.Fatal().Err(err).Msg("fetcher error")
	}

	logger.Info().Msg("fetch run complete")
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// setLogLevel sets the global log level based on the configuration.
func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
