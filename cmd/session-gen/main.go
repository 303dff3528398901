// Command session-gen performs the one-time interactive Telegram login and
// prints the TELEGRAM_SESSION value the fetcher runs with.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/rs/zerolog"

	"tgfeed/internal/ingest"
	"tgfeed/internal/platform/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage := ingest.NewSessionString()
	flow := ingest.NewTermAuth(cfg.TelegramPhone, cfg.Telegram2FAPassword, &logger).Flow()

	client := telegram.NewClient(cfg.TelegramAPIID, cfg.TelegramAPIHash, telegram.Options{
		SessionStorage: storage,
	})

	err = client.Run(ctx, func(ctx context.Context) error {
		if err := client.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetching self: %w", err)
		}

		logger.Info().Str("username", self.Username).Msg("Logged in")

		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("session generator stopped")
			return
		}

		logger.Fatal().Err(err).Msg("session generator error")
	}

	logger.Info().Msg("Session ready, export the line below")
	fmt.Println("TELEGRAM_SESSION=" + storage.Encoded())
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
