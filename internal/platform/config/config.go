// Package config loads the fetcher configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Media sink kinds selectable through MEDIA_SINK.
const (
	SinkLocal = "local"
	SinkCDN   = "cdn"
)

const hoursPerDay = 24

// Per-sink defaults for the knobs left at zero. The CDN variant fetches
// more because uploaded images cost no repository space.
const (
	defaultLocalPostsPerChannel = 10
	defaultLocalCategoryCap     = 30
	defaultLocalDownloadTimeout = 10 * time.Second

	defaultCDNPostsPerChannel = 20
	defaultCDNCategoryCap     = 80
	defaultCDNDownloadTimeout = 30 * time.Second
)

var (
	ErrNoChannels       = errors.New("no channels configured")
	ErrUnknownMediaSink = errors.New("unknown media sink")
	ErrCDNKeyMissing    = errors.New("cdn sink requires CDN_PRIVATE_KEY")
	ErrMediaDirMissing  = errors.New("local sink requires MEDIA_DIR")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	TelegramAPIID       int    `env:"TELEGRAM_API_ID,required"`
	TelegramAPIHash     string `env:"TELEGRAM_API_HASH,required"`
	TelegramSession     string `env:"TELEGRAM_SESSION"`
	TelegramPhone       string `env:"TELEGRAM_PHONE"`
	Telegram2FAPassword string `env:"TELEGRAM_2FA_PASSWORD"`

	TradingChannels []string `env:"TELEGRAM_TRADING_CHANNELS" envSeparator:","`
	AirdropChannels []string `env:"TELEGRAM_AIRDROP_CHANNELS" envSeparator:","`

	PostsPerChannel int  `env:"POSTS_PER_CHANNEL"`
	CategoryCap     int  `env:"CATEGORY_CAP"`
	MaxDaysOld      int  `env:"MAX_DAYS_OLD" envDefault:"7"`
	MinTextLength   int  `env:"MIN_TEXT_LENGTH" envDefault:"10"`
	FilterForwards  bool `env:"FILTER_FORWARDS" envDefault:"true"`

	MediaSink            string        `env:"MEDIA_SINK" envDefault:"local"`
	MediaDir             string        `env:"MEDIA_DIR" envDefault:"client/public/telegram"`
	MediaDownloadTimeout time.Duration `env:"MEDIA_DOWNLOAD_TIMEOUT"`
	MediaRetentionDays   int           `env:"MEDIA_RETENTION_DAYS" envDefault:"30"`

	ChannelPause time.Duration `env:"CHANNEL_PAUSE" envDefault:"1s"`
	OutputPath   string        `env:"OUTPUT_PATH" envDefault:"telegram_posts.json"`

	// CDN sink
	CDNPrivateKey string `env:"CDN_PRIVATE_KEY"`
	CDNBaseURL    string `env:"CDN_BASE_URL" envDefault:"https://api.imagekit.io"`
	CDNUploadURL  string `env:"CDN_UPLOAD_URL" envDefault:"https://upload.imagekit.io"`
	CDNFolder     string `env:"CDN_FOLDER" envDefault:"/telegram"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	cfg.TradingChannels = cleanChannels(cfg.TradingChannels)
	cfg.AirdropChannels = cleanChannels(cfg.AirdropChannels)
	applySinkDefaults(cfg)

	return cfg, nil
}

// Validate checks the cross-field requirements struct tags cannot express.
// The session generator skips it because it needs no channels.
func (c *Config) Validate() error {
	if len(c.TradingChannels) == 0 && len(c.AirdropChannels) == 0 {
		return ErrNoChannels
	}

	switch c.MediaSink {
	case SinkLocal:
		if c.MediaDir == "" {
			return ErrMediaDirMissing
		}
	case SinkCDN:
		if c.CDNPrivateKey == "" {
			return ErrCDNKeyMissing
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMediaSink, c.MediaSink)
	}

	return nil
}

// MaxPostAge is the recency window derived from MAX_DAYS_OLD.
func (c *Config) MaxPostAge() time.Duration {
	return time.Duration(c.MaxDaysOld) * hoursPerDay * time.Hour
}

// MediaRetention is the CDN retention window derived from MEDIA_RETENTION_DAYS.
func (c *Config) MediaRetention() time.Duration {
	return time.Duration(c.MediaRetentionDays) * hoursPerDay * time.Hour
}

func applySinkDefaults(cfg *Config) {
	posts, categoryCap, timeout := defaultLocalPostsPerChannel, defaultLocalCategoryCap, defaultLocalDownloadTimeout
	if cfg.MediaSink == SinkCDN {
		posts, categoryCap, timeout = defaultCDNPostsPerChannel, defaultCDNCategoryCap, defaultCDNDownloadTimeout
	}

	if cfg.PostsPerChannel <= 0 {
		cfg.PostsPerChannel = posts
	}

	if cfg.CategoryCap <= 0 {
		cfg.CategoryCap = categoryCap
	}

	if cfg.MediaDownloadTimeout <= 0 {
		cfg.MediaDownloadTimeout = timeout
	}
}

// cleanChannels trims whitespace and a leading @ so channel lists copied
// from Telegram links resolve as bare usernames.
func cleanChannels(channels []string) []string {
	cleaned := make([]string, 0, len(channels))

	for _, channel := range channels {
		channel = strings.TrimPrefix(strings.TrimSpace(channel), "@")
		if channel == "" {
			continue
		}

		cleaned = append(cleaned, channel)
	}

	return cleaned
}
