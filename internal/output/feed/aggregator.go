package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tgfeed/internal/core/domain"
	"tgfeed/internal/platform/config"
	"tgfeed/internal/process/dedup"
)

// ChannelFetcher scans one channel and returns the posts that pass the
// filter pipeline, extending seen with every accepted ID.
type ChannelFetcher interface {
	FetchChannel(ctx context.Context, channel string, category domain.Category, seen *dedup.Set) ([]domain.Post, error)
}

// Sweeper prunes stored media that no run references anymore.
type Sweeper interface {
	Sweep(ctx context.Context, referenced *dedup.Set) error
}

// Aggregator walks the configured channel groups, arranges the accepted
// posts into the feed document and persists it.
type Aggregator struct {
	cfg     *config.Config
	fetcher ChannelFetcher
	store   *Store
	sweeper Sweeper
	logger  *zerolog.Logger
}

// NewAggregator wires a fetch run. sweeper may be nil when the sink keeps
// no remote state worth pruning.
func NewAggregator(cfg *config.Config, fetcher ChannelFetcher, store *Store, sweeper Sweeper, logger *zerolog.Logger) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		sweeper: sweeper,
		logger:  logger,
	}
}

// Run performs one fetch cycle: seed the duplicate set from the previous
// document, scan every channel with a pause between scans, arrange the
// results and write the document. A failing channel is logged and skipped
// so one dead username cannot sink the whole run.
func (a *Aggregator) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := a.logger.With().Str("run_id", runID).Logger()

	seen := dedup.NewSet(a.store.LoadSeenIDs()...)
	logger.Info().
		Int("known_posts", seen.Len()).
		Int("trading_channels", len(a.cfg.TradingChannels)).
		Int("airdrop_channels", len(a.cfg.AirdropChannels)).
		Msg("Fetch run started")

	limiter := rate.NewLimiter(rate.Every(a.cfg.ChannelPause), 1)

	groups := []struct {
		category domain.Category
		channels []string
	}{
		{domain.CategoryTrading, a.cfg.TradingChannels},
		{domain.CategoryAirdrop, a.cfg.AirdropChannels},
	}

	var posts []domain.Post

	for _, group := range groups {
		for _, channel := range group.channels {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("pausing before channel %s: %w", channel, err)
			}

			fetched, err := a.fetcher.FetchChannel(ctx, channel, group.category, seen)
			if err != nil {
				logger.Error().Err(err).Str("channel", channel).Msg("Channel fetch failed")
				continue
			}

			posts = append(posts, fetched...)
		}
	}

	posts = a.arrange(posts)

	if err := a.store.write(a.buildDocument(posts, time.Now())); err != nil {
		return err
	}

	logger.Info().
		Int("total", len(posts)).
		Int("trading", countCategory(posts, domain.CategoryTrading)).
		Int("airdrop", countCategory(posts, domain.CategoryAirdrop)).
		Str("path", a.store.path).
		Msg("Feed document written")

	if a.sweeper != nil {
		if err := a.sweeper.Sweep(ctx, referencedFileIDs(posts)); err != nil {
			logger.Warn().Err(err).Msg("Media retention sweep failed")
		}
	}

	return nil
}

// arrange sorts the run's posts newest first, then caps each category and
// lays trading ahead of airdrop, the order the feed consumer renders.
func (a *Aggregator) arrange(posts []domain.Post) []domain.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date.After(posts[j].Date)
	})

	arranged := make([]domain.Post, 0, len(posts))
	arranged = appendCategory(arranged, posts, domain.CategoryTrading, a.cfg.CategoryCap)
	arranged = appendCategory(arranged, posts, domain.CategoryAirdrop, a.cfg.CategoryCap)

	return arranged
}

func appendCategory(dst, posts []domain.Post, category domain.Category, limit int) []domain.Post {
	kept := 0

	for _, post := range posts {
		if post.Category != category {
			continue
		}

		if kept >= limit {
			break
		}

		dst = append(dst, post)
		kept++
	}

	return dst
}

func (a *Aggregator) buildDocument(posts []domain.Post, now time.Time) document {
	results := make([]postJSON, 0, len(posts))
	for _, post := range posts {
		results = append(results, toPostJSON(post))
	}

	return document{
		Results:         results,
		FetchedAt:       now.Format(time.RFC3339),
		TotalPosts:      len(results),
		TradingChannels: channelList(a.cfg.TradingChannels),
		AirdropChannels: channelList(a.cfg.AirdropChannels),
		Filters: filtersJSON{
			Replies:       true,
			Forwards:      a.cfg.FilterForwards,
			Duplicates:    true,
			MaxDaysOld:    a.cfg.MaxDaysOld,
			MinTextLength: a.cfg.MinTextLength,
		},
	}
}

// referencedFileIDs collects the CDN handles the written document still
// points at so the sweeper keeps those files alive.
func referencedFileIDs(posts []domain.Post) *dedup.Set {
	ids := dedup.NewSet()

	for _, post := range posts {
		if post.Media != nil && post.Media.FileID != "" {
			ids.Add(post.Media.FileID)
		}
	}

	return ids
}

func countCategory(posts []domain.Post, category domain.Category) int {
	count := 0

	for _, post := range posts {
		if post.Category == category {
			count++
		}
	}

	return count
}
