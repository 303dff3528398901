// Package retention removes aged media from the CDN folder so storage does
// not grow without bound across runs.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tgfeed/internal/cdn"
	"tgfeed/internal/output/feed"
	"tgfeed/internal/process/dedup"
)

// Store is the slice of the CDN API the sweeper needs.
type Store interface {
	List(ctx context.Context, folder string) ([]cdn.File, error)
	Delete(ctx context.Context, fileID string) error
}

var _ feed.Sweeper = (*Sweeper)(nil)

// Sweeper deletes CDN files older than the retention window unless the
// current run still references them.
type Sweeper struct {
	store  Store
	folder string
	maxAge time.Duration
	logger *zerolog.Logger
}

func NewSweeper(store Store, folder string, maxAge time.Duration, logger *zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		folder: folder,
		maxAge: maxAge,
		logger: logger,
	}
}

// Sweep lists the folder and deletes expired files. Files with an unknown
// creation time or a handle in referenced are kept. Individual delete
// failures are logged and skipped so one bad file cannot abort the sweep.
func (s *Sweeper) Sweep(ctx context.Context, referenced *dedup.Set) error {
	files, err := s.store.List(ctx, s.folder)
	if err != nil {
		return fmt.Errorf("list media folder: %w", err)
	}

	cutoff := time.Now().Add(-s.maxAge)

	removed := 0
	for _, file := range files {
		if file.CreatedAt.IsZero() || file.CreatedAt.After(cutoff) {
			continue
		}

		if referenced != nil && referenced.Has(file.ID) {
			continue
		}

		if err := s.store.Delete(ctx, file.ID); err != nil {
			s.logger.Warn().Err(err).Str("file_id", file.ID).Str("name", file.Name).Msg("Failed to delete old media file")
			continue
		}

		removed++
	}

	s.logger.Info().
		Int("removed", removed).
		Int("total", len(files)).
		Str("folder", s.folder).
		Msg("Media retention sweep finished")

	return nil
}
