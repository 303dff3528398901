package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"

	"tgfeed/internal/core/domain"
	"tgfeed/internal/output/feed"
	"tgfeed/internal/platform/config"
	"tgfeed/internal/process/dedup"
	"tgfeed/internal/process/filters"
	"tgfeed/internal/process/media"
)

// ErrNotAuthorized indicates the session is not logged in. Run the session
// generator to produce a fresh TELEGRAM_SESSION.
var ErrNotAuthorized = errors.New("telegram session not authorized")

// ErrChannelNotFound indicates the username resolved to nothing.
var ErrChannelNotFound = errors.New("channel not found")

// ErrNotAChannel indicates the peer is not a channel.
var ErrNotAChannel = errors.New("peer is not a channel")

// ErrNotBroadcast indicates the username points at a group instead of a
// broadcast channel.
var ErrNotBroadcast = errors.New("not a broadcast channel")

// ErrUnsupportedMedia indicates a media payload with no downloadable file.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// fetchWindowMultiplier oversizes the history window relative to the post
// target so heavily filtered channels can still fill their quota.
const fetchWindowMultiplier = 3

// Reader owns the Telegram connection and scans channel history.
type Reader struct {
	cfg      *config.Config
	uploader media.Uploader
	logger   *zerolog.Logger

	api  *tg.Client
	sink media.Sink
}

var (
	_ feed.ChannelFetcher = (*Reader)(nil)
	_ media.Downloader    = (*Reader)(nil)
)

// NewReader prepares a reader. uploader is only consulted by the CDN sink
// and may be nil when media stays on local disk.
func NewReader(cfg *config.Config, uploader media.Uploader, logger *zerolog.Logger) *Reader {
	return &Reader{cfg: cfg, uploader: uploader, logger: logger}
}

// Run connects to Telegram, verifies the stored session is logged in and
// hands control to fn while the connection is alive.
func (r *Reader) Run(ctx context.Context, fn func(context.Context) error) error {
	storage, err := SessionFromString(r.cfg.TelegramSession)
	if err != nil {
		return err
	}

	client := telegram.NewClient(r.cfg.TelegramAPIID, r.cfg.TelegramAPIHash, telegram.Options{
		SessionStorage: storage,
	})

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("checking auth status: %w", err)
		}

		if !status.Authorized {
			return ErrNotAuthorized
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetching self: %w", err)
		}

		r.logger.Info().Str("username", self.Username).Msg("Successfully authenticated as user")

		r.api = tg.NewClient(client)
		r.sink = r.buildSink()

		return fn(ctx)
	})
}

// buildSink picks the media destination once the API client exists. The
// local sink serves files under the media directory's base name, the way
// the site exposes its public folder.
func (r *Reader) buildSink() media.Sink {
	if r.cfg.MediaSink == config.SinkCDN {
		return media.NewCDNSink(r, r.uploader, r.cfg.CDNFolder, r.cfg.MediaDownloadTimeout, r.logger)
	}

	publicPath := "/" + filepath.Base(r.cfg.MediaDir)

	return media.NewLocalSink(r, r.cfg.MediaDir, publicPath, r.cfg.MediaDownloadTimeout, r.logger)
}

// FetchChannel resolves a channel username and scans its recent history,
// returning the posts that pass the filter pipeline. A flood wait is slept
// out and yields an empty result instead of an error.
func (r *Reader) FetchChannel(ctx context.Context, channel string, category domain.Category, seen *dedup.Set) ([]domain.Post, error) {
	peer, err := r.resolveChannel(ctx, channel)
	if err != nil {
		return nil, err
	}

	messages, err := r.historyMessages(ctx, channel, peer, r.cfg.PostsPerChannel*fetchWindowMultiplier)
	if err != nil || messages == nil {
		return nil, err
	}

	return r.scanMessages(ctx, channel, category, seen, messages), nil
}

func (r *Reader) resolveChannel(ctx context.Context, username string) (*tg.InputPeerChannel, error) {
	resolved, err := r.api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username: %w", err)
	}

	if len(resolved.Chats) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, username)
	}

	channel, ok := resolved.Chats[0].(*tg.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAChannel, username)
	}

	if !channel.Broadcast {
		return nil, fmt.Errorf("%w: %s", ErrNotBroadcast, username)
	}

	r.logger.Debug().Str("username", username).Int64("peer_id", channel.ID).Str("title", channel.Title).Msg("Resolved channel")

	return &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}, nil
}

func (r *Reader) historyMessages(ctx context.Context, channel string, peer tg.InputPeerClass, limit int) ([]tg.MessageClass, error) {
	history, err := r.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: limit,
	})
	if err != nil {
		floodErr, ok := tgerr.As(err)
		if ok && floodErr.Type == "FLOOD_WAIT" {
			r.logger.Warn().Int("seconds", floodErr.Argument).Str("channel", channel).Msg("flood wait")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(floodErr.Argument) * time.Second):
			}

			return nil, nil
		}

		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	switch h := history.(type) {
	case *tg.MessagesMessages:
		return h.Messages, nil
	case *tg.MessagesMessagesSlice:
		return h.Messages, nil
	case *tg.MessagesChannelMessages:
		return h.Messages, nil
	default:
		return nil, nil
	}
}

// scanMessages walks history newest first, applying the filter pipeline
// until the post target is reached or an out-of-window message ends the
// scan.
func (r *Reader) scanMessages(ctx context.Context, channel string, category domain.Category, seen *dedup.Set, messages []tg.MessageClass) []domain.Post {
	cutoff := time.Now().Add(-r.cfg.MaxPostAge())
	pipeline := filters.New(channel, seen, r.cfg.FilterForwards, r.cfg.MinTextLength, cutoff)

	stats := &filters.Stats{}
	posts := make([]domain.Post, 0, r.cfg.PostsPerChannel)

scan:
	for _, m := range messages {
		msg, ok := m.(*tg.Message)
		if !ok {
			continue
		}

		view := messageView(msg)

		decision := pipeline.Evaluate(view)
		switch decision.Action {
		case filters.StopScan:
			stats.Record(decision.Reason)
			break scan
		case filters.SkipMessage:
			stats.Record(decision.Reason)
			continue
		case filters.Accept:
		}

		post := r.buildPost(ctx, channel, category, msg, view)
		seen.Add(post.ID)
		posts = append(posts, post)

		if len(posts) >= r.cfg.PostsPerChannel {
			break
		}
	}

	r.logger.Info().
		Str("channel", channel).
		Int("accepted", len(posts)).
		Int("replies", stats.Replies).
		Int("forwards", stats.Forwards).
		Int("duplicates", stats.Duplicates).
		Int("too_old", stats.TooOld).
		Int("empty", stats.Empty).
		Int("too_short", stats.TooShort).
		Msg("Channel scan finished")

	return posts
}

// buildPost converts an accepted message. Media moves through the sink
// afterwards; a failed relocation keeps the post with hasMedia set and no
// reference, so the feed never loses a post over one broken download.
func (r *Reader) buildPost(ctx context.Context, channel string, category domain.Category, msg *tg.Message, view filters.Message) domain.Post {
	post := domain.Post{
		ID:        domain.PostID(channel, msg.ID),
		MessageID: msg.ID,
		Channel:   channel,
		Category:  category,
		Text:      msg.Message,
		Date:      view.Date,
		HasMedia:  view.HasMedia,
	}

	if views, ok := msg.GetViews(); ok {
		post.Views = views
	}

	if !view.HasMedia {
		return post
	}

	mediaValue, _ := msg.GetMedia()

	ref, err := r.sink.Relocate(ctx, media.Job{
		Channel:   channel,
		MessageID: msg.ID,
		Date:      view.Date,
		Media:     mediaValue,
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("post_id", post.ID).Msg("Media relocation failed")
		return post
	}

	post.Media = ref

	return post
}

// messageView projects a gotd message onto the filter pipeline's input.
func messageView(msg *tg.Message) filters.Message {
	_, isReply := msg.GetReplyTo()
	_, isForward := msg.GetFwdFrom()
	_, hasMedia := msg.GetMedia()

	return filters.Message{
		ID:        msg.ID,
		Date:      time.Unix(int64(msg.Date), 0),
		Text:      msg.Message,
		IsReply:   isReply,
		IsForward: isForward,
		HasMedia:  hasMedia,
	}
}

// DownloadMedia streams the file behind a message's media to w. Photos
// pick the largest available size.
func (r *Reader) DownloadMedia(ctx context.Context, mediaValue tg.MessageMediaClass, w io.Writer) error {
	location, err := fileLocation(mediaValue)
	if err != nil {
		return err
	}

	if _, err := downloader.NewDownloader().Download(r.api, location).Stream(ctx, w); err != nil {
		return fmt.Errorf("failed to download media: %w", err)
	}

	return nil
}

func fileLocation(mediaValue tg.MessageMediaClass) (tg.InputFileLocationClass, error) {
	switch m := mediaValue.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, ErrUnsupportedMedia
		}

		thumbSize := largestPhotoSize(photo)
		if thumbSize == "" {
			return nil, ErrUnsupportedMedia
		}

		return &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumbSize,
		}, nil

	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil, ErrUnsupportedMedia
		}

		return &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}, nil

	default:
		return nil, ErrUnsupportedMedia
	}
}

// largestPhotoSize returns the size type of the biggest variant.
func largestPhotoSize(photo *tg.Photo) string {
	var thumbSize string

	maxSize := 0

	for _, size := range photo.Sizes {
		switch s := size.(type) {
		case *tg.PhotoSize:
			if s.W*s.H > maxSize {
				maxSize = s.W * s.H
				thumbSize = s.Type
			}
		case *tg.PhotoSizeProgressive:
			if s.W*s.H > maxSize {
				maxSize = s.W * s.H
				thumbSize = s.Type
			}
		}
	}

	return thumbSize
}
