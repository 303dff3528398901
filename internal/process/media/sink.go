package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"tgfeed/internal/core/domain"
)

// Downloader streams the raw bytes of a message attachment.
type Downloader interface {
	DownloadMedia(ctx context.Context, media tg.MessageMediaClass, w io.Writer) error
}

// Uploader pushes a downloaded file to the CDN and returns its permanent
// URL and deletion handle.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, name, folder string) (url, fileID string, err error)
}

// Job describes one attachment to relocate.
type Job struct {
	Channel   string
	MessageID int
	Date      time.Time
	Media     tg.MessageMediaClass
}

// Sink relocates an attachment and returns its public reference. A nil
// reference with a nil error means the attachment kind is not handled by
// this sink.
type Sink interface {
	Relocate(ctx context.Context, job Job) (*domain.MediaRef, error)
}

// fileName builds the stable attachment name; reruns over the same message
// produce the same name, which is what makes the local sink idempotent.
func fileName(job Job, ext string) string {
	return fmt.Sprintf("%s_%d_%d%s", job.Channel, job.MessageID, job.Date.Unix(), ext)
}

// LocalSink downloads attachments into a directory served as static files.
type LocalSink struct {
	dl         Downloader
	dir        string
	publicPath string
	timeout    time.Duration
	logger     *zerolog.Logger
}

// NewLocalSink creates a sink writing into dir. References returned to
// callers are rooted at publicPath rather than the filesystem location.
func NewLocalSink(dl Downloader, dir, publicPath string, timeout time.Duration, logger *zerolog.Logger) *LocalSink {
	return &LocalSink{dl: dl, dir: dir, publicPath: publicPath, timeout: timeout, logger: logger}
}

func (s *LocalSink) Relocate(ctx context.Context, job Job) (*domain.MediaRef, error) {
	class, ok := Classify(job.Media)
	if !ok {
		return nil, nil
	}

	name := fileName(job, class.Ext)
	ref := &domain.MediaRef{Kind: class.Kind, URL: path.Join(s.publicPath, name)}

	dst := filepath.Join(s.dir, name)
	if _, err := os.Stat(dst); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create media file: %w", err)
	}

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.dl.DownloadMedia(dctx, job.Media, f); err != nil {
		_ = f.Close()

		// A half-written file would be served as a broken asset and
		// block the retry on the next run.
		if rmErr := os.Remove(dst); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("path", dst).Msg("failed to remove partial download")
		}

		return nil, fmt.Errorf("download media: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close media file: %w", err)
	}

	s.logger.Debug().Str("file", name).Msg("Media downloaded")

	return ref, nil
}

// CDNSink downloads image attachments to a transient temp file and uploads
// them to the CDN. Videos are left on Telegram for this deployment.
type CDNSink struct {
	dl       Downloader
	uploader Uploader
	folder   string
	timeout  time.Duration
	logger   *zerolog.Logger
}

// NewCDNSink creates a sink uploading into the given CDN folder.
func NewCDNSink(dl Downloader, uploader Uploader, folder string, timeout time.Duration, logger *zerolog.Logger) *CDNSink {
	return &CDNSink{dl: dl, uploader: uploader, folder: folder, timeout: timeout, logger: logger}
}

func (s *CDNSink) Relocate(ctx context.Context, job Job) (*domain.MediaRef, error) {
	class, ok := Classify(job.Media)
	if !ok || class.Kind == domain.MediaVideo {
		return nil, nil
	}

	name := fileName(job, class.Ext)

	tmp, err := os.CreateTemp("", "tgfeed-media-*"+class.Ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	defer func() {
		_ = tmp.Close()

		if err := os.Remove(tmp.Name()); err != nil {
			s.logger.Warn().Err(err).Str("path", tmp.Name()).Msg("failed to remove temp file")
		}
	}()

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.dl.DownloadMedia(dctx, job.Media, tmp); err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}

	url, fileID, err := s.uploader.Upload(ctx, tmp, name, s.folder)
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	s.logger.Debug().Str("file", name).Str("file_id", fileID).Msg("Media uploaded")

	return &domain.MediaRef{Kind: class.Kind, URL: url, FileID: fileID}, nil
}
