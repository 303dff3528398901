// Package media classifies message attachments and relocates them to the
// configured sink.
package media

import (
	"strings"

	"github.com/gotd/td/tg"

	"tgfeed/internal/core/domain"
)

// Class describes a downloadable attachment.
type Class struct {
	Kind domain.MediaKind
	Ext  string
}

// Classify maps a Telegram media object onto a media kind and file
// extension. The second return value is false for attachment types that
// are never relocated (polls, webpage previews, contacts and so on); such
// messages still count as having media for filtering purposes.
func Classify(media tg.MessageMediaClass) (Class, bool) {
	switch m := media.(type) {
	case *tg.MessageMediaPhoto:
		if _, ok := m.Photo.(*tg.Photo); !ok {
			return Class{}, false
		}

		return Class{Kind: domain.MediaImage, Ext: ".jpg"}, true
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return Class{}, false
		}

		switch {
		case strings.HasPrefix(doc.MimeType, "image/"):
			return Class{Kind: domain.MediaImage, Ext: imageExt(doc.MimeType)}, true
		case strings.HasPrefix(doc.MimeType, "video/"):
			return Class{Kind: domain.MediaVideo, Ext: ".mp4"}, true
		}
	}

	return Class{}, false
}

// imageExt derives a file extension from an image MIME type. Structured
// suffixes and parameters are stripped, and the jpeg subtype is shortened
// to the conventional jpg.
func imageExt(mimeType string) string {
	subtype := strings.TrimPrefix(mimeType, "image/")
	if i := strings.IndexAny(subtype, "+;"); i >= 0 {
		subtype = subtype[:i]
	}

	subtype = strings.ToLower(strings.TrimSpace(subtype))

	switch subtype {
	case "":
		return ".jpg"
	case "jpeg":
		return ".jpg"
	default:
		return "." + subtype
	}
}
