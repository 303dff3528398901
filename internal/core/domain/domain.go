// Package domain holds the core types shared across the fetch pipeline.
package domain

import (
	"fmt"
	"time"
)

// Category groups channels by the kind of content they publish.
type Category string

const (
	CategoryTrading Category = "trading"
	CategoryAirdrop Category = "airdrop"
)

// MediaKind discriminates what a relocated attachment is.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// MediaRef points at a relocated attachment: a public path for the local
// sink, or a permanent URL plus deletion handle for the CDN sink. A post
// carries at most one reference, so an image and a video can never be set
// at the same time.
type MediaRef struct {
	Kind   MediaKind
	URL    string
	FileID string
}

// Post is a single channel message that survived the filter pipeline.
type Post struct {
	ID        string
	MessageID int
	Channel   string
	Category  Category
	Text      string
	Date      time.Time
	Media     *MediaRef
	HasMedia  bool
	Views     int
}

// PostID builds the composite identifier used for deduplication across runs.
func PostID(channel string, messageID int) string {
	return fmt.Sprintf("%s_%d", channel, messageID)
}
