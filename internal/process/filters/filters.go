// Package filters implements the ordered message filter pipeline.
//
// Filters run in a fixed order and short-circuit on the first match:
//  1. Replies are skipped.
//  2. Forwarded messages are skipped (optional).
//  3. Already-seen posts are skipped.
//  4. A message older than the recency window stops the whole channel
//     scan, since history arrives newest-first.
//  5. Messages with no text and no attachment are skipped.
//  6. Short text-only messages are skipped; any attachment bypasses the
//     length requirement.
package filters

import (
	"strings"
	"time"

	"tgfeed/internal/core/domain"
	"tgfeed/internal/process/dedup"
)

// Action tells the channel scan what to do with a message.
type Action int

const (
	// Accept keeps the message.
	Accept Action = iota
	// SkipMessage drops the message and moves to the next one.
	SkipMessage
	// StopScan drops the message and ends the channel scan.
	StopScan
)

// Reason codes recorded in per-channel stats.
const (
	ReasonReply     = "replies"
	ReasonForward   = "forwards"
	ReasonDuplicate = "duplicates"
	ReasonTooOld    = "too_old"
	ReasonEmpty     = "empty"
	ReasonTooShort  = "too_short"
)

// Message is the transport-free view of a channel message the pipeline
// inspects.
type Message struct {
	ID        int
	Date      time.Time
	Text      string
	IsReply   bool
	IsForward bool
	HasMedia  bool
}

// Decision is the pipeline verdict for a single message.
type Decision struct {
	Action Action
	Reason string
}

// Pipeline applies the filter chain during one channel scan.
type Pipeline struct {
	channel        string
	seen           *dedup.Set
	filterForwards bool
	minTextLength  int
	cutoff         time.Time
}

// New creates a pipeline for one channel. The seen set is shared across
// channels and runs; cutoff is the oldest acceptable message time.
func New(channel string, seen *dedup.Set, filterForwards bool, minTextLength int, cutoff time.Time) *Pipeline {
	return &Pipeline{
		channel:        channel,
		seen:           seen,
		filterForwards: filterForwards,
		minTextLength:  minTextLength,
		cutoff:         cutoff,
	}
}

// Evaluate runs the filter chain and returns the first matching verdict.
func (p *Pipeline) Evaluate(msg Message) Decision {
	if msg.IsReply {
		return Decision{Action: SkipMessage, Reason: ReasonReply}
	}

	if p.filterForwards && msg.IsForward {
		return Decision{Action: SkipMessage, Reason: ReasonForward}
	}

	if p.seen.Has(domain.PostID(p.channel, msg.ID)) {
		return Decision{Action: SkipMessage, Reason: ReasonDuplicate}
	}

	if msg.Date.Before(p.cutoff) {
		return Decision{Action: StopScan, Reason: ReasonTooOld}
	}

	if msg.Text == "" && !msg.HasMedia {
		return Decision{Action: SkipMessage, Reason: ReasonEmpty}
	}

	if !msg.HasMedia && len([]rune(strings.TrimSpace(msg.Text))) < p.minTextLength {
		return Decision{Action: SkipMessage, Reason: ReasonTooShort}
	}

	return Decision{Action: Accept}
}

// Stats counts filtered messages by reason during one channel scan.
type Stats struct {
	Replies    int
	Forwards   int
	Duplicates int
	TooOld     int
	Empty      int
	TooShort   int
}

// Record increments the counter for a reason code.
func (s *Stats) Record(reason string) {
	switch reason {
	case ReasonReply:
		s.Replies++
	case ReasonForward:
		s.Forwards++
	case ReasonDuplicate:
		s.Duplicates++
	case ReasonTooOld:
		s.TooOld++
	case ReasonEmpty:
		s.Empty++
	case ReasonTooShort:
		s.TooShort++
	}
}

// Filtered returns the total number of messages dropped by the pipeline.
func (s *Stats) Filtered() int {
	return s.Replies + s.Forwards + s.Duplicates + s.TooOld + s.Empty + s.TooShort
}
