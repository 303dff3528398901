package filters

import (
	"testing"
	"time"

	"tgfeed/internal/process/dedup"
)

const testChannel = "cryptonews"

func TestPipelineEvaluate(t *testing.T) {
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -7)

	tests := []struct {
		name           string
		filterForwards bool
		seen           []string
		msg            Message
		wantAction     Action
		wantReason     string
	}{
		{
			name:       "reply skipped",
			msg:        Message{ID: 1, Date: now, Text: "a perfectly long enough message", IsReply: true},
			wantAction: SkipMessage,
			wantReason: ReasonReply,
		},
		{
			name:           "reply checked before forward",
			filterForwards: true,
			msg:            Message{ID: 2, Date: now, Text: "long enough text right here", IsReply: true, IsForward: true},
			wantAction:     SkipMessage,
			wantReason:     ReasonReply,
		},
		{
			name:           "forward skipped when enabled",
			filterForwards: true,
			msg:            Message{ID: 3, Date: now, Text: "long enough text right here", IsForward: true},
			wantAction:     SkipMessage,
			wantReason:     ReasonForward,
		},
		{
			name:       "forward kept when disabled",
			msg:        Message{ID: 4, Date: now, Text: "long enough text right here", IsForward: true},
			wantAction: Accept,
		},
		{
			name:           "forward checked before duplicate",
			filterForwards: true,
			seen:           []string{"cryptonews_5"},
			msg:            Message{ID: 5, Date: now, Text: "long enough text right here", IsForward: true},
			wantAction:     SkipMessage,
			wantReason:     ReasonForward,
		},
		{
			name:       "duplicate skipped",
			seen:       []string{"cryptonews_6"},
			msg:        Message{ID: 6, Date: now, Text: "long enough text right here"},
			wantAction: SkipMessage,
			wantReason: ReasonDuplicate,
		},
		{
			name:       "old duplicate skips instead of stopping",
			seen:       []string{"cryptonews_7"},
			msg:        Message{ID: 7, Date: now.AddDate(0, 0, -30), Text: "long enough text right here"},
			wantAction: SkipMessage,
			wantReason: ReasonDuplicate,
		},
		{
			name:       "old message stops the scan",
			msg:        Message{ID: 8, Date: now.AddDate(0, 0, -8), Text: "long enough text right here"},
			wantAction: StopScan,
			wantReason: ReasonTooOld,
		},
		{
			name:       "empty message skipped",
			msg:        Message{ID: 9, Date: now},
			wantAction: SkipMessage,
			wantReason: ReasonEmpty,
		},
		{
			name:       "empty text with media kept",
			msg:        Message{ID: 10, Date: now, HasMedia: true},
			wantAction: Accept,
		},
		{
			name:       "short text skipped",
			msg:        Message{ID: 11, Date: now, Text: "gm"},
			wantAction: SkipMessage,
			wantReason: ReasonTooShort,
		},
		{
			name:       "short text with media kept",
			msg:        Message{ID: 12, Date: now, Text: "gm", HasMedia: true},
			wantAction: Accept,
		},
		{
			name:       "length measured after trimming",
			msg:        Message{ID: 13, Date: now, Text: "   123456789   "},
			wantAction: SkipMessage,
			wantReason: ReasonTooShort,
		},
		{
			name:       "length measured in runes not bytes",
			msg:        Message{ID: 14, Date: now, Text: "привет"},
			wantAction: SkipMessage,
			wantReason: ReasonTooShort,
		},
		{
			name:       "exactly minimum length kept",
			msg:        Message{ID: 15, Date: now, Text: "1234567890"},
			wantAction: Accept,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(testChannel, dedup.NewSet(tt.seen...), tt.filterForwards, 10, cutoff)

			got := p.Evaluate(tt.msg)
			if got.Action != tt.wantAction {
				t.Errorf("Evaluate() action = %v, want %v", got.Action, tt.wantAction)
			}

			if got.Reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestStatsRecord(t *testing.T) {
	var s Stats

	for _, reason := range []string{
		ReasonReply, ReasonReply,
		ReasonForward,
		ReasonDuplicate,
		ReasonTooOld,
		ReasonEmpty,
		ReasonTooShort, ReasonTooShort, ReasonTooShort,
	} {
		s.Record(reason)
	}

	if s.Replies != 2 {
		t.Errorf("Replies = %d, want %d", s.Replies, 2)
	}

	if s.TooShort != 3 {
		t.Errorf("TooShort = %d, want %d", s.TooShort, 3)
	}

	if s.Filtered() != 9 {
		t.Errorf("Filtered() = %d, want %d", s.Filtered(), 9)
	}
}
