// Package feed assembles the channel posts of one run into the JSON
// document the site consumes and persists it next to the previous one.
package feed

import (
	"time"

	"tgfeed/internal/core/domain"
)

// postJSON mirrors the feed consumer's contract. Image and Video are
// pointers so the one that does not apply marshals as null.
type postJSON struct {
	ID        string  `json:"id"`
	MessageID int     `json:"messageId"`
	Channel   string  `json:"channel"`
	Category  string  `json:"category"`
	Text      string  `json:"text"`
	Date      string  `json:"date"`
	Image     *string `json:"image"`
	Video     *string `json:"video"`
	FileID    string  `json:"fileId,omitempty"`
	HasMedia  bool    `json:"hasMedia"`
	Views     int     `json:"views"`
}

type filtersJSON struct {
	Replies       bool `json:"replies"`
	Forwards      bool `json:"forwards"`
	Duplicates    bool `json:"duplicates"`
	MaxDaysOld    int  `json:"maxDaysOld"`
	MinTextLength int  `json:"minTextLength"`
}

type document struct {
	Results         []postJSON  `json:"results"`
	FetchedAt       string      `json:"fetchedAt"`
	TotalPosts      int         `json:"totalPosts"`
	TradingChannels []string    `json:"tradingChannels"`
	AirdropChannels []string    `json:"airdropChannels"`
	Filters         filtersJSON `json:"filters"`
}

func toPostJSON(post domain.Post) postJSON {
	out := postJSON{
		ID:        post.ID,
		MessageID: post.MessageID,
		Channel:   post.Channel,
		Category:  string(post.Category),
		Text:      post.Text,
		Date:      post.Date.UTC().Format(time.RFC3339),
		HasMedia:  post.HasMedia,
		Views:     post.Views,
	}

	if post.Media != nil {
		url := post.Media.URL
		switch post.Media.Kind {
		case domain.MediaImage:
			out.Image = &url
		case domain.MediaVideo:
			out.Video = &url
		}

		out.FileID = post.Media.FileID
	}

	return out
}

// channelList keeps empty channel groups marshalling as [] instead of null.
func channelList(channels []string) []string {
	if channels == nil {
		return []string{}
	}

	return channels
}
