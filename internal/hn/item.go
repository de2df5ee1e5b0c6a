package hn

import "encoding/json"

// Item is one Hacker News item as served by /v0/item/<id>.json.
type Item struct {
	ID          int    `json:"id"`
	Deleted     bool   `json:"deleted,omitempty"`
	Type        string `json:"type,omitempty"`
	By          string `json:"by,omitempty"`
	Time        int64  `json:"time,omitempty"`
	Text        string `json:"text,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	URL         string `json:"url,omitempty"`
	Score       int    `json:"score,omitempty"`
	Title       string `json:"title,omitempty"`
	Descendants int    `json:"descendants,omitempty"`

	// Raw is the undecoded API payload, kept so sinks can forward the
	// item without schema loss. Empty for items recovered by scraping.
	Raw json.RawMessage `json:"-"`
}
