// Package discord shapes alert changes into webhook embeds and posts
// them to the configured endpoints.
package discord

import (
	"strconv"

	"ctawatch/internal/feed"
)

// Embed is the chat-platform embed schema, trimmed to the fields the
// watcher emits.
type Embed struct {
	Color  int     `json:"color"`
	Title  string  `json:"title"`
	URL    string  `json:"url,omitempty"`
	Author Author  `json:"author"`
	Fields []Field `json:"fields,omitempty"`
}

type Author struct {
	Name string `json:"name"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// ParseColor converts the feed's hex severity color to the integer the
// embed schema wants.
func ParseColor(hex string) (int, error) {
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// colorOf degrades a malformed severity color to 0 rather than failing
// the batch.
func colorOf(a feed.Alert) int {
	c, err := ParseColor(a.Color)
	if err != nil {
		return 0
	}
	return c
}

func timeField(name, value string) Field {
	if value == "" {
		value = "TBD"
	}
	return Field{Name: name, Value: value, Inline: true}
}

// NewAlert builds the embed for a first-seen alert. Start/End on the
// alert are expected to already hold display strings.
func NewAlert(a feed.Alert) Embed {
	return Embed{
		Color: colorOf(a),
		Title: a.Description,
		URL:   a.URL,
		Author: Author{
			Name: a.Title,
		},
		Fields: []Field{
			timeField("Start time", a.Start),
			timeField("End time", a.End),
		},
	}
}

// ChangedAlert builds the embed for an alert whose tracked fields changed.
func ChangedAlert(a feed.Alert) Embed {
	e := NewAlert(a)
	e.Author.Name = "Updated: " + a.Title
	return e
}

// StartedAlert builds the embed for an alert whose start time just passed.
func StartedAlert(a feed.Alert) Embed {
	e := Embed{
		Color: colorOf(a),
		Title: "Starting now: " + a.Description,
		URL:   a.URL,
		Author: Author{
			Name: a.Title,
		},
	}
	if a.End != "" {
		e.Fields = []Field{timeField("End time", a.End)}
	}
	return e
}

// EndedAlert builds the embed for an alert that ended or disappeared.
func EndedAlert(a feed.Alert) Embed {
	return Embed{
		Color: colorOf(a),
		Title: "Ended: " + a.Description,
		URL:   a.URL,
		Author: Author{
			Name: a.Title + " - Ended",
		},
	}
}
