package pdfpages

import (
	"encoding/base64"
	"encoding/json"
)

// EventType identifies a streaming [Event].
type EventType string

const (
	// EventImageFound carries one materialized page image.
	EventImageFound EventType = "imageFound"
	// EventDone is the terminal success event.
	EventDone EventType = "done"
	// EventError is the terminal failure event.
	EventError EventType = "error"
)

// Event is one entry of the live extraction log. Events are never
// retracted: a stream is zero or more EventImageFound followed by
// exactly one EventDone or EventError.
type Event struct {
	Type EventType

	// Index is the position of the image in the emitted sequence.
	Index int
	// Page is the viewer page index the image was requested for, or -1
	// when unknown (images replayed from the cache).
	Page  int
	Image []byte

	// Total is the number of images emitted, set on EventDone.
	Total int

	// Err is set on EventError.
	Err error
}

type eventJSON struct {
	Type   EventType `json:"type"`
	Index  *int      `json:"index,omitempty"`
	Page   *int      `json:"page,omitempty"`
	Base64 string    `json:"base64,omitempty"`
	Total  *int      `json:"total,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// MarshalJSON encodes the event in the wire form consumed by browsers:
// images as base64, errors as their message.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{Type: e.Type}
	switch e.Type {
	case EventImageFound:
		out.Index = &e.Index
		if e.Page >= 0 {
			out.Page = &e.Page
		}
		out.Base64 = base64.StdEncoding.EncodeToString(e.Image)
	case EventDone:
		out.Total = &e.Total
	case EventError:
		if e.Err != nil {
			out.Error = e.Err.Error()
		}
	}
	return json.Marshal(out)
}
