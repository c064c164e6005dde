package models

import "time"

// Event types
const (
	EventTypeArtworksSold   = "ARTWORKS_SOLD"
	EventTypeArtworkCreated = "ARTWORK_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ArtworksSoldEvent published after a settled checkout marked artworks sold
type ArtworksSoldEvent struct {
	BaseEvent
	CheckoutSessionID string   `json:"checkout_session_id"`
	ArtworkIDs        []string `json:"artwork_ids"`
}

// ArtworkCreatedEvent published when an admin adds an artwork
type ArtworkCreatedEvent struct {
	BaseEvent
	ArtworkID string `json:"artwork_id"`
	Title     string `json:"title"`
}
