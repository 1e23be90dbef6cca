package model

import "time"

// FeedItem is a global, append-only activity notification. Feed items
// are not owned by any account and are visible to every authenticated
// caller. They are written by the activity consumer, never by users
// directly, and are never deleted in normal operation.
type FeedItem struct {
	ID        uint64    // feed_items.id
	Title     string    // feed_items.title
	Icon      string    // feed_items.icon (icon class tag, e.g. "fa-satellite-dish")
	CreatedAt time.Time // feed_items.created_at
}
