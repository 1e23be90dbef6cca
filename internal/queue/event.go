// Package queue defines the activity events exchanged over the message
// broker and the background consumer that turns them into feed items.
package queue

// FeedQueueName is the durable queue carrying activity events from the
// handlers to the feed consumer.
const FeedQueueName = "activity.feed"

// Icon tags attached to feed items, rendered by the dashboard frontend.
const (
	IconNewInvestigation = "fa-satellite-dish"
	IconStatusChange     = "fa-arrows-rotate"
	IconWentLive         = "fa-exclamation-triangle"
	IconNewAccount       = "fa-user-plus"
)

// ActivityEvent is published whenever something feed-worthy happens: an
// investigation is opened, changes status or goes live, or a new
// account signs up. The consumer persists it verbatim as a global feed
// item, so the payload carries display fields rather than raw IDs.
type ActivityEvent struct {
	Title      string `json:"title"`
	Icon       string `json:"icon"`
	OccurredAt string `json:"occurred_at"`
}
