// Package messaging defines the story lifecycle events and the RabbitMQ
// consumer that dispatches them to pipeline stages.
package messaging

// StoryEvent names a story lifecycle transition carried over the queue.
type StoryEvent string

const (
	// EventStoryCreated is emitted when a client creates a story document
	// at status "generating".
	EventStoryCreated StoryEvent = "story.created"

	// EventCoverReady is emitted after the narrative stage persisted the
	// validated text and cover, handing off to the slide image stage.
	EventCoverReady StoryEvent = "story.cover_ready"
)

// StoryEventPayload is the wire format of a story lifecycle event.
type StoryEventPayload struct {
	EventID   string     `json:"eventId"`
	Event     StoryEvent `json:"event"`
	StoryID   string     `json:"storyId"`
	ProfileID string     `json:"profileId,omitempty"`
}
