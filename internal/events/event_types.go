package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType mirrors the activity action that produced the event.
type EventType string

// TicketEventTypes are the events that change ticket counts.
var TicketEventTypes = []EventType{
	EventType(domain.ActionCreated),
	EventType(domain.ActionUpdated),
	EventType(domain.ActionAssigned),
	EventType(domain.ActionDeleted),
	EventType(domain.ActionArchived),
	EventType(domain.ActionUnarchived),
}

// CommentEventTypes are the events raised by the comment thread.
var CommentEventTypes = []EventType{
	EventType(domain.ActionCommented),
	EventType(domain.ActionCommentUpdated),
	EventType(domain.ActionCommentDeleted),
}

// Event is published once the mutation that produced it has committed.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ActivityPayload carries the audit entry behind the event.
type ActivityPayload struct {
	ActivityID  string `json:"activity_id"`
	Description string `json:"description"`
}

// FromActivity builds the event for a committed activity entry.
func FromActivity(entry *domain.ActivityLog) Event {
	return Event{
		ID:        entry.ID,
		Type:      EventType(entry.Action),
		TicketID:  entry.TicketID,
		ActorID:   entry.UserID,
		Timestamp: entry.CreatedAt,
		Payload: ActivityPayload{
			ActivityID:  entry.ID,
			Description: entry.Description,
		},
	}
}
