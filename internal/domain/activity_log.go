package domain

import "time"

// ActivityAction tags an audit entry.
type ActivityAction string

const (
	ActionCreated         ActivityAction = "created"
	ActionUpdated         ActivityAction = "updated"
	ActionCommented       ActivityAction = "commented"
	ActionCommentUpdated  ActivityAction = "comment_updated"
	ActionCommentDeleted  ActivityAction = "comment_deleted"
	ActionAssigned        ActivityAction = "assigned"
	ActionDeleted         ActivityAction = "deleted"
	ActionStatusChanged   ActivityAction = "status_changed"
	ActionPriorityChanged ActivityAction = "priority_changed"
	ActionArchived        ActivityAction = "archived"
	ActionUnarchived      ActivityAction = "unarchived"
)

// ActivityLog is an immutable audit entry. TicketID is a weak reference and
// outlives the ticket it points at.
type ActivityLog struct {
	ID          string
	TicketID    string
	UserID      string
	Action      ActivityAction
	OldValues   map[string]any
	NewValues   map[string]any
	Description string
	CreatedAt   time.Time

	User *UserSummary
}
