package domain

import (
	"slices"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists statuses in display rank order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return slices.Contains(TicketStatuses, s)
}

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists priorities from most to least urgent.
var TicketPriorities = []TicketPriority{
	TicketPriorityUrgent,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return slices.Contains(TicketPriorities, p)
}

// Rank orders priorities with urgent first.
func (p TicketPriority) Rank() int {
	return slices.Index(TicketPriorities, p)
}

// Rank orders statuses with open first.
func (s TicketStatus) Rank() int {
	return slices.Index(TicketStatuses, s)
}

// Attachment is file metadata owned by a ticket or comment.
type Attachment struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Title       string
	Description string
	Priority    TicketPriority
	Status      TicketStatus
	CategoryID  string
	UserID      string
	AssignedTo  *string
	Attachments []Attachment
	ResolvedAt  *time.Time
	ClosedAt    *time.Time
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Resolved on request.
	Category *Category
	Creator  *UserSummary
	Assignee *UserSummary
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// ApplyStatusTransition moves the ticket into next and stamps the derived timestamps.
// resolved_at is written once, on the first move into resolved. closed_at is written
// once, on the first move into closed, and backfills an unset resolved_at.
func ApplyStatusTransition(t *Ticket, next TicketStatus, now time.Time) {
	if t.Status == next {
		return
	}
	t.Status = next
	switch next {
	case TicketStatusResolved:
		if t.ResolvedAt == nil {
			stamp := now
			t.ResolvedAt = &stamp
		}
	case TicketStatusClosed:
		if t.ClosedAt == nil {
			stamp := now
			t.ClosedAt = &stamp
		}
		if t.ResolvedAt == nil {
			stamp := now
			t.ResolvedAt = &stamp
		}
	}
}

// Clone returns a deep copy without resolved relations.
func (t Ticket) Clone() Ticket {
	out := t
	out.AssignedTo = cloneString(t.AssignedTo)
	out.ResolvedAt = cloneTime(t.ResolvedAt)
	out.ClosedAt = cloneTime(t.ClosedAt)
	out.Attachments = slices.Clone(t.Attachments)
	out.Category = nil
	out.Creator = nil
	out.Assignee = nil
	return out
}

// Snapshot renders the persisted columns for activity old/new values.
func (t *Ticket) Snapshot() map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"priority":    string(t.Priority),
		"status":      string(t.Status),
		"category_id": t.CategoryID,
		"user_id":     t.UserID,
		"assigned_to": stringOrNil(t.AssignedTo),
		"attachments": attachmentsValue(t.Attachments),
		"resolved_at": timeOrNil(t.ResolvedAt),
		"closed_at":   timeOrNil(t.ClosedAt),
		"archived":    t.Archived,
		"created_at":  t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func attachmentsValue(list []Attachment) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, a := range list {
		out = append(out, map[string]any{
			"name":        a.Name,
			"path":        a.Path,
			"size":        a.Size,
			"mime_type":   a.MimeType,
			"uploaded_at": a.UploadedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

func stringOrNil(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(time.RFC3339Nano)
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	ts := *v
	return &ts
}
