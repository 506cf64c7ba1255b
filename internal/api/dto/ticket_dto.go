package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title" form:"title"`
	Description string                `json:"description" form:"description"`
	Priority    domain.TicketPriority `json:"priority" form:"priority"`
	CategoryID  string                `json:"category_id" form:"category_id"`
}

// UpdateTicketRequest is a partial update; absent fields are left untouched.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	CategoryID  *string                `json:"category_id"`
	AssignedTo  NullableString         `json:"assigned_to"`
}

// AssignTicketRequest payload; a null assignee unassigns.
type AssignTicketRequest struct {
	AssignedTo *string `json:"assigned_to"`
}

// NullableString tells an absent JSON field apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records that the field was present.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// TicketResponse is the public shape of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	CategoryID   string                `json:"category_id"`
	UserID       string                `json:"user_id"`
	AssignedTo   *string               `json:"assigned_to"`
	Attachments  []AttachmentResponse  `json:"attachments"`
	Archived     bool                  `json:"archived"`
	ResolvedAt   *time.Time            `json:"resolved_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Category     *CategoryRef          `json:"category,omitempty"`
	User         *UserRef              `json:"user,omitempty"`
	AssignedUser *UserRef              `json:"assigned_user,omitempty"`
}

// TicketDetailResponse adds the thread and history to a ticket.
type TicketDetailResponse struct {
	TicketResponse
	Comments     []CommentResponse  `json:"comments"`
	ActivityLogs []ActivityResponse `json:"activity_logs"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CategoryRef is the category embedded in a ticket.
type CategoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

// UserRef is a related user without credentials.
type UserRef struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content" form:"content"`
	IsInternal bool   `json:"is_internal" form:"is_internal"`
}

// UpdateCommentRequest payload.
type UpdateCommentRequest struct {
	Content    *string `json:"content"`
	IsInternal *bool   `json:"is_internal"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID          string               `json:"id"`
	TicketID    string               `json:"ticket_id"`
	UserID      string               `json:"user_id"`
	Content     string               `json:"content"`
	IsInternal  bool                 `json:"is_internal"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	User        *UserRef             `json:"user,omitempty"`
}

// ActivityResponse is one audit entry.
type ActivityResponse struct {
	ID          string                `json:"id"`
	TicketID    string                `json:"ticket_id"`
	UserID      string                `json:"user_id"`
	Action      domain.ActivityAction `json:"action"`
	OldValues   map[string]any        `json:"old_values"`
	NewValues   map[string]any        `json:"new_values"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`
	User        *UserRef              `json:"user,omitempty"`
}

// StatsResponse mirrors domain.TicketStats.
type StatsResponse struct {
	Total        int `json:"total"`
	Open         int `json:"open"`
	InProgress   int `json:"in_progress"`
	Resolved     int `json:"resolved"`
	Closed       int `json:"closed"`
	HighPriority int `json:"high_priority"`
	ThisWeek     int `json:"this_week"`
	LastWeek     int `json:"last_week"`
}
