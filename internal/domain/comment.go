package domain

import (
	"slices"
	"time"
)

// Comment is a remark on a ticket, optionally hidden from the requester.
type Comment struct {
	ID          string
	TicketID    string
	UserID      string
	Content     string
	IsInternal  bool
	Attachments []Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Author *UserSummary
}

// Clone returns a copy safe to mutate.
func (c Comment) Clone() Comment {
	out := c
	out.Attachments = slices.Clone(c.Attachments)
	out.Author = nil
	return out
}
