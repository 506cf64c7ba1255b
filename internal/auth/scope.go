package auth

import (
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CanView reports whether the actor may read the ticket and its thread.
func CanView(actor domain.Actor, ticket *domain.Ticket) bool {
	return actor.IsAdmin() || ticket.UserID == actor.ID || ticket.IsAssignedTo(actor.ID)
}

// CanModify reports whether the actor may edit, archive or delete the ticket.
func CanModify(actor domain.Actor, ticket *domain.Ticket) bool {
	return actor.IsAdmin() || ticket.UserID == actor.ID
}

// CanAssign reports whether the actor may change the assignee.
func CanAssign(actor domain.Actor) bool {
	return actor.IsAdmin()
}

// CanComment reports whether the actor may post on the ticket.
func CanComment(actor domain.Actor, ticket *domain.Ticket) bool {
	return CanView(actor, ticket)
}

// CanSeeInternal reports whether internal comments are visible to the actor.
func CanSeeInternal(actor domain.Actor, ticket *domain.Ticket) bool {
	return actor.IsAdmin() || actor.Role == domain.RoleAgent || ticket.IsAssignedTo(actor.ID)
}

// CanEditComment reports whether the actor may change or remove the comment.
func CanEditComment(actor domain.Actor, comment *domain.Comment) bool {
	return actor.IsAdmin() || comment.UserID == actor.ID
}

// EnsureView returns a forbidden error when CanView fails.
func EnsureView(actor domain.Actor, ticket *domain.Ticket) error {
	if !CanView(actor, ticket) {
		return apperrors.NewForbidden("you do not have access to this ticket")
	}
	return nil
}

// EnsureModify returns a forbidden error when CanModify fails.
func EnsureModify(actor domain.Actor, ticket *domain.Ticket) error {
	if !CanModify(actor, ticket) {
		return apperrors.NewForbidden("you are not allowed to modify this ticket")
	}
	return nil
}

// EnsureAssign returns a forbidden error for non-admin actors.
func EnsureAssign(actor domain.Actor) error {
	if !CanAssign(actor) {
		return apperrors.NewForbidden("only administrators can assign tickets")
	}
	return nil
}

// EnsureEditComment returns a forbidden error when CanEditComment fails.
func EnsureEditComment(actor domain.Actor, comment *domain.Comment) error {
	if !CanEditComment(actor, comment) {
		return apperrors.NewForbidden("you are not allowed to modify this comment")
	}
	return nil
}
