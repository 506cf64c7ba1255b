package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CommentService manages the comment thread of a ticket.
type CommentService struct {
	store    repository.Store
	recorder ActivityRecorder
	files    attachmentKeeper
	events   publisher
	now      Clock
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	Store       repository.Store
	Attachments storage.Store
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Clock       Clock
}

// CommentCreateInput describes a new comment.
type CommentCreateInput struct {
	Content    string
	IsInternal bool
	Uploads    []Upload
}

// CommentUpdateInput carries a partial comment update.
type CommentUpdateInput struct {
	Content    *string
	IsInternal *bool
}

// NewCommentService wires the comment service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := nopLoggerIfNil(deps.Logger)
	now := clockOrSystem(deps.Clock)
	return &CommentService{
		store:    deps.Store,
		recorder: NewActivityRecorder(now),
		files:    attachmentKeeper{store: deps.Attachments, logger: logger, metrics: deps.Metrics},
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
		now:      now,
	}
}

// List returns the thread oldest first, without internal comments for unprivileged viewers.
func (s *CommentService) List(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.ticket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Repos().Comments.ListByTicket(ctx, ticketID, auth.CanSeeInternal(actor, ticket))
	if err != nil {
		return nil, mapTxError(err)
	}
	return comments, nil
}

// errInternalNotAllowed stops an actor from posting a comment they could not read back.
var errInternalNotAllowed = apperrors.NewForbidden("you are not allowed to post internal comments")

// Create posts a comment on a ticket the actor can view.
func (s *CommentService) Create(ctx context.Context, actor domain.Actor, ticketID string, input CommentCreateInput) (*domain.Comment, error) {
	ticket, err := s.ticket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !auth.CanComment(actor, ticket) {
		return nil, apperrors.NewForbidden("you are not allowed to comment on this ticket")
	}
	if input.IsInternal && !auth.CanSeeInternal(actor, ticket) {
		return nil, errInternalNotAllowed
	}
	content := strings.TrimSpace(input.Content)
	if !hasVisibleText(content) {
		problems := fieldErrors{}
		problems.add("content", "is required")
		return nil, problems.err()
	}

	attachments, err := s.files.storeAll(ctx, input.Uploads)
	if err != nil {
		return nil, err
	}
	now := s.now()
	comment := &domain.Comment{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		UserID:      actor.ID,
		Content:     content,
		IsInternal:  input.IsInternal,
		Attachments: attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var entry *domain.ActivityLog
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    ticketID,
			ActorID:     actor.ID,
			Action:      domain.ActionCommented,
			NewValues:   map[string]any{"comment_id": comment.ID},
			Description: "Comment added",
		})
		return err
	})
	if err != nil {
		s.files.removeAll(ctx, attachments)
		return nil, mapTxError(err)
	}

	s.events.publish(ctx, entry)
	return s.load(ctx, comment.ID)
}

// Update edits content or visibility; only the author or an admin may do so.
func (s *CommentService) Update(ctx context.Context, actor domain.Actor, commentID string, input CommentUpdateInput) (*domain.Comment, error) {
	problems := fieldErrors{}
	var content string
	if input.Content != nil {
		content = strings.TrimSpace(*input.Content)
		if !hasVisibleText(content) {
			problems.add("content", "must not be empty")
		}
	}
	if err := problems.err(); err != nil {
		return nil, err
	}
	existing, err := s.editable(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if input.IsInternal != nil && *input.IsInternal {
		ticket, err := s.ticket(ctx, actor, existing.TicketID)
		if err != nil {
			return nil, err
		}
		if !auth.CanSeeInternal(actor, ticket) {
			return nil, errInternalNotAllowed
		}
	}

	var entry *domain.ActivityLog
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		comment, err := repos.Comments.GetByID(ctx, commentID)
		if err != nil {
			return mapLookup(err, "comment", commentID)
		}
		if input.Content != nil {
			comment.Content = content
		}
		if input.IsInternal != nil {
			comment.IsInternal = *input.IsInternal
		}
		comment.UpdatedAt = s.now()
		if err := repos.Comments.Update(ctx, comment); err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    comment.TicketID,
			ActorID:     actor.ID,
			Action:      domain.ActionCommentUpdated,
			NewValues:   map[string]any{"comment_id": comment.ID},
			Description: "Comment updated",
		})
		return err
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	s.events.publish(ctx, entry)
	return s.load(ctx, commentID)
}

// Delete records the removal and then deletes the comment in the same transaction.
func (s *CommentService) Delete(ctx context.Context, actor domain.Actor, commentID string) error {
	comment, err := s.editable(ctx, actor, commentID)
	if err != nil {
		return err
	}

	var entry *domain.ActivityLog
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    comment.TicketID,
			ActorID:     actor.ID,
			Action:      domain.ActionCommentDeleted,
			OldValues:   map[string]any{"comment_id": comment.ID},
			Description: "Comment deleted",
		})
		if err != nil {
			return err
		}
		if err := repos.Comments.Delete(ctx, commentID); err != nil {
			return mapLookup(err, "comment", commentID)
		}
		return nil
	})
	if err != nil {
		return mapTxError(err)
	}

	s.files.removeAll(ctx, comment.Attachments)
	s.events.publish(ctx, entry)
	return nil
}

// ticket loads the parent ticket and checks the actor can view it.
func (s *CommentService) ticket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Repos().Tickets.GetByID(ctx, ticketID, repository.TicketInclude{})
	if err != nil {
		return nil, mapLookup(err, "ticket", ticketID)
	}
	if err := auth.EnsureView(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// editable loads a comment the actor may change.
func (s *CommentService) editable(ctx context.Context, actor domain.Actor, commentID string) (*domain.Comment, error) {
	comment, err := s.store.Repos().Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, mapLookup(err, "comment", commentID)
	}
	if err := auth.EnsureEditComment(actor, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) load(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := s.store.Repos().Comments.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookup(err, "comment", id)
	}
	return comment, nil
}
