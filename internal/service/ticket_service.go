package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

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

const maxTitleLength = 255

// TicketService coordinates ticket workflows.
type TicketService struct {
	store    repository.Store
	recorder ActivityRecorder
	files    attachmentKeeper
	events   publisher
	logger   *zap.Logger
	now      Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store       repository.Store
	Attachments storage.Store
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Clock       Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	CategoryID  string
	Uploads     []Upload
}

// TicketUpdateInput carries a partial update; nil fields are left untouched.
// Uploads are appended to the existing attachments.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	CategoryID  *string
	AssignedTo  OptionalString
	Uploads     []Upload
}

// TicketPage is one page of a ticket listing.
type TicketPage struct {
	Items      []domain.Ticket
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// TicketDetail is a ticket with its thread and history attached.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Comments []domain.Comment
	Activity []domain.ActivityLog
}

// NewTicketService wires ticket service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := nopLoggerIfNil(deps.Logger)
	now := clockOrSystem(deps.Clock)
	return &TicketService{
		store:    deps.Store,
		recorder: NewActivityRecorder(now),
		files:    attachmentKeeper{store: deps.Attachments, logger: logger, metrics: deps.Metrics},
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger},
		logger:   logger,
		now:      now,
	}
}

// List returns the page of tickets visible to actor.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, query repository.TicketListQuery) (*TicketPage, error) {
	query = query.Normalize()
	if !actor.IsAdmin() {
		id := actor.ID
		query.Filter.VisibleTo = &id
	}
	items, total, err := s.store.Repos().Tickets.List(ctx, query)
	if err != nil {
		return nil, mapTxError(err)
	}
	return &TicketPage{
		Items:      items,
		Total:      total,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: repository.TotalPages(total, query.PerPage),
	}, nil
}

// Get loads a ticket with relations, comments and activity.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, id string) (*TicketDetail, error) {
	repos := s.store.Repos()
	ticket, err := repos.Tickets.GetByID(ctx, id, repository.IncludeAll)
	if err != nil {
		return nil, mapLookup(err, "ticket", id)
	}
	if err := auth.EnsureView(actor, ticket); err != nil {
		return nil, err
	}
	comments, err := repos.Comments.ListByTicket(ctx, id, auth.CanSeeInternal(actor, ticket))
	if err != nil {
		return nil, mapTxError(err)
	}
	activity, err := repos.Activity.ListByTicket(ctx, id)
	if err != nil {
		return nil, mapTxError(err)
	}
	return &TicketDetail{Ticket: ticket, Comments: comments, Activity: activity}, nil
}

// ActivityFor returns the ticket history newest first.
func (s *TicketService) ActivityFor(ctx context.Context, actor domain.Actor, id string) ([]domain.ActivityLog, error) {
	if _, err := s.visibleTicket(ctx, actor, id); err != nil {
		return nil, err
	}
	activity, err := s.store.Repos().Activity.ListByTicket(ctx, id)
	if err != nil {
		return nil, mapTxError(err)
	}
	return activity, nil
}

// Create opens a new ticket owned by actor.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CategoryID:  strings.TrimSpace(input.CategoryID),
		UserID:      actor.ID,
		CreatedAt:   s.now(),
	}

	problems := fieldErrors{}
	validateTitle(problems, ticket.Title)
	if !hasVisibleText(ticket.Description) {
		problems.add(domain.FieldDescription, "is required")
	}
	if !ticket.Priority.Valid() {
		problems.add(domain.FieldPriority, "must be one of urgent, high, medium, low")
	}
	if err := s.validateCategory(ctx, problems, ticket.CategoryID); err != nil {
		return nil, err
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	attachments, err := s.files.storeAll(ctx, input.Uploads)
	if err != nil {
		return nil, err
	}
	ticket.Attachments = attachments

	var entry *domain.ActivityLog
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    ticket.ID,
			ActorID:     actor.ID,
			Action:      domain.ActionCreated,
			NewValues:   ticket.Snapshot(),
			Description: "Ticket created",
		})
		return err
	})
	if err != nil {
		s.files.removeAll(ctx, attachments)
		return nil, mapTxError(err)
	}

	s.events.publish(ctx, entry)
	return s.resolved(ctx, ticket.ID)
}

// Update applies a partial change and records one activity entry when anything changed.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	current, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureModify(actor, current); err != nil {
		return nil, err
	}
	if input.AssignedTo.Set {
		if err := auth.EnsureAssign(actor); err != nil {
			return nil, err
		}
	}
	if err := s.validateUpdate(ctx, input); err != nil {
		return nil, err
	}

	uploaded, err := s.files.storeAll(ctx, input.Uploads)
	if err != nil {
		return nil, err
	}

	var entry *domain.ActivityLog
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		before, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return mapLookup(err, "ticket", id)
		}
		if err := auth.EnsureModify(actor, before); err != nil {
			return err
		}

		after := before.Clone()
		now := s.now()
		applyTicketUpdate(&after, input, now)
		after.Attachments = append(after.Attachments, uploaded...)

		changed := domain.ChangedFields(before, &after)
		if len(changed) == 0 {
			return nil
		}
		after.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, &after); err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    id,
			ActorID:     actor.ID,
			Action:      domain.ActionUpdated,
			OldValues:   before.Snapshot(),
			NewValues:   after.Snapshot(),
			Description: domain.ChangeDescription(changed, &after),
		})
		return err
	})
	if err != nil {
		s.files.removeAll(ctx, uploaded)
		return nil, mapTxError(err)
	}

	s.events.publish(ctx, entry)
	return s.resolved(ctx, id)
}

// Assign sets or clears the assignee. Only admins may assign.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, id string, assigneeID *string) (*domain.Ticket, error) {
	if err := auth.EnsureAssign(actor); err != nil {
		return nil, err
	}
	problems := fieldErrors{}
	if err := s.validateAssignee(ctx, problems, assigneeID); err != nil {
		return nil, err
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	var entry *domain.ActivityLog
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return mapLookup(err, "ticket", id)
		}
		previous := ticket.AssignedTo
		if equalOptional(previous, assigneeID) {
			return nil
		}
		ticket.AssignedTo = assigneeID
		ticket.UpdatedAt = s.now()
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    id,
			ActorID:     actor.ID,
			Action:      domain.ActionAssigned,
			OldValues:   map[string]any{domain.FieldAssignedTo: optionalValue(previous)},
			NewValues:   map[string]any{domain.FieldAssignedTo: optionalValue(assigneeID)},
			Description: domain.AssignmentDescription(assigneeID),
		})
		return err
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	s.events.publish(ctx, entry)
	return s.resolved(ctx, id)
}

// Archive hides the ticket from default listings and stats.
func (s *TicketService) Archive(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	return s.setArchived(ctx, actor, id, true)
}

// Unarchive restores an archived ticket.
func (s *TicketService) Unarchive(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	return s.setArchived(ctx, actor, id, false)
}

func (s *TicketService) setArchived(ctx context.Context, actor domain.Actor, id string, archived bool) (*domain.Ticket, error) {
	current, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := auth.EnsureModify(actor, current); err != nil {
		return nil, err
	}

	action, description := domain.ActionArchived, "Ticket archived"
	if !archived {
		action, description = domain.ActionUnarchived, "Ticket unarchived"
	}

	var entry *domain.ActivityLog
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return mapLookup(err, "ticket", id)
		}
		if ticket.Archived == archived {
			return nil
		}
		ticket.Archived = archived
		ticket.UpdatedAt = s.now()
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    id,
			ActorID:     actor.ID,
			Action:      action,
			OldValues:   map[string]any{"archived": !archived},
			NewValues:   map[string]any{"archived": archived},
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, mapTxError(err)
	}

	s.events.publish(ctx, entry)
	return s.resolved(ctx, id)
}

// Delete removes the ticket and its comments; stored files go after commit.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	current, err := s.visibleTicket(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := auth.EnsureModify(actor, current); err != nil {
		return err
	}

	var (
		entry    *domain.ActivityLog
		orphaned []domain.Attachment
	)
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return mapLookup(err, "ticket", id)
		}
		comments, err := repos.Comments.ListByTicket(ctx, id, true)
		if err != nil {
			return err
		}
		entry, err = s.recorder.Record(ctx, repos.Activity, ActivityEntry{
			TicketID:    id,
			ActorID:     actor.ID,
			Action:      domain.ActionDeleted,
			OldValues:   ticket.Snapshot(),
			Description: "Ticket deleted",
		})
		if err != nil {
			return err
		}
		if err := repos.Tickets.Delete(ctx, id); err != nil {
			return err
		}
		orphaned = append(orphaned, ticket.Attachments...)
		for _, c := range comments {
			orphaned = append(orphaned, c.Attachments...)
		}
		return nil
	})
	if err != nil {
		return mapTxError(err)
	}

	s.files.removeAll(ctx, orphaned)
	s.events.publish(ctx, entry)
	return nil
}

func (s *TicketService) visibleTicket(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Repos().Tickets.GetByID(ctx, id, repository.TicketInclude{})
	if err != nil {
		return nil, mapLookup(err, "ticket", id)
	}
	if err := auth.EnsureView(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) resolved(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Repos().Tickets.GetByID(ctx, id, repository.IncludeAll)
	if err != nil {
		return nil, mapLookup(err, "ticket", id)
	}
	return ticket, nil
}

func (s *TicketService) validateUpdate(ctx context.Context, input TicketUpdateInput) error {
	problems := fieldErrors{}
	if input.Title != nil {
		validateTitle(problems, strings.TrimSpace(*input.Title))
	}
	if input.Description != nil && !hasVisibleText(*input.Description) {
		problems.add(domain.FieldDescription, "must not be empty")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		problems.add(domain.FieldPriority, "must be one of urgent, high, medium, low")
	}
	if input.Status != nil && !input.Status.Valid() {
		problems.add(domain.FieldStatus, "must be one of open, in_progress, resolved, closed")
	}
	if input.CategoryID != nil {
		if err := s.validateCategory(ctx, problems, strings.TrimSpace(*input.CategoryID)); err != nil {
			return err
		}
	}
	if input.AssignedTo.Set {
		if err := s.validateAssignee(ctx, problems, input.AssignedTo.Value); err != nil {
			return err
		}
	}
	return problems.err()
}

func (s *TicketService) validateCategory(ctx context.Context, problems fieldErrors, id string) error {
	if id == "" {
		problems.add(domain.FieldCategoryID, "is required")
		return nil
	}
	category, err := s.store.Repos().Categories.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsCode(mapLookup(err, "category", id), apperrors.CodeNotFound) {
			problems.add(domain.FieldCategoryID, "does not exist")
			return nil
		}
		return mapTxError(err)
	}
	if !category.IsActive {
		problems.add(domain.FieldCategoryID, "is not active")
	}
	return nil
}

func (s *TicketService) validateAssignee(ctx context.Context, problems fieldErrors, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.store.Repos().Users.GetByID(ctx, *id); err != nil {
		if apperrors.IsCode(mapLookup(err, "user", *id), apperrors.CodeNotFound) {
			problems.add(domain.FieldAssignedTo, "does not exist")
			return nil
		}
		return mapTxError(err)
	}
	return nil
}

func validateTitle(problems fieldErrors, title string) {
	switch {
	case title == "":
		problems.add(domain.FieldTitle, "is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		problems.add(domain.FieldTitle, "must not exceed 255 characters")
	}
}

func applyTicketUpdate(t *domain.Ticket, input TicketUpdateInput, now time.Time) {
	if input.Title != nil {
		t.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		t.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		t.Priority = *input.Priority
	}
	if input.CategoryID != nil {
		t.CategoryID = strings.TrimSpace(*input.CategoryID)
	}
	if input.AssignedTo.Set {
		t.AssignedTo = input.AssignedTo.Value
	}
	if input.Status != nil {
		domain.ApplyStatusTransition(t, *input.Status, now)
	}
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optionalValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
