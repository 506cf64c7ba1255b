package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCreateTicketUpdatesStatsAndRecordsActivity(t *testing.T) {
	f := newFixture(t)
	before, err := f.stats.Stats(f.ctx, nil)
	require.NoError(t, err)

	ticket := f.createTicket(t, f.admin, func(in *TicketCreateInput) { in.Priority = domain.TicketPriorityHigh })

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Nil(t, ticket.AssignedTo)
	require.NotNil(t, ticket.Category)
	assert.Equal(t, "Technical", ticket.Category.Name)
	require.NotNil(t, ticket.Creator)
	assert.Equal(t, f.admin.Name, ticket.Creator.Name)

	after, err := f.stats.Stats(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, before.Open+1, after.Open)
	assert.Equal(t, before.HighPriority+1, after.HighPriority)
	assert.Equal(t, before.Total+1, after.Total)

	activity, err := f.tickets.ActivityFor(f.ctx, f.admin.Actor(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, domain.ActionCreated, activity[0].Action)
	assert.Equal(t, "Ticket created", activity[0].Description)
	assert.Nil(t, activity[0].OldValues)
	assert.Equal(t, ticket.ID, activity[0].NewValues["id"])
	assert.Equal(t, "high", activity[0].NewValues["priority"])
}

func TestCreateTicketDefaultsPriority(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, func(in *TicketCreateInput) { in.Priority = "" })
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]struct {
		mutate func(*TicketCreateInput)
		field  string
	}{
		"missing title":     {func(in *TicketCreateInput) { in.Title = "   " }, "title"},
		"long title":        {func(in *TicketCreateInput) { in.Title = strings.Repeat("x", 256) }, "title"},
		"missing body":      {func(in *TicketCreateInput) { in.Description = "" }, "description"},
		"bad priority":      {func(in *TicketCreateInput) { in.Priority = "critical" }, "priority"},
		"missing category":  {func(in *TicketCreateInput) { in.CategoryID = "" }, "category_id"},
		"unknown category":  {func(in *TicketCreateInput) { in.CategoryID = "nope" }, "category_id"},
		"inactive category": {func(in *TicketCreateInput) { in.CategoryID = f.inactive.ID }, "category_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			input := TicketCreateInput{Title: "t", Description: "d", Priority: domain.TicketPriorityLow, CategoryID: f.category.ID}
			tc.mutate(&input)
			_, err := f.tickets.Create(f.ctx, f.owner.Actor(), input)

			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
			assert.Contains(t, domainErr.Details, tc.field)
		})
	}

	page, err := f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestDescriptionIsStoredAsTypedAndSearchable(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, func(in *TicketCreateInput) {
		in.Description = "  Disk usage > 90% & rising <fast>  "
	})
	assert.Equal(t, "Disk usage > 90% & rising <fast>", ticket.Description)

	page, err := f.tickets.List(f.ctx, f.owner.Actor(), repository.TicketListQuery{
		Filter: repository.TicketFilter{Search: "90% & rising"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, ticket.ID, page.Items[0].ID)

	updated, err := f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Description: ptr("a < b && c > d")})
	require.NoError(t, err)
	assert.Equal(t, "a < b && c > d", updated.Description)
}

func TestMarkupOnlyDescriptionIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.Create(f.ctx, f.owner.Actor(), TicketCreateInput{
		Title: "Empty", Description: "<script>alert(1)</script>", CategoryID: f.category.ID,
	})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Contains(t, domainErr.Details, domain.FieldDescription)

	ticket := f.createTicket(t, f.owner, nil)
	_, err = f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Description: ptr("<script>alert(1)</script>")})
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	assert.Contains(t, domainErr.Details, domain.FieldDescription)

	detail, err := f.tickets.Get(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "The office printer is on fire.", detail.Ticket.Description)
	assert.Len(t, detail.Activity, 1)
}

func TestCreateTicketStoresUploads(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, func(in *TicketCreateInput) {
		in.Uploads = []Upload{{Name: "log.txt", Content: strings.NewReader("boom")}}
	})
	require.Len(t, ticket.Attachments, 1)
	assert.Equal(t, "log.txt", ticket.Attachments[0].Name)
	assert.EqualValues(t, 4, ticket.Attachments[0].Size)
}

func TestCreateTicketRollbackRemovesUploads(t *testing.T) {
	f := newFixture(t)
	f.store.FailNextTx = errors.New("connection reset")

	_, err := f.tickets.Create(f.ctx, f.owner.Actor(), TicketCreateInput{
		Title:       "t",
		Description: "d",
		CategoryID:  f.category.ID,
		Uploads:     []Upload{{Name: "a.txt", Content: strings.NewReader("a")}},
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageUnavailable))
	assert.Len(t, f.files.Deleted(), 1)

	page, err := f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, f.publishedEvents())
}

func TestGetRejectsUnrelatedUser(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.admin, nil)

	_, err := f.tickets.Get(f.ctx, f.other.Actor(), ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.Get(f.ctx, f.other.Actor(), "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestGetIncludesThreadAndActivity(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	_, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "any news?"})
	require.NoError(t, err)

	detail, err := f.tickets.Get(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 1)
	require.Len(t, detail.Activity, 2)
	assert.Equal(t, domain.ActionCommented, detail.Activity[0].Action)
	assert.Equal(t, domain.ActionCreated, detail.Activity[1].Action)
}

func TestStatusLifecyclePreservesResolvedAt(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	f.clock.Advance(time.Hour)
	resolvedAt := f.clock.Now()
	updated, err := f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, resolvedAt, *updated.ResolvedAt)
	assert.Nil(t, updated.ClosedAt)

	f.clock.Advance(24 * time.Hour)
	closed, err := f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *closed.ResolvedAt)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.clock.Now(), *closed.ClosedAt)

	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	var updates []domain.ActivityLog
	for _, entry := range activity {
		if entry.Action == domain.ActionUpdated {
			updates = append(updates, entry)
		}
	}
	require.Len(t, updates, 2)
	assert.Equal(t, "Status changed to closed", updates[0].Description)
	assert.Equal(t, "Status changed to resolved", updates[1].Description)
	assert.Equal(t, "open", updates[1].OldValues["status"])
}

func TestOpenToClosedBackfillsResolvedAt(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	f.clock.Advance(time.Minute)

	closed, err := f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	require.NotNil(t, closed.ResolvedAt)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, *closed.ClosedAt, *closed.ResolvedAt)
}

func TestUpdateDescribesEveryChangedField(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.admin, nil)

	_, err := f.tickets.Update(f.ctx, f.admin.Actor(), ticket.ID, TicketUpdateInput{
		Title:      ptr("Printer still on fire"),
		Priority:   ptr(domain.TicketPriorityUrgent),
		AssignedTo: OptionalString{Set: true, Value: ptr(f.agent.ID)},
	})
	require.NoError(t, err)

	activity, err := f.tickets.ActivityFor(f.ctx, f.admin.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Title updated, Priority changed to urgent, Assigned to user ID u-agent", activity[0].Description)
}

func TestUpdateWithoutChangesRecordsNothing(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	updated, err := f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Title: ptr(ticket.Title)})
	require.NoError(t, err)
	assert.Equal(t, ticket.UpdatedAt, updated.UpdatedAt)

	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, activity, 1)
}

func TestUpdateScoping(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	_, err := f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, ptr(f.agent.ID))
	require.NoError(t, err)

	_, err = f.tickets.Update(f.ctx, f.other.Actor(), ticket.ID, TicketUpdateInput{Title: ptr("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	// the assignee can view but not modify
	_, err = f.tickets.Update(f.ctx, f.agent.Actor(), ticket.ID, TicketUpdateInput{Title: ptr("x")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{AssignedTo: OptionalString{Set: true}})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{Status: ptr(domain.TicketStatus("done"))})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestUpdateAppendsAttachments(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, func(in *TicketCreateInput) {
		in.Uploads = []Upload{{Name: "one.txt", Content: strings.NewReader("1")}}
	})

	updated, err := f.tickets.Update(f.ctx, f.owner.Actor(), ticket.ID, TicketUpdateInput{
		Uploads: []Upload{{Name: "two.txt", Content: strings.NewReader("2")}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 2)
	assert.Equal(t, "two.txt", updated.Attachments[1].Name)

	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Attachments updated", activity[0].Description)
}

func TestAssign(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	_, err := f.tickets.Assign(f.ctx, f.owner.Actor(), ticket.ID, ptr(f.agent.ID))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, ptr("ghost"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	assigned, err := f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, ptr(f.agent.ID))
	require.NoError(t, err)
	require.NotNil(t, assigned.Assignee)
	assert.Equal(t, f.agent.Name, assigned.Assignee.Name)

	_, err = f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, ptr(f.agent.ID))
	require.NoError(t, err)

	unassigned, err := f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedTo)

	activity, err := f.tickets.ActivityFor(f.ctx, f.admin.Actor(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, activity, 3)
	assert.Equal(t, "Ticket unassigned", activity[0].Description)
	assert.Equal(t, map[string]any{"assigned_to": "u-agent"}, activity[0].OldValues)
	assert.Equal(t, "Ticket assigned to user ID u-agent", activity[1].Description)
	assert.Equal(t, map[string]any{"assigned_to": nil}, activity[1].OldValues)
}

func TestArchiveUnarchiveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	original, err := f.store.Repos().Tickets.GetByID(f.ctx, ticket.ID, repository.TicketInclude{})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	archived, err := f.tickets.Archive(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	f.clock.Advance(time.Minute)
	again, err := f.tickets.Archive(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, archived.UpdatedAt, again.UpdatedAt)

	page, err := f.tickets.List(f.ctx, f.owner.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	page, err = f.tickets.List(f.ctx, f.owner.Actor(), repository.TicketListQuery{Filter: repository.TicketFilter{Archived: repository.ArchivedOnly}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = f.tickets.Unarchive(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	restored, err := f.store.Repos().Tickets.GetByID(f.ctx, ticket.ID, repository.TicketInclude{})
	require.NoError(t, err)

	restored.UpdatedAt = original.UpdatedAt
	assert.Equal(t, original, restored)

	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	actions := make([]domain.ActivityAction, 0, len(activity))
	for _, entry := range activity {
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []domain.ActivityAction{domain.ActionUnarchived, domain.ActionArchived, domain.ActionCreated}, actions)
}

func TestDeleteRemovesFilesAfterCommit(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, func(in *TicketCreateInput) {
		in.Uploads = []Upload{{Name: "t.txt", Content: strings.NewReader("t")}}
	})
	_, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{
		Content: "see attached",
		Uploads: []Upload{{Name: "c.txt", Content: strings.NewReader("c")}},
	})
	require.NoError(t, err)
	f.files.DeleteFunc = func(string) error { return errors.New("disk gone") }

	require.NoError(t, f.tickets.Delete(f.ctx, f.owner.Actor(), ticket.ID))

	assert.Len(t, f.files.Deleted(), 2)
	_, err = f.tickets.Get(f.ctx, f.admin.Actor(), ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	logs, err := f.store.Repos().Activity.ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, domain.ActionDeleted, logs[0].Action)
	assert.Equal(t, ticket.ID, logs[0].OldValues["id"])
}

func TestDeleteRollbackKeepsTicketAndFiles(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, func(in *TicketCreateInput) {
		in.Uploads = []Upload{{Name: "t.txt", Content: strings.NewReader("t")}}
	})
	f.store.FailNextTx = errors.New("deadlock detected")

	err := f.tickets.Delete(f.ctx, f.owner.Actor(), ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageUnavailable))
	assert.Empty(t, f.files.Deleted())

	_, err = f.tickets.Get(f.ctx, f.owner.Actor(), ticket.ID)
	assert.NoError(t, err)
	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, activity, 1)
}

func TestDeleteRequiresModifyScope(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	err := f.tickets.Delete(f.ctx, f.other.Actor(), ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	err = f.tickets.Delete(f.ctx, f.admin.Actor(), "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListScopesNonAdmins(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, f.owner, nil)
	f.createTicket(t, f.other, nil)
	assigned := f.createTicket(t, f.other, nil)
	_, err := f.tickets.Assign(f.ctx, f.admin.Actor(), assigned.ID, ptr(f.owner.ID))
	require.NoError(t, err)

	page, err := f.tickets.List(f.ctx, f.owner.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestListUnknownSortMatchesDefault(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.createTicket(t, f.owner, nil)
		f.clock.Advance(time.Minute)
	}

	defaults, err := f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	bogus, err := f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{Sort: repository.ParseTicketSort("title")})
	require.NoError(t, err)
	assert.Equal(t, defaults.Items, bogus.Items)
	assert.True(t, defaults.Items[0].CreatedAt.After(defaults.Items[3].CreatedAt))
}

func TestListPageBeyondEndIsEmpty(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.createTicket(t, f.owner, nil)
	}

	page, err := f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{Page: 1000})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 1000, page.Page)
	assert.Equal(t, 1, page.TotalPages)
}

func TestStatsTotalMatchesDefaultListing(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, f.owner, nil)
	f.createTicket(t, f.owner, func(in *TicketCreateInput) { in.Priority = domain.TicketPriorityUrgent })
	archived := f.createTicket(t, f.other, nil)
	_, err := f.tickets.Archive(f.ctx, f.other.Actor(), archived.ID)
	require.NoError(t, err)

	stats, err := f.stats.Stats(f.ctx, nil)
	require.NoError(t, err)
	page, err := f.tickets.List(f.ctx, f.admin.Actor(), repository.TicketListQuery{})
	require.NoError(t, err)
	assert.Equal(t, page.Total, stats.Total)
	assert.Equal(t, 1, stats.HighPriority)
	assert.Equal(t, 2, stats.ThisWeek)

	scoped, err := f.stats.ForActor(f.ctx, f.other.Actor())
	require.NoError(t, err)
	assert.Zero(t, scoped.Total)
}

func TestTicketEventsInvalidateStatsCache(t *testing.T) {
	f := newFixture(t)
	_, err := f.stats.Stats(f.ctx, nil)
	require.NoError(t, err)
	_, _, cached := f.cache.Get(f.ctx, "all")
	require.True(t, cached)

	ticket := f.createTicket(t, f.owner, nil)
	_, _, cached = f.cache.Get(f.ctx, "all")
	assert.False(t, cached)
	assert.Equal(t, 1, f.cache.invalidated)

	stats, err := f.stats.Stats(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	published := f.publishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventType(domain.ActionCreated), published[0].Type)
	assert.Equal(t, ticket.ID, published[0].TicketID)
	assert.Equal(t, f.owner.ID, published[0].ActorID)
}
