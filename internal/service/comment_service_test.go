package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestCommentThreadHidesInternalRemarks(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	_, err := f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, ptr(f.agent.ID))
	require.NoError(t, err)

	_, err = f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "still broken"})
	require.NoError(t, err)
	f.clock.Advance(1)
	_, err = f.comments.Create(f.ctx, f.agent.Actor(), ticket.ID, CommentCreateInput{Content: "vendor says toner", IsInternal: true})
	require.NoError(t, err)

	visible, err := f.comments.List(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "still broken", visible[0].Content)

	for _, viewer := range []domain.User{f.agent, f.admin} {
		all, err := f.comments.List(f.ctx, viewer.Actor(), ticket.ID)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "still broken", all[0].Content)
		assert.True(t, all[1].IsInternal)
	}

	detail, err := f.tickets.Get(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 1)
}

func TestCommentRequiresViewScope(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	_, err := f.comments.Create(f.ctx, f.other.Actor(), ticket.ID, CommentCreateInput{Content: "me too"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	_, err = f.comments.List(f.ctx, f.other.Actor(), ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	_, err = f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "  "})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	_, err = f.comments.Create(f.ctx, f.owner.Actor(), "missing", CommentCreateInput{Content: "hello"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestCommentCreateRecordsActivity(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	comment, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{
		Content: "log attached",
		Uploads: []Upload{{Name: "log.txt", Content: strings.NewReader("trace")}},
	})
	require.NoError(t, err)
	require.NotNil(t, comment.Author)
	assert.Equal(t, f.owner.Name, comment.Author.Name)
	require.Len(t, comment.Attachments, 1)

	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCommented, activity[0].Action)
	assert.Equal(t, "Comment added", activity[0].Description)
	assert.Equal(t, map[string]any{"comment_id": comment.ID}, activity[0].NewValues)
}

func TestCommentEditRestrictedToAuthorOrAdmin(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	_, err := f.tickets.Assign(f.ctx, f.admin.Actor(), ticket.ID, ptr(f.agent.ID))
	require.NoError(t, err)
	comment, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "first"})
	require.NoError(t, err)

	_, err = f.comments.Update(f.ctx, f.agent.Actor(), comment.ID, CommentUpdateInput{Content: ptr("hijack")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	err = f.comments.Delete(f.ctx, f.agent.Actor(), comment.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	updated, err := f.comments.Update(f.ctx, f.owner.Actor(), comment.ID, CommentUpdateInput{Content: ptr("second")})
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Content)

	updated, err = f.comments.Update(f.ctx, f.admin.Actor(), comment.ID, CommentUpdateInput{IsInternal: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsInternal)
	assert.Equal(t, "second", updated.Content)

	activity, err := f.tickets.ActivityFor(f.ctx, f.admin.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCommentUpdated, activity[0].Action)
	assert.Equal(t, f.admin.ID, activity[0].UserID)
}

func TestCommentDeleteRecordsBeforeRemoval(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)
	comment, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{
		Content: "oops",
		Uploads: []Upload{{Name: "wrong.txt", Content: strings.NewReader("x")}},
	})
	require.NoError(t, err)

	require.NoError(t, f.comments.Delete(f.ctx, f.owner.Actor(), comment.ID))

	_, err = f.comments.Update(f.ctx, f.owner.Actor(), comment.ID, CommentUpdateInput{Content: ptr("again")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Equal(t, []string{comment.Attachments[0].Path}, f.files.Deleted())

	activity, err := f.tickets.ActivityFor(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCommentDeleted, activity[0].Action)
	assert.Equal(t, map[string]any{"comment_id": comment.ID}, activity[0].OldValues)
	assert.Nil(t, activity[0].NewValues)
}

func TestCommentContentKeepsPlainTextAndRejectsMarkupOnly(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	comment, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "load > 3 & <climbing>"})
	require.NoError(t, err)
	assert.Equal(t, "load > 3 & <climbing>", comment.Content)

	_, err = f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "<b></b><script>x()</script>"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = f.comments.Update(f.ctx, f.owner.Actor(), comment.ID, CommentUpdateInput{Content: ptr("<style>p{}</style>")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	stored, err := f.comments.List(f.ctx, f.owner.Actor(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "load > 3 & <climbing>", stored[0].Content)
}

func TestInternalCommentsNeedInternalVisibility(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.owner, nil)

	_, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "secret", IsInternal: true})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	public, err := f.comments.Create(f.ctx, f.owner.Actor(), ticket.ID, CommentCreateInput{Content: "public"})
	require.NoError(t, err)
	_, err = f.comments.Update(f.ctx, f.owner.Actor(), public.ID, CommentUpdateInput{IsInternal: ptr(true)})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	hidden, err := f.comments.Update(f.ctx, f.admin.Actor(), public.ID, CommentUpdateInput{IsInternal: ptr(true)})
	require.NoError(t, err)
	assert.True(t, hidden.IsInternal)

	_, err = f.comments.Create(f.ctx, f.agent.Actor(), ticket.ID, CommentCreateInput{Content: "triage note", IsInternal: true})
	assert.NoError(t, err)
}
