package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestTicketScoping(t *testing.T) {
	assignee := "agent-1"
	ticket := &domain.Ticket{ID: "t1", UserID: "owner", AssignedTo: &assignee}

	admin := domain.Actor{ID: "root", Role: domain.RoleAdmin}
	owner := domain.Actor{ID: "owner", Role: domain.RoleUser}
	agent := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}
	otherAgent := domain.Actor{ID: "agent-2", Role: domain.RoleAgent}
	stranger := domain.Actor{ID: "u2", Role: domain.RoleUser}

	tests := []struct {
		name                             string
		actor                            domain.Actor
		view, modify, assign, seeInternal bool
	}{
		{"admin", admin, true, true, true, true},
		{"creator", owner, true, true, false, false},
		{"assignee", agent, true, false, false, true},
		{"unrelated agent", otherAgent, false, false, false, true},
		{"stranger", stranger, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.view, CanView(tt.actor, ticket))
			assert.Equal(t, tt.view, CanComment(tt.actor, ticket))
			assert.Equal(t, tt.modify, CanModify(tt.actor, ticket))
			assert.Equal(t, tt.assign, CanAssign(tt.actor))
			assert.Equal(t, tt.seeInternal, CanSeeInternal(tt.actor, ticket))
		})
	}
}

func TestEnsureHelpersReturnForbidden(t *testing.T) {
	ticket := &domain.Ticket{UserID: "owner"}
	stranger := domain.Actor{ID: "u2", Role: domain.RoleUser}

	assert.True(t, apperrors.IsCode(EnsureView(stranger, ticket), apperrors.CodeForbidden))
	assert.True(t, apperrors.IsCode(EnsureModify(stranger, ticket), apperrors.CodeForbidden))
	assert.True(t, apperrors.IsCode(EnsureAssign(stranger), apperrors.CodeForbidden))
	assert.NoError(t, EnsureView(domain.Actor{ID: "owner", Role: domain.RoleUser}, ticket))
}

func TestCommentEditScoping(t *testing.T) {
	comment := &domain.Comment{UserID: "author"}
	assert.True(t, CanEditComment(domain.Actor{ID: "author", Role: domain.RoleUser}, comment))
	assert.True(t, CanEditComment(domain.Actor{ID: "x", Role: domain.RoleAdmin}, comment))
	assert.False(t, CanEditComment(domain.Actor{ID: "x", Role: domain.RoleAgent}, comment))
	assert.Error(t, EnsureEditComment(domain.Actor{ID: "x", Role: domain.RoleUser}, comment))
}
