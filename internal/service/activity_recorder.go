package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// ActivityRecorder appends audit entries on the caller's transaction.
type ActivityRecorder struct {
	now Clock
}

// NewActivityRecorder builds a recorder stamping entries with now.
func NewActivityRecorder(now Clock) ActivityRecorder {
	return ActivityRecorder{now: clockOrSystem(now)}
}

// ActivityEntry is the content of one audit record.
type ActivityEntry struct {
	TicketID    string
	ActorID     string
	Action      domain.ActivityAction
	OldValues   map[string]any
	NewValues   map[string]any
	Description string
}

// Record appends entry and returns the stored log.
func (r ActivityRecorder) Record(ctx context.Context, repo repository.ActivityLogRepository, entry ActivityEntry) (*domain.ActivityLog, error) {
	log := &domain.ActivityLog{
		ID:          uuid.NewString(),
		TicketID:    entry.TicketID,
		UserID:      entry.ActorID,
		Action:      entry.Action,
		OldValues:   entry.OldValues,
		NewValues:   entry.NewValues,
		Description: entry.Description,
		CreatedAt:   r.now(),
	}
	if err := repo.Append(ctx, log); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return log, nil
}
