package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type activityLogRepository struct {
	*table
}

func (r *activityLogRepository) Append(_ context.Context, entry *domain.ActivityLog) error {
	return r.write(func(d *state) error {
		stored := *entry
		stored.User = nil
		d.activity = append(d.activity, stored)
		return nil
	})
}

func (r *activityLogRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.ActivityLog, error) {
	result := []domain.ActivityLog{}
	r.read(func(d *state) {
		for i := len(d.activity) - 1; i >= 0; i-- {
			entry := d.activity[i]
			if entry.TicketID != ticketID {
				continue
			}
			if u, ok := d.users[entry.UserID]; ok {
				entry.User = u.Summary()
			}
			result = append(result, entry)
		}
	})
	// append order breaks ties between entries sharing a timestamp
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
