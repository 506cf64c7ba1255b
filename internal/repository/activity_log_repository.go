package repository

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ActivityLogRepository stores append-only audit entries.
type ActivityLogRepository interface {
	Append(ctx context.Context, entry *domain.ActivityLog) error
	// ListByTicket returns entries newest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityLog, error)
}

type activityLogRepository struct {
	db DBTX
}

// NewActivityLogRepository builds repository.
func NewActivityLogRepository(db DBTX) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Append(ctx context.Context, entry *domain.ActivityLog) error {
	oldValues, err := marshalValues(entry.OldValues)
	if err != nil {
		return err
	}
	newValues, err := marshalValues(entry.NewValues)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO activity_logs (id, ticket_id, user_id, action, old_values, new_values, description, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err = r.db.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.UserID,
		entry.Action,
		oldValues,
		newValues,
		entry.Description,
		entry.CreatedAt,
	)
	return err
}

func (r *activityLogRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityLog, error) {
	const query = `
        SELECT a.id, a.ticket_id, a.user_id, a.action, a.old_values, a.new_values, a.description, a.created_at,
               u.id, u.name, u.email, u.role
        FROM activity_logs a LEFT JOIN users u ON u.id = a.user_id
        WHERE a.ticket_id=$1
        ORDER BY a.created_at DESC, a.id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ActivityLog{}
	for rows.Next() {
		var (
			entry              domain.ActivityLog
			oldValues, newVals []byte
			actor              relatedUserRow
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.UserID,
			&entry.Action,
			&oldValues,
			&newVals,
			&entry.Description,
			&entry.CreatedAt,
			&actor.ID,
			&actor.Name,
			&actor.Email,
			&actor.Role,
		); err != nil {
			return nil, err
		}
		if entry.OldValues, err = unmarshalValues(oldValues); err != nil {
			return nil, err
		}
		if entry.NewValues, err = unmarshalValues(newVals); err != nil {
			return nil, err
		}
		entry.User = actor.summary()
		result = append(result, entry)
	}
	return result, rows.Err()
}

// marshalValues keeps absent snapshots as SQL NULL.
func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func unmarshalValues(raw []byte) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}
