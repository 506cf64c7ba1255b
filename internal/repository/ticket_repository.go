package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string, include TicketInclude) (*domain.Ticket, error)
	// GetForUpdate reads the row and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, query TicketListQuery) ([]domain.Ticket, int, error)
	Stats(ctx context.Context, query StatsQuery) (domain.TicketStats, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	attachments, err := marshalAttachments(ticket.Attachments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, title, description, priority, status, category_id, user_id, assigned_to,
            attachments, resolved_at, closed_at, archived, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$13)`
	_, err = r.db.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CategoryID,
		ticket.UserID,
		ticket.AssignedTo,
		attachments,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.Archived,
		ticket.CreatedAt,
	)
	if err == nil {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	attachments, err := marshalAttachments(ticket.Attachments)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, category_id=$5, assigned_to=$6,
            attachments=$7, resolved_at=$8, closed_at=$9, archived=$10, updated_at=$11
        WHERE id=$12`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CategoryID,
		ticket.AssignedTo,
		attachments,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.Archived,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string, include TicketInclude) (*domain.Ticket, error) {
	columns, joins := ticketSelect(include)
	query := fmt.Sprintf("SELECT %s FROM tickets t %s WHERE t.id=$1", columns, joins)
	return scanTicket(r.db.QueryRow(ctx, query, id), include)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets t WHERE t.id=$1 FOR UPDATE", ticketColumns)
	return scanTicket(r.db.QueryRow(ctx, query, id), TicketInclude{})
}

func (r *ticketRepository) List(ctx context.Context, q TicketListQuery) ([]domain.Ticket, int, error) {
	q = q.Normalize()
	countSQL, listSQL, args := buildTicketListQuery(q)

	var total int
	// count shares every arg except LIMIT and OFFSET
	if err := r.db.QueryRow(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 || q.Offset() >= total {
		return []domain.Ticket{}, total, nil
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0, q.PerPage)
	for rows.Next() {
		ticket, err := scanTicket(rows, q.Include)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, total, rows.Err()
}

func (r *ticketRepository) Stats(ctx context.Context, q StatsQuery) (domain.TicketStats, error) {
	query, args := buildTicketStatsQuery(q)
	var stats domain.TicketStats
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&stats.Open,
		&stats.InProgress,
		&stats.Resolved,
		&stats.Closed,
		&stats.HighPriority,
		&stats.ThisWeek,
		&stats.LastWeek,
	)
	return stats, err
}

type relatedUserRow struct {
	ID, Name, Email, Role *string
}

func (u relatedUserRow) summary() *domain.UserSummary {
	if u.ID == nil {
		return nil
	}
	return &domain.UserSummary{ID: *u.ID, Name: deref(u.Name), Email: deref(u.Email), Role: domain.Role(deref(u.Role))}
}

func scanTicket(row pgx.Row, include TicketInclude) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		attachments []byte
		category    struct{ ID, Name, Slug, Color *string }
		creator     relatedUserRow
		assignee    relatedUserRow
	)
	dest := []any{
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CategoryID,
		&ticket.UserID,
		&ticket.AssignedTo,
		&attachments,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.Archived,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
	if include.Category {
		dest = append(dest, &category.ID, &category.Name, &category.Slug, &category.Color)
	}
	if include.Creator {
		dest = append(dest, &creator.ID, &creator.Name, &creator.Email, &creator.Role)
	}
	if include.Assignee {
		dest = append(dest, &assignee.ID, &assignee.Name, &assignee.Email, &assignee.Role)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := unmarshalAttachments(attachments, &ticket.Attachments); err != nil {
		return nil, err
	}
	if category.ID != nil {
		ticket.Category = &domain.Category{ID: *category.ID, Name: deref(category.Name), Slug: deref(category.Slug), Color: deref(category.Color)}
	}
	ticket.Creator = creator.summary()
	ticket.Assignee = assignee.summary()
	return &ticket, nil
}

func marshalAttachments(list []domain.Attachment) ([]byte, error) {
	if list == nil {
		list = []domain.Attachment{}
	}
	return json.Marshal(list)
}

func unmarshalAttachments(raw []byte, dst *[]domain.Attachment) error {
	*dst = []domain.Attachment{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
