package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type commentRepository struct {
	*table
}

func (r *commentRepository) Create(_ context.Context, comment *domain.Comment) error {
	return r.write(func(d *state) error {
		if _, ok := d.tickets[comment.TicketID]; !ok {
			return &pgconn.PgError{Code: "23503", ConstraintName: "comments_ticket_id_fkey"}
		}
		comment.UpdatedAt = comment.CreatedAt
		d.comments[comment.ID] = comment.Clone()
		return nil
	})
}

func (r *commentRepository) Update(_ context.Context, comment *domain.Comment) error {
	return r.write(func(d *state) error {
		if _, ok := d.comments[comment.ID]; !ok {
			return pgx.ErrNoRows
		}
		d.comments[comment.ID] = comment.Clone()
		return nil
	})
}

func (r *commentRepository) Delete(_ context.Context, id string) error {
	return r.write(func(d *state) error {
		if _, ok := d.comments[id]; !ok {
			return pgx.ErrNoRows
		}
		delete(d.comments, id)
		return nil
	})
}

func (r *commentRepository) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	var (
		comment domain.Comment
		found   bool
	)
	r.read(func(d *state) {
		var stored domain.Comment
		if stored, found = d.comments[id]; found {
			comment = withAuthor(d, stored)
		}
	})
	if !found {
		return nil, pgx.ErrNoRows
	}
	return &comment, nil
}

func (r *commentRepository) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	result := []domain.Comment{}
	r.read(func(d *state) {
		for _, c := range d.comments {
			if c.TicketID != ticketID || (c.IsInternal && !includeInternal) {
				continue
			}
			result = append(result, withAuthor(d, c))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func withAuthor(d *state, stored domain.Comment) domain.Comment {
	c := stored.Clone()
	if u, ok := d.users[c.UserID]; ok {
		c.Author = u.Summary()
	}
	return c
}
