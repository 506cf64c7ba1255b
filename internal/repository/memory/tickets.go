package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type ticketRepository struct {
	*table
}

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.write(func(d *state) error {
		if _, exists := d.tickets[ticket.ID]; exists {
			return &pgconn.PgError{Code: "23505", ConstraintName: "tickets_pkey"}
		}
		ticket.UpdatedAt = ticket.CreatedAt
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.write(func(d *state) error {
		if _, exists := d.tickets[ticket.ID]; !exists {
			return pgx.ErrNoRows
		}
		d.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepository) Delete(_ context.Context, id string) error {
	return r.write(func(d *state) error {
		if _, exists := d.tickets[id]; !exists {
			return pgx.ErrNoRows
		}
		delete(d.tickets, id)
		for commentID, c := range d.comments {
			if c.TicketID == id {
				delete(d.comments, commentID)
			}
		}
		return nil
	})
}

func (r *ticketRepository) GetByID(_ context.Context, id string, include repository.TicketInclude) (*domain.Ticket, error) {
	var (
		ticket domain.Ticket
		found  bool
	)
	r.read(func(d *state) {
		var stored domain.Ticket
		if stored, found = d.tickets[id]; found {
			ticket = resolveTicket(d, stored, include)
		}
	})
	if !found {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id, repository.TicketInclude{})
}

func (r *ticketRepository) List(_ context.Context, q repository.TicketListQuery) ([]domain.Ticket, int, error) {
	q = q.Normalize()
	var matched []domain.Ticket
	r.read(func(d *state) {
		for _, t := range d.tickets {
			if matchesFilter(d, t, q.Filter) {
				matched = append(matched, resolveTicket(d, t, q.Include))
			}
		}
	})
	sortTickets(matched, q.Sort)

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PerPage, total)
	page := make([]domain.Ticket, 0, end-start)
	page = append(page, matched[start:end]...)
	return page, total, nil
}

func (r *ticketRepository) Stats(_ context.Context, q repository.StatsQuery) (domain.TicketStats, error) {
	thisWeek, lastWeek := q.WeekBounds()
	var stats domain.TicketStats
	r.read(func(d *state) {
		for _, t := range d.tickets {
			if t.Archived {
				continue
			}
			if q.UserID != nil && t.UserID != *q.UserID && !t.IsAssignedTo(*q.UserID) {
				continue
			}
			stats.Total++
			switch t.Status {
			case domain.TicketStatusOpen:
				stats.Open++
			case domain.TicketStatusInProgress:
				stats.InProgress++
			case domain.TicketStatusResolved:
				stats.Resolved++
			case domain.TicketStatusClosed:
				stats.Closed++
			}
			if t.Priority == domain.TicketPriorityHigh || t.Priority == domain.TicketPriorityUrgent {
				stats.HighPriority++
			}
			if !t.CreatedAt.Before(thisWeek) {
				stats.ThisWeek++
			} else if !t.CreatedAt.Before(lastWeek) {
				stats.LastWeek++
			}
		}
	})
	return stats, nil
}

func matchesFilter(d *state, t domain.Ticket, f repository.TicketFilter) bool {
	switch f.Archived {
	case repository.ArchivedInclude:
	case repository.ArchivedOnly:
		if !t.Archived {
			return false
		}
	default:
		if t.Archived {
			return false
		}
	}
	if f.VisibleTo != nil && t.UserID != *f.VisibleTo && !t.IsAssignedTo(*f.VisibleTo) {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.AssignedTo != nil && !t.IsAssignedTo(*f.AssignedTo) {
		return false
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		creator := strings.ToLower(d.users[t.UserID].Name)
		if !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) &&
			!strings.Contains(creator, search) {
			return false
		}
	}
	return true
}

func sortTickets(tickets []domain.Ticket, order repository.TicketSort) {
	newest := func(a, b domain.Ticket) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		switch order {
		case repository.SortOldest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		case repository.SortPriority:
			if a.Priority.Rank() != b.Priority.Rank() {
				return a.Priority.Rank() < b.Priority.Rank()
			}
		case repository.SortStatus:
			if a.Status.Rank() != b.Status.Rank() {
				return a.Status.Rank() < b.Status.Rank()
			}
		}
		return newest(a, b)
	})
}

func resolveTicket(d *state, stored domain.Ticket, include repository.TicketInclude) domain.Ticket {
	t := stored.Clone()
	if include.Category {
		if c, ok := d.categories[t.CategoryID]; ok {
			t.Category = &domain.Category{ID: c.ID, Name: c.Name, Slug: c.Slug, Color: c.Color}
		}
	}
	if include.Creator {
		if u, ok := d.users[t.UserID]; ok {
			t.Creator = u.Summary()
		}
	}
	if include.Assignee && t.AssignedTo != nil {
		if u, ok := d.users[*t.AssignedTo]; ok {
			t.Assignee = u.Summary()
		}
	}
	return t
}
