package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type categoryRepository struct {
	*table
}

func (r *categoryRepository) Create(_ context.Context, category *domain.Category) error {
	return r.write(func(d *state) error {
		if err := uniqueCategory(d, category); err != nil {
			return err
		}
		category.UpdatedAt = category.CreatedAt
		stored := *category
		stored.TicketsCount = 0
		d.categories[category.ID] = stored
		return nil
	})
}

func (r *categoryRepository) Update(_ context.Context, category *domain.Category) error {
	return r.write(func(d *state) error {
		if _, ok := d.categories[category.ID]; !ok {
			return pgx.ErrNoRows
		}
		if err := uniqueCategory(d, category); err != nil {
			return err
		}
		stored := *category
		stored.TicketsCount = 0
		d.categories[category.ID] = stored
		return nil
	})
}

func (r *categoryRepository) Delete(_ context.Context, id string) error {
	return r.write(func(d *state) error {
		if _, ok := d.categories[id]; !ok {
			return pgx.ErrNoRows
		}
		if countTickets(d, id) > 0 {
			return &pgconn.PgError{Code: "23503", ConstraintName: "tickets_category_id_fkey"}
		}
		delete(d.categories, id)
		return nil
	})
}

func (r *categoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	var (
		category domain.Category
		found    bool
	)
	r.read(func(d *state) {
		if category, found = d.categories[id]; found {
			category.TicketsCount = countTickets(d, id)
		}
	})
	if !found {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r *categoryRepository) List(_ context.Context, activeOnly bool) ([]domain.Category, error) {
	result := []domain.Category{}
	r.read(func(d *state) {
		for _, c := range d.categories {
			if activeOnly && !c.IsActive {
				continue
			}
			c.TicketsCount = countTickets(d, c.ID)
			result = append(result, c)
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *categoryRepository) CountTickets(_ context.Context, id string) (int, error) {
	var count int
	r.read(func(d *state) { count = countTickets(d, id) })
	return count, nil
}

func countTickets(d *state, categoryID string) int {
	count := 0
	for _, t := range d.tickets {
		if t.CategoryID == categoryID {
			count++
		}
	}
	return count
}

func uniqueCategory(d *state, category *domain.Category) error {
	for _, c := range d.categories {
		if c.ID == category.ID {
			continue
		}
		if c.Name == category.Name {
			return &pgconn.PgError{Code: "23505", ConstraintName: "categories_name_key"}
		}
		if c.Slug == category.Slug {
			return &pgconn.PgError{Code: "23505", ConstraintName: "categories_slug_key"}
		}
	}
	return nil
}
