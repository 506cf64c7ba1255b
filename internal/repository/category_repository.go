package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CategoryRepository manages ticket categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	// List returns categories ordered by name with their ticket counts.
	List(ctx context.Context, activeOnly bool) ([]domain.Category, error)
	CountTickets(ctx context.Context, id string) (int, error)
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository builds repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (id, name, slug, description, color, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`
	_, err := r.db.Exec(ctx, query,
		category.ID,
		category.Name,
		category.Slug,
		category.Description,
		category.Color,
		category.IsActive,
		category.CreatedAt,
	)
	if err == nil {
		category.UpdatedAt = category.CreatedAt
	}
	return err
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, slug=$2, description=$3, color=$4, is_active=$5, updated_at=$6
        WHERE id=$7`
	cmd, err := r.db.Exec(ctx, query,
		category.Name,
		category.Slug,
		category.Description,
		category.Color,
		category.IsActive,
		category.UpdatedAt,
		category.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT c.id, c.name, c.slug, c.description, c.color, c.is_active, c.created_at, c.updated_at,
               (SELECT COUNT(*) FROM tickets t WHERE t.category_id = c.id)
        FROM categories c WHERE c.id=$1`
	return scanCategory(r.db.QueryRow(ctx, query, id))
}

func (r *categoryRepository) List(ctx context.Context, activeOnly bool) ([]domain.Category, error) {
	const query = `
        SELECT c.id, c.name, c.slug, c.description, c.color, c.is_active, c.created_at, c.updated_at,
               (SELECT COUNT(*) FROM tickets t WHERE t.category_id = c.id)
        FROM categories c
        WHERE (NOT $1 OR c.is_active)
        ORDER BY c.name ASC`
	rows, err := r.db.Query(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) CountTickets(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE category_id=$1`, id).Scan(&count)
	return count, err
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var category domain.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
		&category.Color,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
		&category.TicketsCount,
	); err != nil {
		return nil, err
	}
	return &category, nil
}
