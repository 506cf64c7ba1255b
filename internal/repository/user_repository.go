package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List pages through users ordered by name and reports the total.
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	CountByRole(ctx context.Context) ([]domain.RoleCount, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, password_hash, role, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
	)
	if err == nil {
		user.UpdatedAt = user.CreatedAt
	}
	return err
}

func (r *userRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET role=$1, updated_at=NOW() WHERE id=$2`, role, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	return users, total, rows.Err()
}

func (r *userRepository) CountByRole(ctx context.Context) ([]domain.RoleCount, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []domain.RoleCount{}
	for rows.Next() {
		var rc domain.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, rc)
	}
	return counts, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
