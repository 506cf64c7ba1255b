package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type userRepository struct {
	*table
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	return r.write(func(d *state) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, user.Email) {
				return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
			}
		}
		user.UpdatedAt = user.CreatedAt
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepository) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return r.write(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		u.Role = role
		u.UpdatedAt = time.Now().UTC()
		d.users[id] = u
		return nil
	})
}

func (r *userRepository) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return r.write(func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		u.PasswordHash = hash
		u.UpdatedAt = time.Now().UTC()
		d.users[id] = u
		return nil
	})
}

func (r *userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	var (
		user  domain.User
		found bool
	)
	r.read(func(d *state) { user, found = d.users[id] })
	if !found {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var (
		user  domain.User
		found bool
	)
	r.read(func(d *state) {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				user, found = u, true
				return
			}
		}
	})
	if !found {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepository) List(_ context.Context, limit, offset int) ([]domain.User, int, error) {
	var all []domain.User
	r.read(func(d *state) {
		for _, u := range d.users {
			all = append(all, u)
		}
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	total := len(all)
	start := min(max(offset, 0), total)
	end := min(start+max(limit, 0), total)
	return append([]domain.User{}, all[start:end]...), total, nil
}

func (r *userRepository) CountByRole(_ context.Context) ([]domain.RoleCount, error) {
	counts := map[domain.Role]int{}
	r.read(func(d *state) {
		for _, u := range d.users {
			counts[u.Role]++
		}
	})
	result := []domain.RoleCount{}
	for role, count := range counts {
		result = append(result, domain.RoleCount{Role: role, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Role < result[j].Role })
	return result, nil
}
