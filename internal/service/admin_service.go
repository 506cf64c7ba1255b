package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const dashboardRecentTickets = 10

// AdminService backs the administrator dashboard and user management.
type AdminService struct {
	store repository.Store
	stats *StatsService
}

// Dashboard summarises the whole help desk.
type Dashboard struct {
	Stats         domain.TicketStats
	RecentTickets []domain.Ticket
	UsersByRole   []domain.RoleCount
}

// UserPage is one page of the user listing.
type UserPage struct {
	Items      []domain.User
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// NewAdminService builds the service.
func NewAdminService(store repository.Store, stats *StatsService) *AdminService {
	return &AdminService{store: store, stats: stats}
}

// Dashboard returns unscoped stats, the newest non-archived tickets and user counts per role.
func (s *AdminService) Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	stats, err := s.stats.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	recent, _, err := repos.Tickets.List(ctx, repository.TicketListQuery{
		Sort:    repository.SortNewest,
		PerPage: dashboardRecentTickets,
		Include: repository.IncludeAll,
	})
	if err != nil {
		return nil, mapTxError(err)
	}
	roles, err := repos.Users.CountByRole(ctx)
	if err != nil {
		return nil, mapTxError(err)
	}
	return &Dashboard{Stats: stats, RecentTickets: recent, UsersByRole: roles}, nil
}

// Users pages through accounts ordered by name.
func (s *AdminService) Users(ctx context.Context, actor domain.Actor, page, perPage int) (*UserPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	q := repository.TicketListQuery{Page: page, PerPage: perPage}.Normalize()
	users, total, err := s.store.Repos().Users.List(ctx, q.PerPage, q.Offset())
	if err != nil {
		return nil, mapTxError(err)
	}
	return &UserPage{
		Items:      users,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: repository.TotalPages(total, q.PerPage),
	}, nil
}

// UpdateRole changes a user's role. Admins cannot demote themselves.
func (s *AdminService) UpdateRole(ctx context.Context, actor domain.Actor, userID string, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		problems := fieldErrors{}
		problems.add("role", "must be one of admin, agent, user")
		return nil, problems.err()
	}
	if userID == actor.ID && role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("you cannot change your own role", map[string]any{"role": "cannot demote yourself"})
	}
	users := s.store.Repos().Users
	if err := users.UpdateRole(ctx, userID, role); err != nil {
		return nil, mapLookup(err, "user", userID)
	}
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapLookup(err, "user", userID)
	}
	return user, nil
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("administrator role required")
	}
	return nil
}
