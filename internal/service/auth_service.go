package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	Store  repository.Store
	Logger *zap.Logger
	Clock  Clock
}

// AuthResult is returned on successful register or login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      deps.Store.Repos().Users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cost,
		logger:     nopLoggerIfNil(deps.Logger),
		now:        clockOrSystem(deps.Clock),
	}
}

// Register creates an account with the user role and signs a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	problems := fieldErrors{}
	if name == "" {
		problems.add("name", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		problems.add("email", "must be a valid email address")
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		problems.add("password", "must be at least 8 characters")
	}
	if err := problems.err(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapTxError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapTxError(err)
	}
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, mapTxError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		s.rehash(ctx, user, password)
	}
	return s.issue(user)
}

// EnsureAdmin creates an admin account for email unless one exists. An
// existing account with that email is promoted instead.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			if err := s.users.UpdateRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
				return nil, mapTxError(err)
			}
			existing.Role = domain.RoleAdmin
		}
		return existing, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, mapTxError(err)
	}

	result, err := s.Register(ctx, RegisterInput{Name: "Administrator", Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRole(ctx, result.User.ID, domain.RoleAdmin); err != nil {
		return nil, mapTxError(err)
	}
	result.User.Role = domain.RoleAdmin
	return result.User, nil
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// rehash upgrades a hash made under an older cost setting. Failure keeps the old hash.
func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}
