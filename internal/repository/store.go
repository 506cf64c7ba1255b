package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both the pool and an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to the same connection or transaction.
type Repositories struct {
	Tickets    TicketRepository
	Comments   CommentRepository
	Activity   ActivityLogRepository
	Categories CategoryRepository
	Users      UserRepository
}

// TxFunc runs inside a transaction; returning an error rolls everything back.
type TxFunc func(ctx context.Context, repos Repositories) error

// Store is the relational backend consumed by the services.
type Store interface {
	Repos() Repositories
	WithinTransaction(ctx context.Context, fn TxFunc) error
	Ping(ctx context.Context) error
}

type postgresStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

// NewPostgresStore builds a pgx backed store.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, repos: newRepositories(pool)}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:    NewTicketRepository(db),
		Comments:   NewCommentRepository(db),
		Activity:   NewActivityLogRepository(db),
		Categories: NewCategoryRepository(db),
		Users:      NewUserRepository(db),
	}
}

func (s *postgresStore) Repos() Repositories {
	return s.repos
}

func (s *postgresStore) WithinTransaction(ctx context.Context, fn TxFunc) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}
