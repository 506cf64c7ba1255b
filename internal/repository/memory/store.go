// Package memory provides an in-process Store for development and tests.
// Production should use the Postgres implementation.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type state struct {
	tickets    map[string]domain.Ticket
	comments   map[string]domain.Comment
	activity   []domain.ActivityLog
	categories map[string]domain.Category
	users      map[string]domain.User
}

func (s *state) clone() *state {
	return &state{
		tickets:    maps.Clone(s.tickets),
		comments:   maps.Clone(s.comments),
		activity:   append([]domain.ActivityLog(nil), s.activity...),
		categories: maps.Clone(s.categories),
		users:      maps.Clone(s.users),
	}
}

// Store keeps every table in maps guarded by a single mutex. Transactions are
// serialized and write to a private copy that replaces the committed state only
// when they succeed, so readers never observe uncommitted writes.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *state

	// FailNextTx makes the next WithinTransaction fail after fn succeeds, for rollback tests.
	FailNextTx error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: &state{
		tickets:    map[string]domain.Ticket{},
		comments:   map[string]domain.Comment{},
		categories: map[string]domain.Category{},
		users:      map[string]domain.User{},
	}}
}

// Repos returns repositories that serialize with running transactions on writes.
func (s *Store) Repos() repository.Repositories {
	return s.repos(nil)
}

func (s *Store) repos(tx *state) repository.Repositories {
	base := &table{store: s, tx: tx}
	return repository.Repositories{
		Tickets:    &ticketRepository{base},
		Comments:   &commentRepository{base},
		Activity:   &activityLogRepository{base},
		Categories: &categoryRepository{base},
		Users:      &userRepository{base},
	}
}

// WithinTransaction runs fn with exclusive write access against a working copy
// and publishes the copy only if fn succeeds.
func (s *Store) WithinTransaction(ctx context.Context, fn repository.TxFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.data.clone()
	s.mu.RUnlock()

	err := fn(ctx, s.repos(working))
	if err == nil && s.FailNextTx != nil {
		err, s.FailNextTx = s.FailNextTx, nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = working
	s.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// table reads and writes the committed state, or the transaction's working
// copy when tx is set.
type table struct {
	store *Store
	tx    *state
	txMu  sync.Mutex
}

func (t *table) read(fn func(d *state)) {
	if t.tx != nil {
		t.txMu.Lock()
		defer t.txMu.Unlock()
		fn(t.tx)
		return
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	fn(t.store.data)
}

func (t *table) write(fn func(d *state) error) error {
	if t.tx != nil {
		t.txMu.Lock()
		defer t.txMu.Unlock()
		return fn(t.tx)
	}
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return fn(t.store.data)
}
