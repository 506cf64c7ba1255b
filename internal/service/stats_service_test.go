package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

// slowStatsStore runs afterCount once, between counting and returning, to
// stand in for a write that commits while stats are being computed.
type slowStatsStore struct {
	*memory.Store
	afterCount func()
}

type slowStatsTickets struct {
	repository.TicketRepository
	afterCount func()
}

func (r *slowStatsTickets) Stats(ctx context.Context, q repository.StatsQuery) (domain.TicketStats, error) {
	stats, err := r.TicketRepository.Stats(ctx, q)
	if r.afterCount != nil {
		hook := r.afterCount
		r.afterCount = nil
		hook()
	}
	return stats, err
}

func (s slowStatsStore) Repos() repository.Repositories {
	repos := s.Store.Repos()
	repos.Tickets = &slowStatsTickets{TicketRepository: repos.Tickets, afterCount: s.afterCount}
	return repos
}

func TestStatsComputedBeforeInvalidationAreNotCached(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, f.owner, nil)

	stats := NewStatsService(StatsDependencies{
		Store: slowStatsStore{Store: f.store, afterCount: func() { f.createTicket(t, f.owner, nil) }},
		Cache: f.cache,
		Clock: f.clock.Now,
	})

	stale, err := stats.Stats(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.Total)

	_, _, cached := f.cache.Get(f.ctx, "all")
	assert.False(t, cached)

	fresh, err := stats.Stats(f.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Total)

	_, _, cached = f.cache.Get(f.ctx, "all")
	assert.True(t, cached)
}
