package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// StatsService aggregates ticket counts, caching them until the next ticket mutation.
type StatsService struct {
	tickets repository.TicketRepository
	cache   cache.StatsCache
	logger  *zap.Logger
	now     Clock
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	Store  repository.Store
	Cache  cache.StatsCache
	Logger *zap.Logger
	Clock  Clock
}

// NewStatsService builds the service; a nil cache disables caching.
func NewStatsService(deps StatsDependencies) *StatsService {
	statsCache := deps.Cache
	if statsCache == nil {
		statsCache = cache.NoopStatsCache{}
	}
	return &StatsService{
		tickets: deps.Store.Repos().Tickets,
		cache:   statsCache,
		logger:  nopLoggerIfNil(deps.Logger),
		now:     clockOrSystem(deps.Clock),
	}
}

// ForActor returns global stats for admins and creator-or-assignee stats otherwise.
func (s *StatsService) ForActor(ctx context.Context, actor domain.Actor) (domain.TicketStats, error) {
	if actor.IsAdmin() {
		return s.Stats(ctx, nil)
	}
	id := actor.ID
	return s.Stats(ctx, &id)
}

// Stats counts non-archived tickets, scoped to userID when given.
func (s *StatsService) Stats(ctx context.Context, userID *string) (domain.TicketStats, error) {
	scope := cache.GlobalScope
	if userID != nil {
		scope = "user:" + *userID
	}
	cached, version, ok := s.cache.Get(ctx, scope)
	if ok {
		return cached, nil
	}
	stats, err := s.tickets.Stats(ctx, repository.StatsQuery{UserID: userID, Now: s.now()})
	if err != nil {
		return domain.TicketStats{}, mapTxError(err)
	}
	s.cache.Set(ctx, scope, version, stats)
	return stats, nil
}

// RegisterHandlers drops cached stats whenever a ticket event is published.
func (s *StatsService) RegisterHandlers(dispatcher events.Dispatcher) {
	events.SubscribeAll(dispatcher, events.TicketEventTypes, s.invalidate)
}

func (s *StatsService) invalidate(ctx context.Context, event events.Event) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("stats cache invalidation failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
