package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestPublishRunsEveryHandlerAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	boom := errors.New("boom")

	d.Subscribe(EventType(domain.ActionCreated), func(context.Context, Event) error {
		calls = append(calls, "first")
		return boom
	})
	d.Subscribe(EventType(domain.ActionCreated), func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventType(domain.ActionDeleted), func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventType(domain.ActionCreated)})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	seen := map[EventType]int{}
	SubscribeAll(d, TicketEventTypes, func(_ context.Context, e Event) error {
		seen[e.Type]++
		return nil
	})

	for _, et := range TicketEventTypes {
		require.NoError(t, d.Publish(context.Background(), Event{Type: et}))
	}
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventType(domain.ActionCommented)}))

	assert.Len(t, seen, len(TicketEventTypes))
}

func TestFromActivity(t *testing.T) {
	at := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	e := FromActivity(&domain.ActivityLog{ID: "a1", TicketID: "t1", UserID: "u1", Action: domain.ActionArchived, Description: "Ticket archived", CreatedAt: at})
	assert.Equal(t, EventType("archived"), e.Type)
	assert.Equal(t, "t1", e.TicketID)
	assert.Equal(t, at, e.Timestamp)
	assert.Equal(t, ActivityPayload{ActivityID: "a1", Description: "Ticket archived"}, e.Payload)
}
