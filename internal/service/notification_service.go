package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

// NotificationService writes an audit line for every committed ticket or comment event.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	return &NotificationService{logger: nopLoggerIfNil(logger).Named("audit")}
}

// RegisterHandlers subscribes to ticket and comment events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	events.SubscribeAll(dispatcher, events.TicketEventTypes, n.handleTicketEvent)
	events.SubscribeAll(dispatcher, events.CommentEventTypes, n.handleCommentEvent)
}

func (n *NotificationService) handleTicketEvent(_ context.Context, event events.Event) error {
	n.logger.Info("ticket event", n.fields(event)...)
	return nil
}

func (n *NotificationService) handleCommentEvent(_ context.Context, event events.Event) error {
	n.logger.Info("comment event", n.fields(event)...)
	return nil
}

func (n *NotificationService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
		zap.Time("at", event.Timestamp),
	}
	if payload, ok := event.Payload.(events.ActivityPayload); ok {
		fields = append(fields, zap.String("description", payload.Description))
	}
	return fields
}
