package service

import (
	"context"
	"errors"
	"html"
	"io"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Upload is a file received with a ticket or comment.
type Upload struct {
	Name    string
	Content io.Reader
}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// OptionalString distinguishes "absent" from "explicitly null" in partial updates.
type OptionalString struct {
	Set   bool
	Value *string
}

// mapLookup turns a missing row into NotFound for resource and anything else into a storage error.
func mapLookup(err error, resource, id string) error {
	if apperrors.IsMissingRow(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

// markupPolicy drops every tag, and the bodies of script-like elements, leaving
// only what a reader would see.
var markupPolicy = bluemonday.StrictPolicy()

// hasVisibleText reports whether s still carries text once markup is removed.
// Descriptions and comments are stored as typed; this only decides whether a
// required field is effectively empty.
func hasVisibleText(s string) bool {
	return strings.TrimSpace(html.UnescapeString(markupPolicy.Sanitize(s))) != ""
}

// attachmentKeeper stores uploads and removes files on a best-effort basis.
type attachmentKeeper struct {
	store   storage.Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

func (k attachmentKeeper) storeAll(ctx context.Context, uploads []Upload) ([]domain.Attachment, error) {
	stored := make([]domain.Attachment, 0, len(uploads))
	for _, u := range uploads {
		if k.store == nil {
			return nil, apperrors.NewValidationError("attachments are not supported", nil)
		}
		att, err := k.store.Put(ctx, u.Content, u.Name)
		if err != nil {
			k.removeAll(ctx, stored)
			if apperrors.IsCode(err, apperrors.CodeValidationFailed) {
				return nil, err
			}
			return nil, apperrors.NewInternalError(err)
		}
		stored = append(stored, att)
	}
	return stored, nil
}

// removeAll never fails the caller; failures are logged and counted.
func (k attachmentKeeper) removeAll(ctx context.Context, attachments []domain.Attachment) {
	if k.store == nil {
		return
	}
	// the request context may already be cancelled once the response is decided
	ctx = context.WithoutCancel(ctx)
	for _, att := range attachments {
		if err := k.store.Delete(ctx, att.Path); err != nil {
			k.metrics.RecordStorageFailure()
			k.logger.Warn("attachment removal failed", zap.String("path", att.Path), zap.Error(err))
		}
	}
}

// publisher emits post-commit events; handler failures are logged only.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, entries ...*domain.ActivityLog) {
	if p.dispatcher == nil {
		return
	}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if err := p.dispatcher.Publish(ctx, events.FromActivity(entry)); err != nil {
			p.logger.Warn("event handler failed",
				zap.String("ticket_id", entry.TicketID),
				zap.String("action", string(entry.Action)),
				zap.Error(err))
		}
	}
}

func nopLoggerIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func clockOrSystem(now Clock) Clock {
	if now == nil {
		return systemClock
	}
	return now
}

// mapTxError keeps domain and constraint errors and reports anything else as a storage failure.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	mapped := apperrors.ToDomainError(err)
	if mapped.Code == apperrors.CodeInternal {
		return apperrors.NewStorageUnavailable(err)
	}
	return mapped
}

// fieldErrors collects per-field validation failures.
type fieldErrors map[string]any

func (f fieldErrors) add(field, reason string) {
	if _, exists := f[field]; !exists {
		f[field] = reason
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError("validation failed", f)
}
