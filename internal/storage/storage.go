// Package storage persists ticket and comment attachments.
package storage

import (
	"context"
	"io"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Store saves uploaded files and removes them again.
type Store interface {
	// Put stores content under a generated path and returns its metadata.
	Put(ctx context.Context, content io.Reader, originalName string) (domain.Attachment, error)
	// Delete removes the file at path. Missing files are not an error.
	Delete(ctx context.Context, path string) error
}
