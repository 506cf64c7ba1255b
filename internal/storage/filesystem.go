package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// FilesystemStore keeps attachments below basePath in a YYYY/MM/DD layout.
type FilesystemStore struct {
	basePath string
	maxBytes int64
	now      func() time.Time
}

// NewFilesystemStore creates the base directory when missing.
func NewFilesystemStore(basePath string, maxBytes int64) (*FilesystemStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &FilesystemStore{basePath: basePath, maxBytes: maxBytes, now: time.Now}, nil
}

func (f *FilesystemStore) Put(ctx context.Context, content io.Reader, originalName string) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "attachment"
	}

	reader := content
	if f.maxBytes > 0 {
		reader = io.LimitReader(content, f.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("read upload: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return domain.Attachment{}, apperrors.NewValidationError("attachment too large", map[string]any{
			"attachments": fmt.Sprintf("%s exceeds %d bytes", name, f.maxBytes),
		})
	}

	now := f.now().UTC()
	rel := filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02"), uuid.NewString()+strings.ToLower(filepath.Ext(name)))
	full := filepath.Join(f.basePath, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return domain.Attachment{}, fmt.Errorf("create attachment dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return domain.Attachment{}, fmt.Errorf("write attachment: %w", err)
	}

	return domain.Attachment{
		Name:       name,
		Path:       filepath.ToSlash(rel),
		Size:       int64(len(data)),
		MimeType:   mimetype.Detect(data).String(),
		UploadedAt: now,
	}, nil
}

func (f *FilesystemStore) Delete(_ context.Context, path string) error {
	full, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	// drop the day directory once it is empty; a non-empty dir fails harmlessly
	_ = os.Remove(filepath.Dir(full))
	return nil
}

func (f *FilesystemStore) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid attachment path %q", path)
	}
	return filepath.Join(f.basePath, clean), nil
}
