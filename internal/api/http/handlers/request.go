package handlers

import (
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const uploadField = "attachments"

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	return auth.ActorFromContext(c)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// multipartForm returns nil for non multipart requests.
func multipartForm(c *fiber.Ctx) (*multipart.Form, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart payload", nil)
	}
	return form, nil
}

// openUploads opens every file sent under the attachments field. The returned
// closer must run once the service call is done.
func openUploads(form *multipart.Form) ([]service.Upload, func(), error) {
	if form == nil {
		return nil, func() {}, nil
	}
	headers := append(form.File[uploadField], form.File[uploadField+"[]"]...)
	uploads := make([]service.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.NewValidationError("unreadable attachment", map[string]any{"attachments": header.Filename})
		}
		files = append(files, f)
		uploads = append(uploads, service.Upload{Name: header.Filename, Content: f})
	}
	return uploads, closeAll, nil
}

// formValue reports a multipart field and whether it was sent at all.
func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func optionalFormString(form *multipart.Form, key string) *string {
	if v, ok := formValue(form, key); ok {
		return &v
	}
	return nil
}

func parseTicketListQuery(c *fiber.Ctx) (repository.TicketListQuery, error) {
	q := repository.TicketListQuery{
		Filter: repository.TicketFilter{
			Search:   c.Query("search"),
			Archived: repository.ParseArchivedVisibility(c.Query("archived")),
		},
		Sort:    repository.ParseTicketSort(c.Query("sort")),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", repository.DefaultPerPage),
		Include: repository.IncludeAll,
	}

	problems := map[string]any{}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status := domain.TicketStatus(v)
		if status.Valid() {
			q.Filter.Status = &status
		} else {
			problems["status"] = "unknown status"
		}
	}
	if v := strings.TrimSpace(c.Query("priority")); v != "" {
		priority := domain.TicketPriority(v)
		if priority.Valid() {
			q.Filter.Priority = &priority
		} else {
			problems["priority"] = "unknown priority"
		}
	}
	if v := strings.TrimSpace(c.Query("category_id")); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			q.Filter.CategoryID = &v
		} else {
			problems["category_id"] = "must be a valid id"
		}
	}
	if v := strings.TrimSpace(c.Query("assigned_to")); v != "" {
		if _, err := uuid.Parse(v); err == nil {
			q.Filter.AssignedTo = &v
		} else {
			problems["assigned_to"] = "must be a valid id"
		}
	}
	if len(problems) > 0 {
		return q, apperrors.NewValidationError("invalid filter", problems)
	}
	return q, nil
}
