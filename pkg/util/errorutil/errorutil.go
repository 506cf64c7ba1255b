package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes rendered in the response envelope.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeConflict           = "CONFLICT"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	// malformed literal for a typed column, e.g. "abc" for a UUID id
	pgInvalidTextRepresentation = "22P02"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusUnprocessableEntity, details)
}

// NewFieldError reports a single invalid field.
func NewFieldError(field, reason string) error {
	return NewValidationError("validation failed", map[string]any{field: reason})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewForbidden is returned when the actor fails ticket or comment scoping.
func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStorageUnavailable hides the underlying store failure behind a generic message.
func NewStorageUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStorageUnavailable,
		Message:    "storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if IsMissingRow(err) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return NewConflict("resource already exists", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
		case pgForeignKeyViolation:
			return NewConflict("resource is referenced by other records", map[string]any{"constraint": pgErr.ConstraintName}).(*DomainError)
		}
		return NewStorageUnavailable(err).(*DomainError)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return NewStorageUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// IsMissingRow reports whether err means the looked-up row cannot exist: no rows, or an
// identifier the column type rejects.
func IsMissingRow(err error) bool {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

// MapError is ToDomainError returning the error interface.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
