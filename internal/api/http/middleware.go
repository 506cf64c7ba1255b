package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/observability"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps the error middleware so it sees the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				err = writeError(c, logger, metrics, err)
			}
		}()
		return c.Next()
	}
}

// ErrorHandler renders errors that escape the middleware chain, such as unknown routes.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return writeError(c, logger, metrics, err)
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) error {
	domainErr := toDomainError(err)
	metrics.RecordError(routeLabel(c), c.Method(), domainErr.Code)
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Path()), zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(dto.Failure(domainErr.Code, domainErr.Message, domainErr.Details))
}

// toDomainError also understands fiber's own errors (404 route, 413 body limit).
func toDomainError(err error) *apperrors.DomainError {
	if fe, ok := err.(*fiber.Error); ok {
		switch fe.Code {
		case fiber.StatusNotFound:
			return apperrors.ToDomainError(apperrors.NewNotFound("route", nil))
		case fiber.StatusRequestEntityTooLarge:
			return apperrors.NewDomainError(apperrors.CodeValidationFailed, "payload too large", fe.Code, nil)
		case fiber.StatusMethodNotAllowed:
			return apperrors.NewDomainError(apperrors.CodeNotFound, fe.Message, fe.Code, nil)
		}
		if fe.Code < fiber.StatusInternalServerError {
			return apperrors.NewDomainError(apperrors.CodeValidationFailed, fe.Message, fe.Code, nil)
		}
	}
	return apperrors.ToDomainError(err)
}

func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}
