package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const readinessTimeout = 2 * time.Second

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	version     string
	store       repository.Store
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, store repository.Store, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, store: store, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(dto.OK("alive", fiber.Map{
		"service": h.serviceName,
		"version": h.version,
	}))
}

// Ready reports service readiness by checking dependencies. Redis is optional.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	depStatus := map[string]any{}
	ready := true

	if err := h.store.Ping(ctx); err != nil {
		depStatus["store"] = err.Error()
		ready = false
	} else {
		depStatus["store"] = "ok"
	}

	switch {
	case !h.redis.Enabled():
		depStatus["redis"] = "disabled"
	case h.redis.Ping(ctx) != nil:
		depStatus["redis"] = "unreachable"
		ready = false
	default:
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(dto.OK("ready", depStatus))
	}
	return c.Status(fiber.StatusServiceUnavailable).
		JSON(dto.Failure("DEPENDENCY_UNAVAILABLE", "one or more dependencies unavailable", depStatus))
}
