package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
)

// Access is the authentication an operation requires.
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

// Operation binds one (resource, verb) pair to its route and handler.
type Operation struct {
	Resource string
	Verb     string
	Method   string
	Path     string
	Access   Access
	Handler  fiber.Handler
}

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Categories     *handlers.CategoriesHandler
	Admin          *handlers.AdminHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// Operations lists every exposed operation. Static paths precede parameterised
// siblings so /api/tickets/stats is not captured by /api/tickets/:id.
func Operations(cfg RouteConfig) []Operation {
	return []Operation{
		{"health", "live", fiber.MethodGet, "/health/live", Public, cfg.Health.Live},
		{"health", "ready", fiber.MethodGet, "/health/ready", Public, cfg.Health.Ready},
		{"metrics", "scrape", fiber.MethodGet, "/metrics", Public, adaptor.HTTPHandler(cfg.Metrics.Handler())},

		{"auth", "register", fiber.MethodPost, "/auth/register", Public, cfg.Users.Register},
		{"auth", "login", fiber.MethodPost, "/auth/login", Public, cfg.Users.Login},
		{"auth", "me", fiber.MethodGet, "/auth/me", Authenticated, cfg.Users.Me},

		{"tickets", "list", fiber.MethodGet, "/api/tickets", Authenticated, cfg.Tickets.List},
		{"tickets", "create", fiber.MethodPost, "/api/tickets", Authenticated, cfg.Tickets.Create},
		{"tickets", "stats", fiber.MethodGet, "/api/tickets/stats", Authenticated, cfg.Tickets.Stats},
		{"tickets", "get", fiber.MethodGet, "/api/tickets/:id", Authenticated, cfg.Tickets.Get},
		{"tickets", "update", fiber.MethodPut, "/api/tickets/:id", Authenticated, cfg.Tickets.Update},
		{"tickets", "delete", fiber.MethodDelete, "/api/tickets/:id", Authenticated, cfg.Tickets.Delete},
		{"tickets", "assign", fiber.MethodPost, "/api/tickets/:id/assign", AdminOnly, cfg.Tickets.Assign},
		{"tickets", "archive", fiber.MethodPost, "/api/tickets/:id/archive", Authenticated, cfg.Tickets.Archive},
		{"tickets", "unarchive", fiber.MethodPost, "/api/tickets/:id/unarchive", Authenticated, cfg.Tickets.Unarchive},
		{"tickets", "activity", fiber.MethodGet, "/api/tickets/:id/activity", Authenticated, cfg.Tickets.Activity},

		{"comments", "list", fiber.MethodGet, "/api/tickets/:id/comments", Authenticated, cfg.Comments.List},
		{"comments", "create", fiber.MethodPost, "/api/tickets/:id/comments", Authenticated, cfg.Comments.Create},
		{"comments", "update", fiber.MethodPut, "/api/comments/:id", Authenticated, cfg.Comments.Update},
		{"comments", "delete", fiber.MethodDelete, "/api/comments/:id", Authenticated, cfg.Comments.Delete},

		{"categories", "list", fiber.MethodGet, "/api/categories", Authenticated, cfg.Categories.List},
		{"categories", "create", fiber.MethodPost, "/api/categories", AdminOnly, cfg.Categories.Create},
		{"categories", "get", fiber.MethodGet, "/api/categories/:id", Authenticated, cfg.Categories.Get},
		{"categories", "update", fiber.MethodPut, "/api/categories/:id", AdminOnly, cfg.Categories.Update},
		{"categories", "delete", fiber.MethodDelete, "/api/categories/:id", AdminOnly, cfg.Categories.Delete},

		{"admin", "dashboard", fiber.MethodGet, "/api/admin/dashboard", AdminOnly, cfg.Admin.Dashboard},
		{"admin", "users", fiber.MethodGet, "/api/admin/users", AdminOnly, cfg.Admin.Users},
		{"admin", "role", fiber.MethodPut, "/api/admin/users/:id/role", AdminOnly, cfg.Admin.UpdateRole},
	}
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	requireAdmin := auth.RequireRole(domain.RoleAdmin)
	for _, op := range Operations(cfg) {
		chain := make([]fiber.Handler, 0, 3)
		switch op.Access {
		case Authenticated:
			chain = append(chain, cfg.AuthMiddleware.Handle)
		case AdminOnly:
			chain = append(chain, cfg.AuthMiddleware.Handle, requireAdmin)
		}
		chain = append(chain, op.Handler)
		app.Add(op.Method, op.Path, chain...).Name(op.Resource + "." + op.Verb)
	}
}
