package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

// AdminHandler serves the administrator endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Dashboard GET /api/admin/dashboard.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	dashboard, err := h.admin.Dashboard(c.UserContext(), actor)
	if err != nil {
		return err
	}
	roles := make([]dto.RoleCountResponse, 0, len(dashboard.UsersByRole))
	for _, rc := range dashboard.UsersByRole {
		roles = append(roles, dto.RoleCountResponse{Role: rc.Role, Count: rc.Count})
	}
	return c.JSON(dto.OK("", dto.DashboardResponse{
		Stats:         statsResponse(dashboard.Stats),
		RecentTickets: ticketResponses(dashboard.RecentTickets),
		UsersByRole:   roles,
	}))
}

// Users GET /api/admin/users.
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	page, err := h.admin.Users(c.UserContext(), actor, c.QueryInt("page", 1), c.QueryInt("per_page", repository.DefaultPerPage))
	if err != nil {
		return err
	}
	users := make([]dto.UserResponse, 0, len(page.Items))
	for i := range page.Items {
		users = append(users, userResponse(&page.Items[i]))
	}
	return c.JSON(dto.Page(users, dto.Pagination{
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
		Total:       page.Total,
		LastPage:    page.TotalPages,
	}))
}

// UpdateRole PUT /api/admin/users/:id/role.
func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.admin.UpdateRole(c.UserContext(), actor, c.Params("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("User role updated successfully", userResponse(user)))
}
