package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CategoriesHandler serves category endpoints.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// List GET /api/categories. Admins may pass ?all=true to include inactive ones.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	includeInactive := actor.IsAdmin() && c.QueryBool("all", false)
	categories, err := h.categories.List(c.UserContext(), includeInactive)
	if err != nil {
		return err
	}
	out := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, categoryResponse(&categories[i]))
	}
	return c.JSON(dto.OK("", out))
}

// Get GET /api/categories/:id.
func (h *CategoriesHandler) Get(c *fiber.Ctx) error {
	category, err := h.categories.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("", categoryResponse(category)))
}

// Create POST /api/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Create(c.UserContext(), categoryInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK("Category created successfully", categoryResponse(category)))
}

// Update PUT /api/categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	var req dto.CategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.categories.Update(c.UserContext(), c.Params("id"), categoryInput(req))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Category updated successfully", categoryResponse(category)))
}

// Delete DELETE /api/categories/:id.
func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	if err := h.categories.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.OK("Category deleted successfully", nil))
}

func categoryInput(req dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		IsActive:    req.IsActive,
	}
}

