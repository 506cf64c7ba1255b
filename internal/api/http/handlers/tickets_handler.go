package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

// TicketsHandler serves the ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	stats   *service.StatsService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, stats *service.StatsService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, stats: stats}
}

// List GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	query, err := parseTicketListQuery(c)
	if err != nil {
		return err
	}
	page, err := h.tickets.List(c.UserContext(), actor, query)
	if err != nil {
		return err
	}
	return c.JSON(dto.Page(ticketResponses(page.Items), dto.Pagination{
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
		Total:       page.Total,
		LastPage:    page.TotalPages,
	}))
}

// Stats GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	stats, err := h.stats.ForActor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("", statsResponse(stats)))
}

// Create POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	form, err := multipartForm(c)
	if err != nil {
		return err
	}
	uploads, closeUploads, err := openUploads(form)
	if err != nil {
		return err
	}
	defer closeUploads()

	ticket, err := h.tickets.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
		Uploads:     uploads,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK("Ticket created successfully", ticketResponse(ticket)))
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("", ticketDetailResponse(detail)))
}

// Update PUT /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	input, closeUploads, err := parseTicketUpdate(c)
	if err != nil {
		return err
	}
	defer closeUploads()

	ticket, err := h.tickets.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Ticket updated successfully", ticketResponse(ticket)))
}

// Delete DELETE /api/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.tickets.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.OK("Ticket deleted successfully", nil))
}

// Assign POST /api/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.Assign(c.UserContext(), actor, c.Params("id"), emptyAsNil(req.AssignedTo))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Ticket assignment updated successfully", ticketResponse(ticket)))
}

// Archive POST /api/tickets/:id/archive.
func (h *TicketsHandler) Archive(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Archive(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Ticket archived successfully", ticketResponse(ticket)))
}

// Unarchive POST /api/tickets/:id/unarchive.
func (h *TicketsHandler) Unarchive(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Unarchive(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Ticket unarchived successfully", ticketResponse(ticket)))
}

// Activity GET /api/tickets/:id/activity.
func (h *TicketsHandler) Activity(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ActivityFor(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("", activityResponses(entries)))
}

// parseTicketUpdate reads either a JSON body or a multipart form with files.
func parseTicketUpdate(c *fiber.Ctx) (service.TicketUpdateInput, func(), error) {
	noop := func() {}
	form, err := multipartForm(c)
	if err != nil {
		return service.TicketUpdateInput{}, noop, err
	}
	if form == nil {
		var req dto.UpdateTicketRequest
		if err := parseBody(c, &req); err != nil {
			return service.TicketUpdateInput{}, noop, err
		}
		return service.TicketUpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			Status:      req.Status,
			CategoryID:  req.CategoryID,
			AssignedTo:  service.OptionalString{Set: req.AssignedTo.Set, Value: emptyAsNil(req.AssignedTo.Value)},
		}, noop, nil
	}

	input := service.TicketUpdateInput{
		Title:       optionalFormString(form, "title"),
		Description: optionalFormString(form, "description"),
		CategoryID:  optionalFormString(form, "category_id"),
	}
	if v, ok := formValue(form, "priority"); ok {
		priority := domain.TicketPriority(v)
		input.Priority = &priority
	}
	if v, ok := formValue(form, "status"); ok {
		status := domain.TicketStatus(v)
		input.Status = &status
	}
	if v, ok := formValue(form, "assigned_to"); ok {
		input.AssignedTo = service.OptionalString{Set: true, Value: emptyAsNil(&v)}
	}
	uploads, closeUploads, err := openUploads(form)
	if err != nil {
		return service.TicketUpdateInput{}, noop, err
	}
	input.Uploads = uploads
	return input, closeUploads, nil
}

func emptyAsNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}

