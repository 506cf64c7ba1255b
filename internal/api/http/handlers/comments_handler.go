package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
)

// CommentsHandler serves the comment thread endpoints.
type CommentsHandler struct {
	comments *service.CommentService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(comments *service.CommentService) *CommentsHandler {
	return &CommentsHandler{comments: comments}
}

// List GET /api/tickets/:id/comments.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("", commentResponses(comments)))
}

// Create POST /api/tickets/:id/comments.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
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

	comment, err := h.comments.Create(c.UserContext(), actor, c.Params("id"), service.CommentCreateInput{
		Content:    req.Content,
		IsInternal: req.IsInternal,
		Uploads:    uploads,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK("Comment added successfully", commentResponse(comment)))
}

// Update PUT /api/comments/:id.
func (h *CommentsHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Update(c.UserContext(), actor, c.Params("id"), service.CommentUpdateInput{
		Content:    req.Content,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Comment updated successfully", commentResponse(comment)))
}

// Delete DELETE /api/comments/:id.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.OK("Comment deleted successfully", nil))
}
