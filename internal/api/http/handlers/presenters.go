package handlers

import (
	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     t.Priority,
		Status:       t.Status,
		CategoryID:   t.CategoryID,
		UserID:       t.UserID,
		AssignedTo:   t.AssignedTo,
		Attachments:  attachmentResponses(t.Attachments),
		Archived:     t.Archived,
		ResolvedAt:   t.ResolvedAt,
		ClosedAt:     t.ClosedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		User:         userRef(t.Creator),
		AssignedUser: userRef(t.Assignee),
	}
	if t.Category != nil {
		resp.Category = &dto.CategoryRef{ID: t.Category.ID, Name: t.Category.Name, Slug: t.Category.Slug, Color: t.Category.Color}
	}
	return resp
}

func ticketResponses(tickets []domain.Ticket) []dto.TicketResponse {
	out := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ticketResponse(&tickets[i]))
	}
	return out
}

func ticketDetailResponse(detail *service.TicketDetail) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketResponse: ticketResponse(detail.Ticket),
		Comments:       commentResponses(detail.Comments),
		ActivityLogs:   activityResponses(detail.Activity),
	}
}

func attachmentResponses(list []domain.Attachment) []dto.AttachmentResponse {
	out := make([]dto.AttachmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, dto.AttachmentResponse{
			Name:       a.Name,
			Path:       a.Path,
			Size:       a.Size,
			MimeType:   a.MimeType,
			UploadedAt: a.UploadedAt,
		})
	}
	return out
}

func userRef(u *domain.UserSummary) *dto.UserRef {
	if u == nil {
		return nil
	}
	return &dto.UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func commentResponse(c *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:          c.ID,
		TicketID:    c.TicketID,
		UserID:      c.UserID,
		Content:     c.Content,
		IsInternal:  c.IsInternal,
		Attachments: attachmentResponses(c.Attachments),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		User:        userRef(c.Author),
	}
}

func commentResponses(comments []domain.Comment) []dto.CommentResponse {
	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, commentResponse(&comments[i]))
	}
	return out
}

func activityResponses(entries []domain.ActivityLog) []dto.ActivityResponse {
	out := make([]dto.ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.ActivityResponse{
			ID:          e.ID,
			TicketID:    e.TicketID,
			UserID:      e.UserID,
			Action:      e.Action,
			OldValues:   e.OldValues,
			NewValues:   e.NewValues,
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
			User:        userRef(e.User),
		})
	}
	return out
}

func statsResponse(s domain.TicketStats) dto.StatsResponse {
	return dto.StatsResponse{
		Total:        s.Total,
		Open:         s.Open,
		InProgress:   s.InProgress,
		Resolved:     s.Resolved,
		Closed:       s.Closed,
		HighPriority: s.HighPriority,
		ThisWeek:     s.ThisWeek,
		LastWeek:     s.LastWeek,
	}
}

func categoryResponse(c *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		Slug:         c.Slug,
		Description:  c.Description,
		Color:        c.Color,
		IsActive:     c.IsActive,
		TicketsCount: c.TicketsCount,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
