package dto

import "time"

// CategoryRequest is used for create and partial update.
type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryResponse is the public shape of a category.
type CategoryResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Color        string    `json:"color"`
	IsActive     bool      `json:"is_active"`
	TicketsCount int       `json:"tickets_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
