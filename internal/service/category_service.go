package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CategoryService manages ticket categories.
type CategoryService struct {
	store repository.Store
	now   Clock
}

// CategoryInput describes a category create or partial update.
type CategoryInput struct {
	Name        *string
	Description *string
	Color       *string
	IsActive    *bool
}

// NewCategoryService builds the service.
func NewCategoryService(store repository.Store, now Clock) *CategoryService {
	return &CategoryService{store: store, now: clockOrSystem(now)}
}

// List returns categories ordered by name; inactive ones only when includeInactive is set.
func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	categories, err := s.store.Repos().Categories.List(ctx, !includeInactive)
	if err != nil {
		return nil, mapTxError(err)
	}
	return categories, nil
}

// Get loads one category.
func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.store.Repos().Categories.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookup(err, "category", id)
	}
	return category, nil
}

// Create adds a category; the slug is derived from the name.
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	now := s.now()
	category := &domain.Category{
		ID:        uuid.NewString(),
		Color:     domain.DefaultCategoryColor,
		IsActive:  true,
		CreatedAt: now,
	}
	if input.Name == nil {
		problems := fieldErrors{}
		problems.add("name", "is required")
		return nil, problems.err()
	}
	if err := applyCategoryInput(category, input); err != nil {
		return nil, err
	}
	if err := s.store.Repos().Categories.Create(ctx, category); err != nil {
		return nil, mapTxError(err)
	}
	return category, nil
}

// Update changes the given fields, re-deriving the slug when the name changes.
func (s *CategoryService) Update(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	repo := s.store.Repos().Categories
	category, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapLookup(err, "category", id)
	}
	if err := applyCategoryInput(category, input); err != nil {
		return nil, err
	}
	category.UpdatedAt = s.now()
	if err := repo.Update(ctx, category); err != nil {
		return nil, mapTxError(err)
	}
	return s.Get(ctx, id)
}

// Delete removes a category that no ticket references.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	repo := s.store.Repos().Categories
	if _, err := repo.GetByID(ctx, id); err != nil {
		return mapLookup(err, "category", id)
	}
	count, err := repo.CountTickets(ctx, id)
	if err != nil {
		return mapTxError(err)
	}
	if count > 0 {
		return apperrors.NewConflict("cannot delete category with existing tickets", map[string]any{"tickets_count": count})
	}
	// the foreign key still guards a ticket created after the count
	if err := repo.Delete(ctx, id); err != nil {
		return mapTxError(err)
	}
	return nil
}

func applyCategoryInput(category *domain.Category, input CategoryInput) error {
	problems := fieldErrors{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		switch {
		case name == "":
			problems.add("name", "is required")
		case len(name) > maxTitleLength:
			problems.add("name", "must not exceed 255 characters")
		case domain.Slugify(name) == "":
			problems.add("name", "must contain letters or digits")
		}
		category.Name = name
		category.Slug = domain.Slugify(name)
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if input.Color != nil {
		color := strings.TrimSpace(*input.Color)
		if !domain.ValidColor(color) {
			problems.add("color", "must be a #RRGGBB hex colour")
		}
		category.Color = color
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	return problems.err()
}
