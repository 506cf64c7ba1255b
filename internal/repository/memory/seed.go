package memory

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// DefaultCategories mirrors the rows inserted by migrations/002_seed_categories.sql.
var DefaultCategories = []domain.Category{
	{ID: "6f1c2a10-0000-4000-8000-000000000001", Name: "Bug Report", Description: "Report software bugs and issues", Color: "#EF4444"},
	{ID: "6f1c2a10-0000-4000-8000-000000000002", Name: "Feature Request", Description: "Request new features or enhancements", Color: "#3B82F6"},
	{ID: "6f1c2a10-0000-4000-8000-000000000003", Name: "Technical Support", Description: "Get help with technical problems", Color: "#10B981"},
	{ID: "6f1c2a10-0000-4000-8000-000000000004", Name: "Account Issues", Description: "Problems with user accounts and access", Color: "#F59E0B"},
	{ID: "6f1c2a10-0000-4000-8000-000000000005", Name: "Performance", Description: "Performance and speed related issues", Color: "#8B5CF6"},
	{ID: "6f1c2a10-0000-4000-8000-000000000006", Name: "Documentation", Description: "Documentation requests and improvements", Color: "#06B6D4"},
	{ID: "6f1c2a10-0000-4000-8000-000000000007", Name: "Security", Description: "Security concerns and vulnerabilities", Color: "#DC2626"},
	{ID: "6f1c2a10-0000-4000-8000-000000000008", Name: "Other", Description: "General inquiries and other topics", Color: "#6B7280"},
}

// SeedCategories inserts the default categories, skipping any whose id is already present.
func (s *Store) SeedCategories(ctx context.Context, now time.Time) error {
	repo := s.Repos().Categories
	for _, def := range DefaultCategories {
		if _, err := repo.GetByID(ctx, def.ID); err == nil {
			continue
		}
		category := def
		category.Slug = domain.Slugify(def.Name)
		category.IsActive = true
		category.CreatedAt = now
		if err := repo.Create(ctx, &category); err != nil {
			return err
		}
	}
	return nil
}
