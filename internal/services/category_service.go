package services

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/log"
)

// CategoryService manages user categories alongside the predefined set.
type CategoryService struct {
	repo Repository
}

func NewCategoryService(repo Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

// Create adds a user-owned category. Predefined categories come from
// migrations, never from here.
func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.UserID == 0 {
		return core.Category{}, fmt.Errorf("category must belong to a user")
	}

	created, err := s.repo.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created",
		log.FieldCategoryID, created.ID,
		log.FieldUserID, created.UserID,
		"name", created.Name,
		"kind", string(created.Kind))
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

// Delete removes a user category. Predefined categories and categories
// with recorded transactions stay.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if category.Predefined() {
		return fmt.Errorf("category %q: %w", category.Name, core.ErrCategoryPredefined)
	}

	count, err := s.repo.CountCategoryTransactions(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("category %q has %d transactions: %w", category.Name, count, core.ErrCategoryInUse)
	}

	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Category deleted", log.FieldCategoryID, id)
	return nil
}
