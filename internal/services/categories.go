package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/intraylabs/intray/internal/ai"
	"github.com/intraylabs/intray/internal/model"
	"github.com/intraylabs/intray/internal/store"
)

// CategoryService manages the per-user category vocabulary.
type CategoryService struct {
	store store.Store
}

func NewCategoryService(s store.Store) *CategoryService {
	return &CategoryService{store: s}
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID, kind, name string) (*model.Category, error) {
	kind = strings.ToUpper(strings.TrimSpace(kind))
	switch kind {
	case string(ai.KindCalendar), string(ai.KindMemo):
	default:
		return nil, fmt.Errorf("%w: kind must be %s or %s", model.ErrValidation, ai.KindCalendar, ai.KindMemo)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	return s.store.Categories().Create(ctx, &model.Category{
		UserID: userID,
		Kind:   kind,
		Name:   name,
	})
}

func (s *CategoryService) ListCategories(ctx context.Context, userID, kind string) ([]*model.Category, error) {
	return s.store.Categories().List(ctx, userID, strings.ToUpper(strings.TrimSpace(kind)))
}

func (s *CategoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	return s.store.Categories().Delete(ctx, userID, categoryID)
}
