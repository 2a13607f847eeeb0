package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
)

const (
	defaultCategoryIcon  = "circle"
	defaultCategoryColor = "#808080"
)

// DefaultCategories are the system categories visible to every user.
var DefaultCategories = []types.Category{
	{Name: "Salario", Type: types.CategoryIncome, Icon: "wallet", Color: "#2E7D32"},
	{Name: "Inversiones", Type: types.CategoryIncome, Icon: "trending-up", Color: "#1565C0"},
	{Name: "Freelance", Type: types.CategoryIncome, Icon: "code", Color: "#6200EA"},
	{Name: "Regalo", Type: types.CategoryIncome, Icon: "gift", Color: "#C2185B"},
	{Name: "Otros Ingresos", Type: types.CategoryIncome, Icon: "plus-circle", Color: "#00796B"},
	{Name: "Alimentación", Type: types.CategoryExpense, Icon: "shopping-cart", Color: "#D32F2F"},
	{Name: "Vivienda", Type: types.CategoryExpense, Icon: "home", Color: "#7B1FA2"},
	{Name: "Transporte", Type: types.CategoryExpense, Icon: "car", Color: "#0288D1"},
	{Name: "Servicios", Type: types.CategoryExpense, Icon: "zap", Color: "#FFA000"},
	{Name: "Entretenimiento", Type: types.CategoryExpense, Icon: "film", Color: "#00796B"},
	{Name: "Salud", Type: types.CategoryExpense, Icon: "activity", Color: "#D81B60"},
	{Name: "Educación", Type: types.CategoryExpense, Icon: "book", Color: "#5E35B1"},
	{Name: "Ropa", Type: types.CategoryExpense, Icon: "shopping-bag", Color: "#F4511E"},
	{Name: "Otros Gastos", Type: types.CategoryExpense, Icon: "more-horizontal", Color: "#455A64"},
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	ListVisible(ctx context.Context, userID string) ([]types.Category, error)
	Get(ctx context.Context, id string) (types.Category, error)
	FindByNameType(ctx context.Context, userID, name string, categoryType types.CategoryType) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, id string) error
}

type CategoryInput struct {
	Name  string
	Type  types.CategoryType
	Icon  string
	Color string
}

// CategoryPatch leaves empty fields unchanged.
type CategoryPatch struct {
	Name  string
	Icon  string
	Color string
}

// CategoryService manages user categories on top of the system defaults.
type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, userID string) ([]types.Category, error) {
	return s.repo.ListVisible(ctx, userID)
}

func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (types.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || !in.Type.Valid() {
		return types.Category{}, ErrValidation
	}

	_, err := s.repo.FindByNameType(ctx, userID, in.Name, in.Type)
	switch {
	case err == nil:
		return types.Category{}, ErrDuplicateCategory
	case !errors.Is(err, store.ErrNotFound):
		return types.Category{}, fmt.Errorf("find category: %w", err)
	}

	if in.Icon == "" {
		in.Icon = defaultCategoryIcon
	}
	if in.Color == "" {
		in.Color = defaultCategoryColor
	}

	return s.repo.Create(ctx, types.Category{
		Name:   in.Name,
		Type:   in.Type,
		Icon:   in.Icon,
		Color:  in.Color,
		UserID: userID,
	})
}

func (s *CategoryService) Update(ctx context.Context, userID, id string, patch CategoryPatch) (types.Category, error) {
	category, err := s.owned(ctx, userID, id)
	if err != nil {
		return types.Category{}, err
	}

	if name := strings.TrimSpace(patch.Name); name != "" {
		category.Name = name
	}
	if patch.Icon != "" {
		category.Icon = patch.Icon
	}
	if patch.Color != "" {
		category.Color = patch.Color
	}

	updated, err := s.repo.Update(ctx, category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// SeedDefaults creates any missing system category and reports how many
// were added. Running it twice adds nothing the second time.
func (s *CategoryService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, def := range DefaultCategories {
		_, err := s.repo.FindByNameType(ctx, "", def.Name, def.Type)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, fmt.Errorf("find default category %s: %w", def.Name, err)
		}

		def.IsDefault = true
		if _, err := s.repo.Create(ctx, def); err != nil {
			return created, fmt.Errorf("create default category %s: %w", def.Name, err)
		}
		created++
	}
	return created, nil
}

// owned loads a category the user may change: not a default, and theirs.
func (s *CategoryService) owned(ctx context.Context, userID, id string) (types.Category, error) {
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, fmt.Errorf("load category: %w", err)
	}
	if category.IsDefault {
		return types.Category{}, ErrDefaultCategory
	}
	if category.UserID != userID {
		return types.Category{}, ErrForbidden
	}
	return category, nil
}
