package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/google/uuid"
)

// MemoryCategoryRepository is the in-process counterpart of CategoryRepository.
type MemoryCategoryRepository struct {
	mu    sync.Mutex
	items map[string]types.Category
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{items: make(map[string]types.Category)}
}

func (r *MemoryCategoryRepository) ListVisible(_ context.Context, userID string) ([]types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	categories := make([]types.Category, 0)
	for _, c := range r.items {
		if c.IsDefault || c.UserID == userID {
			categories = append(categories, c)
		}
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Type != categories[j].Type {
			return categories[i].Type < categories[j].Type
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (r *MemoryCategoryRepository) Get(_ context.Context, id string) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[id]
	if !ok {
		return types.Category{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryCategoryRepository) FindByNameType(_ context.Context, userID, name string, categoryType types.CategoryType) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.items {
		if c.Name != name || c.Type != categoryType {
			continue
		}
		if (userID == "" && c.IsDefault) || (userID != "" && c.UserID == userID) {
			return c, nil
		}
	}
	return types.Category{}, ErrNotFound
}

func (r *MemoryCategoryRepository) Create(_ context.Context, category types.Category) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	category.ID = uuid.NewString()
	category.CreatedAt = now
	category.UpdatedAt = now
	r.items[category.ID] = category
	return category, nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, category types.Category) (types.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[category.ID]
	if !ok || existing.IsDefault {
		return types.Category{}, ErrNotFound
	}
	existing.Name = category.Name
	existing.Icon = category.Icon
	existing.Color = category.Color
	existing.UpdatedAt = time.Now().UTC()
	r.items[existing.ID] = existing
	return existing, nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok || existing.IsDefault {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// MemoryGoalRepository is the in-process counterpart of GoalRepository.
type MemoryGoalRepository struct {
	mu    sync.Mutex
	items map[string]types.Goal
	order []string
}

func NewMemoryGoalRepository() *MemoryGoalRepository {
	return &MemoryGoalRepository{items: make(map[string]types.Goal)}
}

func (r *MemoryGoalRepository) ListByUser(_ context.Context, userID string) ([]types.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	goals := make([]types.Goal, 0)
	for _, id := range r.order {
		if g, ok := r.items[id]; ok && g.UserID == userID {
			goals = append(goals, g)
		}
	}
	return goals, nil
}

func (r *MemoryGoalRepository) Get(_ context.Context, id string) (types.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.items[id]
	if !ok {
		return types.Goal{}, ErrNotFound
	}
	return g, nil
}

func (r *MemoryGoalRepository) Create(_ context.Context, goal types.Goal) (types.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	goal.ID = uuid.NewString()
	goal.CreatedAt = now
	goal.UpdatedAt = now
	r.items[goal.ID] = goal
	r.order = append(r.order, goal.ID)
	return goal, nil
}

func (r *MemoryGoalRepository) Update(_ context.Context, goal types.Goal) (types.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[goal.ID]
	if !ok {
		return types.Goal{}, ErrNotFound
	}
	existing.Amount = goal.Amount
	existing.Duration = goal.Duration
	existing.Description = goal.Description
	existing.CurrentAmount = goal.CurrentAmount
	existing.UpdatedAt = time.Now().UTC()
	r.items[existing.ID] = existing
	return existing, nil
}

func (r *MemoryGoalRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// MemoryTransactionRepository is the in-process counterpart of TransactionRepository.
type MemoryTransactionRepository struct {
	mu    sync.Mutex
	items map[string]types.Transaction
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{items: make(map[string]types.Transaction)}
}

func (r *MemoryTransactionRepository) ListByUser(_ context.Context, userID string) ([]types.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	transactions := make([]types.Transaction, 0)
	for _, tx := range r.items {
		if tx.UserID == userID {
			transactions = append(transactions, tx)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Date.After(transactions[j].Date)
	})
	return transactions, nil
}

func (r *MemoryTransactionRepository) Get(_ context.Context, id string) (types.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.items[id]
	if !ok {
		return types.Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (r *MemoryTransactionRepository) Create(_ context.Context, tx types.Transaction) (types.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()
	if tx.Date.IsZero() {
		tx.Date = tx.CreatedAt
	}
	r.items[tx.ID] = tx
	return tx, nil
}

func (r *MemoryTransactionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}
