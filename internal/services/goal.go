package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
)

// GoalRepository defines persistence operations for savings goals.
type GoalRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.Goal, error)
	Get(ctx context.Context, id string) (types.Goal, error)
	Create(ctx context.Context, goal types.Goal) (types.Goal, error)
	Update(ctx context.Context, goal types.Goal) (types.Goal, error)
	Delete(ctx context.Context, id string) error
}

type GoalInput struct {
	Amount      float64
	Duration    int
	Description string
}

// GoalPatch only applies non-nil fields.
type GoalPatch struct {
	Amount        *float64
	Duration      *int
	Description   *string
	CurrentAmount *float64
}

type GoalService struct {
	repo GoalRepository
	now  func() time.Time
}

func NewGoalService(repo GoalRepository) *GoalService {
	return &GoalService{repo: repo, now: time.Now}
}

func (s *GoalService) List(ctx context.Context, userID string) ([]types.Goal, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Create sets the target date duration months from now.
func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (types.Goal, error) {
	if in.Amount <= 0 || in.Duration <= 0 {
		return types.Goal{}, ErrValidation
	}

	return s.repo.Create(ctx, types.Goal{
		UserID:      userID,
		Amount:      in.Amount,
		Duration:    in.Duration,
		Description: in.Description,
		TargetDate:  s.now().UTC().AddDate(0, in.Duration, 0),
	})
}

func (s *GoalService) Get(ctx context.Context, userID, id string) (types.Goal, error) {
	return s.owned(ctx, userID, id)
}

func (s *GoalService) Update(ctx context.Context, userID, id string, patch GoalPatch) (types.Goal, error) {
	goal, err := s.owned(ctx, userID, id)
	if err != nil {
		return types.Goal{}, err
	}

	if patch.Amount != nil {
		goal.Amount = *patch.Amount
	}
	if patch.Duration != nil {
		goal.Duration = *patch.Duration
	}
	if patch.Description != nil {
		goal.Description = *patch.Description
	}
	if patch.CurrentAmount != nil {
		goal.CurrentAmount = *patch.CurrentAmount
	}
	if goal.Amount <= 0 || goal.Duration <= 0 || goal.CurrentAmount < 0 {
		return types.Goal{}, ErrValidation
	}

	return s.save(ctx, goal)
}

func (s *GoalService) UpdateProgress(ctx context.Context, userID, id string, currentAmount *float64) (types.Goal, error) {
	if currentAmount == nil || *currentAmount < 0 {
		return types.Goal{}, ErrValidation
	}
	return s.Update(ctx, userID, id, GoalPatch{CurrentAmount: currentAmount})
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

func (s *GoalService) save(ctx context.Context, goal types.Goal) (types.Goal, error) {
	updated, err := s.repo.Update(ctx, goal)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Goal{}, ErrNotFound
		}
		return types.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return updated, nil
}

func (s *GoalService) owned(ctx context.Context, userID, id string) (types.Goal, error) {
	goal, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Goal{}, ErrNotFound
		}
		return types.Goal{}, fmt.Errorf("load goal: %w", err)
	}
	if goal.UserID != userID {
		return types.Goal{}, ErrForbidden
	}
	return goal, nil
}
