package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/internal/store"
	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
)

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.Transaction, error)
	Get(ctx context.Context, id string) (types.Transaction, error)
	Create(ctx context.Context, tx types.Transaction) (types.Transaction, error)
	Delete(ctx context.Context, id string) error
}

type TransactionInput struct {
	Type        types.CategoryType
	Category    string
	Amount      float64
	Description string
	// Date defaults to now when zero.
	Date time.Time
}

type TransactionService struct {
	repo TransactionRepository
}

func NewTransactionService(repo TransactionRepository) *TransactionService {
	return &TransactionService{repo: repo}
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID string) ([]types.Transaction, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *TransactionService) Create(ctx context.Context, userID string, in TransactionInput) (types.Transaction, error) {
	in.Category = strings.TrimSpace(in.Category)
	if !in.Type.Valid() || in.Category == "" || in.Amount <= 0 {
		return types.Transaction{}, ErrValidation
	}

	return s.repo.Create(ctx, types.Transaction{
		UserID:      userID,
		Type:        in.Type,
		Category:    in.Category,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
	})
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	tx, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load transaction: %w", err)
	}
	if tx.UserID != userID {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}
