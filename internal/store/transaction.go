package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/google/uuid"
)

// TransactionRepository handles persistence for transactions.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByUser returns the user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]types.Transaction, error) {
	const query = `
		SELECT id, user_id, type, category, amount, description, date, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]types.Transaction, 0)
	for rows.Next() {
		var tx types.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Type,
			&tx.Category,
			&tx.Amount,
			&tx.Description,
			&tx.Date,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (types.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Transaction{}, ErrNotFound
	}
	const query = `
		SELECT id, user_id, type, category, amount, description, date, created_at
		FROM transactions
		WHERE id = $1`
	var tx types.Transaction
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Type,
		&tx.Category,
		&tx.Amount,
		&tx.Description,
		&tx.Date,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Transaction{}, ErrNotFound
		}
		return types.Transaction{}, err
	}
	return tx, nil
}

func (r *TransactionRepository) Create(ctx context.Context, tx types.Transaction) (types.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.CreatedAt = time.Now().UTC()
	if tx.Date.IsZero() {
		tx.Date = tx.CreatedAt
	}

	const query = `
		INSERT INTO transactions (id, user_id, type, category, amount, description, date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		tx.ID,
		tx.UserID,
		tx.Type,
		tx.Category,
		tx.Amount,
		tx.Description,
		tx.Date,
		tx.CreatedAt,
	); err != nil {
		return types.Transaction{}, err
	}
	return tx, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM transactions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
