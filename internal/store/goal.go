package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/google/uuid"
)

const goalColumns = `id, user_id, amount, duration, description, target_date, current_amount, created_at, updated_at`

// GoalRepository handles persistence for savings goals.
type GoalRepository struct {
	db *sql.DB
}

func NewGoalRepository(db *sql.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func scanGoal(row rowScanner) (types.Goal, error) {
	var goal types.Goal
	err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Amount,
		&goal.Duration,
		&goal.Description,
		&goal.TargetDate,
		&goal.CurrentAmount,
		&goal.CreatedAt,
		&goal.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Goal{}, ErrNotFound
		}
		return types.Goal{}, err
	}
	return goal, nil
}

func (r *GoalRepository) ListByUser(ctx context.Context, userID string) ([]types.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := make([]types.Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *GoalRepository) Get(ctx context.Context, id string) (types.Goal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Goal{}, ErrNotFound
	}
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1`
	return scanGoal(r.db.QueryRowContext(ctx, query, id))
}

func (r *GoalRepository) Create(ctx context.Context, goal types.Goal) (types.Goal, error) {
	now := time.Now().UTC()
	goal.ID = uuid.NewString()
	goal.CreatedAt = now
	goal.UpdatedAt = now

	const query = `
		INSERT INTO goals (id, user_id, amount, duration, description, target_date, current_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		goal.ID,
		goal.UserID,
		goal.Amount,
		goal.Duration,
		goal.Description,
		goal.TargetDate,
		goal.CurrentAmount,
		goal.CreatedAt,
		goal.UpdatedAt,
	); err != nil {
		return types.Goal{}, err
	}
	return goal, nil
}

func (r *GoalRepository) Update(ctx context.Context, goal types.Goal) (types.Goal, error) {
	goal.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE goals
		SET amount = $1,
			duration = $2,
			description = $3,
			current_amount = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		goal.Amount,
		goal.Duration,
		goal.Description,
		goal.CurrentAmount,
		goal.UpdatedAt,
		goal.ID,
	)
	if err != nil {
		return types.Goal{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Goal{}, err
	}
	if affected == 0 {
		return types.Goal{}, ErrNotFound
	}
	return goal, nil
}

func (r *GoalRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM goals WHERE id = $1`
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
