package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/YiyoMb/DWP-Backend-FinanceAdmin/types"
	"github.com/google/uuid"
)

const categoryColumns = `id, name, type, icon, color, is_default, user_id, created_at, updated_at`

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func scanCategory(row rowScanner) (types.Category, error) {
	var (
		category types.Category
		userID   sql.NullString
	)
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Type,
		&category.Icon,
		&category.Color,
		&category.IsDefault,
		&userID,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	category.UserID = userID.String
	return category, nil
}

// ListVisible returns the system defaults plus the user's own categories,
// ordered by type then name.
func (r *CategoryRepository) ListVisible(ctx context.Context, userID string) ([]types.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE is_default = TRUE OR user_id = $1
		ORDER BY type, name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (types.Category, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.Category{}, ErrNotFound
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	return scanCategory(r.db.QueryRowContext(ctx, query, id))
}

// FindByNameType looks up a category by name and type within one owner.
// An empty userID searches the system defaults.
func (r *CategoryRepository) FindByNameType(ctx context.Context, userID, name string, categoryType types.CategoryType) (types.Category, error) {
	if userID == "" {
		query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_default = TRUE AND name = $1 AND type = $2 LIMIT 1`
		return scanCategory(r.db.QueryRowContext(ctx, query, name, categoryType))
	}
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 AND name = $2 AND type = $3 LIMIT 1`
	return scanCategory(r.db.QueryRowContext(ctx, query, userID, name, categoryType))
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	now := time.Now().UTC()
	category.ID = uuid.NewString()
	category.CreatedAt = now
	category.UpdatedAt = now

	var owner sql.NullString
	if category.UserID != "" {
		owner = sql.NullString{String: category.UserID, Valid: true}
	}

	const query = `
		INSERT INTO categories (id, name, type, icon, color, is_default, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Type,
		category.Icon,
		category.Color,
		category.IsDefault,
		owner,
		category.CreatedAt,
		category.UpdatedAt,
	); err != nil {
		return types.Category{}, err
	}
	return category, nil
}

// Update rewrites the mutable fields. System defaults are never matched.
func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	category.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE categories
		SET name = $1,
			icon = $2,
			color = $3,
			updated_at = $4
		WHERE id = $5 AND is_default = FALSE`
	result, err := r.db.ExecContext(
		ctx,
		query,
		category.Name,
		category.Icon,
		category.Color,
		category.UpdatedAt,
		category.ID,
	)
	if err != nil {
		return types.Category{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1 AND is_default = FALSE`
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
