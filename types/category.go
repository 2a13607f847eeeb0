package types

import "time"

type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryIncome || t == CategoryExpense
}

// Category groups transactions. System defaults have no owner and are
// read-only for every user.
type Category struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Type      CategoryType `json:"type" db:"type"`
	Icon      string       `json:"icon" db:"icon"`
	Color     string       `json:"color" db:"color"`
	IsDefault bool         `json:"isDefault" db:"is_default"`

	// UserID is empty for system default categories.
	UserID    string    `json:"user,omitempty" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
