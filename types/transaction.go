package types

import "time"

// Transaction is a single income or expense entry.
type Transaction struct {
	ID          string       `json:"id" db:"id"`
	UserID      string       `json:"user" db:"user_id"`
	Type        CategoryType `json:"type" db:"type"`
	Category    string       `json:"category" db:"category"`
	Amount      float64      `json:"amount" db:"amount"`
	Description string       `json:"description" db:"description"`
	Date        time.Time    `json:"date" db:"date"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
}
