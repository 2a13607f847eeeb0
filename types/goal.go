package types

import "time"

// Goal is a savings target owned by a single user.
type Goal struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"userId" db:"user_id"`

	// Amount is the target amount to save.
	Amount float64 `json:"amount" db:"amount"`

	// Duration is the saving horizon in months.
	Duration int `json:"duration" db:"duration"`

	Description   string    `json:"description" db:"description"`
	TargetDate    time.Time `json:"targetDate" db:"target_date"`
	CurrentAmount float64   `json:"currentAmount" db:"current_amount"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Progress returns the saved share of Amount as a percentage.
func (g Goal) Progress() float64 {
	if g.Amount == 0 {
		return 0
	}
	return g.CurrentAmount / g.Amount * 100
}

// MonthlyAmount returns the amount that must be saved each month.
func (g Goal) MonthlyAmount() float64 {
	if g.Duration == 0 {
		return 0
	}
	return g.Amount / float64(g.Duration)
}
