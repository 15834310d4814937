package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget caps a category's spend for one calendar month. The store enforces
// at most one budget per (CategoryID, Year, Month) tuple.
type Budget struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Period     string          `json:"period"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Quarter    int             `json:"quarter"`
	ResetDay   int             `json:"resetDay"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// BudgetInput carries caller-supplied fields for a new budget.
type BudgetInput struct {
	ID         string
	CategoryID string
	Amount     decimal.Decimal
	Period     string
	Year       int
	Month      int
	Quarter    int
	ResetDay   int
}

// NewBudget builds a budget, defaulting the period descriptor to the current
// month. ResetDay is clamped into 1..28 so it exists in every month.
func NewBudget(in BudgetInput, now time.Time) Budget {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Period == "" {
		in.Period = "monthly"
	}
	if in.Year == 0 {
		in.Year = now.Year()
	}
	if in.Month == 0 {
		in.Month = int(now.Month())
	}
	if in.Quarter == 0 {
		in.Quarter = (in.Month + 2) / 3
	}
	if in.ResetDay < 1 {
		in.ResetDay = 1
	}
	if in.ResetDay > 28 {
		in.ResetDay = 28
	}
	return Budget{
		ID:         in.ID,
		CategoryID: in.CategoryID,
		Amount:     in.Amount,
		Period:     in.Period,
		Year:       in.Year,
		Month:      in.Month,
		Quarter:    in.Quarter,
		ResetDay:   in.ResetDay,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// BudgetPatch is a partial update; nil fields are left unchanged.
type BudgetPatch struct {
	CategoryID *string
	Amount     *decimal.Decimal
	Period     *string
	Year       *int
	Month      *int
	Quarter    *int
	ResetDay   *int
}

// Apply merges the patch into a copy of the budget and restamps UpdatedAt.
func (b Budget) Apply(p BudgetPatch, now time.Time) Budget {
	if p.CategoryID != nil {
		b.CategoryID = *p.CategoryID
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Period != nil {
		b.Period = *p.Period
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	if p.Month != nil {
		b.Month = *p.Month
	}
	if p.Quarter != nil {
		b.Quarter = *p.Quarter
	}
	if p.ResetDay != nil {
		b.ResetDay = *p.ResetDay
	}
	b.UpdatedAt = now
	return b
}

// SamePeriod reports whether two budgets cover the same category and month,
// which is the uniqueness key enforced at write time.
func (b Budget) SamePeriod(other Budget) bool {
	return b.CategoryID == other.CategoryID && b.Year == other.Year && b.Month == other.Month
}

// EntityID implements the merge key.
func (b Budget) EntityID() string { return b.ID }

// LastUpdated implements the merge ordering key.
func (b Budget) LastUpdated() time.Time { return b.UpdatedAt }
