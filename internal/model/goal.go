package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SavingsGoal tracks progress toward a target amount, optionally linked to an
// account. A zero Deadline means no deadline.
type SavingsGoal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Currency      string          `json:"currency"`
	Deadline      civil.Date      `json:"deadline,omitempty"`
	Note          string          `json:"note,omitempty"`
	AccountID     string          `json:"accountId,omitempty"`
	Completed     bool            `json:"completed"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// SavingsGoalInput carries caller-supplied fields for a new goal.
type SavingsGoalInput struct {
	ID            string
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Currency      string
	Deadline      civil.Date
	Note          string
	AccountID     string
}

// NewSavingsGoal builds a savings goal with defaults applied.
func NewSavingsGoal(in SavingsGoalInput, now time.Time) SavingsGoal {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	return SavingsGoal{
		ID:            in.ID,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Currency:      in.Currency,
		Deadline:      in.Deadline,
		Note:          in.Note,
		AccountID:     in.AccountID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SavingsGoalPatch is a partial update; nil fields are left unchanged.
type SavingsGoalPatch struct {
	Name          *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	Currency      *string
	Deadline      *civil.Date
	Note          *string
	AccountID     *string
	Completed     *bool
}

// Apply merges the patch into a copy of the goal and restamps UpdatedAt.
func (g SavingsGoal) Apply(p SavingsGoalPatch, now time.Time) SavingsGoal {
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.TargetAmount != nil {
		g.TargetAmount = *p.TargetAmount
	}
	if p.CurrentAmount != nil {
		g.CurrentAmount = *p.CurrentAmount
	}
	if p.Currency != nil {
		g.Currency = *p.Currency
	}
	if p.Deadline != nil {
		g.Deadline = *p.Deadline
	}
	if p.Note != nil {
		g.Note = *p.Note
	}
	if p.AccountID != nil {
		g.AccountID = *p.AccountID
	}
	if p.Completed != nil {
		g.Completed = *p.Completed
	}
	g.UpdatedAt = now
	return g
}

// EntityID implements the merge key.
func (g SavingsGoal) EntityID() string { return g.ID }

// LastUpdated implements the merge ordering key.
func (g SavingsGoal) LastUpdated() time.Time { return g.UpdatedAt }
