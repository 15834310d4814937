package model

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurringItem is a template for a transaction that recurs on a schedule.
// When AutoProcess is set, day rollover posts a matching transaction
// automatically; otherwise the match is only reported as due.
type RecurringItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	AccountID   string          `json:"accountId"`
	ToAccountID string          `json:"toAccountId,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Frequency   Frequency       `json:"frequency"`
	DayOfWeek   int             `json:"dayOfWeek"`  // 0=Sunday .. 6=Saturday, weekly only
	DayOfMonth  int             `json:"dayOfMonth"` // monthly and yearly
	Month       int             `json:"month"`      // 1..12, yearly only
	Note        string          `json:"note,omitempty"`
	Active      bool            `json:"active"`
	AutoProcess bool            `json:"autoProcess"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RecurringItemInput carries caller-supplied fields for a new recurring item.
// Active defaults to true; AutoProcess defaults to false. DayOfWeek is a
// pointer because Sunday is 0: absent defaults to Monday, an explicit 0 is
// kept.
type RecurringItemInput struct {
	ID          string
	Name        string
	Type        TransactionType
	Amount      decimal.Decimal
	AccountID   string
	ToAccountID string
	CategoryID  string
	Frequency   Frequency
	DayOfWeek   *int
	DayOfMonth  int
	Month       int
	Note        string
	Active      *bool
	AutoProcess bool
}

// NewRecurringItem builds a recurring item with schedule defaults: monthly on
// the 1st, weekly on Monday, yearly in January.
func NewRecurringItem(in RecurringItemInput, now time.Time) RecurringItem {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Type == "" {
		in.Type = TxExpense
	}
	if in.Frequency == "" {
		in.Frequency = FreqMonthly
	}
	dayOfWeek := 1
	if in.DayOfWeek != nil {
		dayOfWeek = *in.DayOfWeek
	}
	if in.DayOfMonth == 0 {
		in.DayOfMonth = 1
	}
	if in.Month == 0 {
		in.Month = 1
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return RecurringItem{
		ID:          in.ID,
		Name:        in.Name,
		Type:        in.Type,
		Amount:      in.Amount,
		AccountID:   in.AccountID,
		ToAccountID: in.ToAccountID,
		CategoryID:  in.CategoryID,
		Frequency:   in.Frequency,
		DayOfWeek:   dayOfWeek,
		DayOfMonth:  in.DayOfMonth,
		Month:       in.Month,
		Note:        in.Note,
		Active:      active,
		AutoProcess: in.AutoProcess,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DueOn reports whether the item's schedule matches the given calendar day.
// Inactive items never match.
func (r RecurringItem) DueOn(d civil.Date) bool {
	if !r.Active {
		return false
	}
	switch r.Frequency {
	case FreqDaily:
		return true
	case FreqWeekly:
		return int(d.In(time.UTC).Weekday()) == r.DayOfWeek
	case FreqMonthly:
		return d.Day == r.DayOfMonth
	case FreqYearly:
		return int(d.Month) == r.Month && d.Day == r.DayOfMonth
	}
	return false
}

// RecurringItemPatch is a partial update; nil fields are left unchanged.
type RecurringItemPatch struct {
	Name        *string
	Type        *TransactionType
	Amount      *decimal.Decimal
	AccountID   *string
	ToAccountID *string
	CategoryID  *string
	Frequency   *Frequency
	DayOfWeek   *int
	DayOfMonth  *int
	Month       *int
	Note        *string
	Active      *bool
	AutoProcess *bool
}

// Apply merges the patch into a copy of the item and restamps UpdatedAt.
func (r RecurringItem) Apply(p RecurringItemPatch, now time.Time) RecurringItem {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.AccountID != nil {
		r.AccountID = *p.AccountID
	}
	if p.ToAccountID != nil {
		r.ToAccountID = *p.ToAccountID
	}
	if p.CategoryID != nil {
		r.CategoryID = *p.CategoryID
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.DayOfWeek != nil {
		r.DayOfWeek = *p.DayOfWeek
	}
	if p.DayOfMonth != nil {
		r.DayOfMonth = *p.DayOfMonth
	}
	if p.Month != nil {
		r.Month = *p.Month
	}
	if p.Note != nil {
		r.Note = *p.Note
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.AutoProcess != nil {
		r.AutoProcess = *p.AutoProcess
	}
	r.UpdatedAt = now
	return r
}

// EntityID implements the merge key.
func (r RecurringItem) EntityID() string { return r.ID }

// LastUpdated implements the merge ordering key.
func (r RecurringItem) LastUpdated() time.Time { return r.UpdatedAt }
