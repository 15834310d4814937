package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a money container. InitialBalance is the user-supplied anchor
// fixed at creation; Balance is derived by replaying the transaction log and
// is never authoritative on its own.
type Account struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Balance        decimal.Decimal `json:"balance"`
	Note           string          `json:"note"`
	Order          int             `json:"order"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// AccountInput carries the caller-supplied fields for a new account.
// Zero-valued fields are defaulted by NewAccount.
type AccountInput struct {
	ID             string
	Name           string
	Type           AccountType
	Currency       string
	InitialBalance decimal.Decimal
	Note           string
	Order          int
}

// NewAccount builds an account from input, defaulting the identifier, type,
// currency and timestamps. Balance starts equal to InitialBalance.
func NewAccount(in AccountInput, now time.Time) Account {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Type == "" {
		in.Type = AccountCash
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	return Account{
		ID:             in.ID,
		Name:           in.Name,
		Type:           in.Type,
		Currency:       in.Currency,
		InitialBalance: in.InitialBalance,
		Balance:        in.InitialBalance,
		Note:           in.Note,
		Order:          in.Order,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AccountPatch is a partial update; nil fields are left unchanged.
// InitialBalance is deliberately absent: it is immutable after creation.
type AccountPatch struct {
	Name     *string
	Type     *AccountType
	Currency *string
	Note     *string
	Order    *int
}

// Apply merges the patch into a copy of the account and restamps UpdatedAt.
func (a Account) Apply(p AccountPatch, now time.Time) Account {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
	if p.Note != nil {
		a.Note = *p.Note
	}
	if p.Order != nil {
		a.Order = *p.Order
	}
	a.UpdatedAt = now
	return a
}

// EntityID implements the merge key.
func (a Account) EntityID() string { return a.ID }

// LastUpdated implements the merge ordering key.
func (a Account) LastUpdated() time.Time { return a.UpdatedAt }
