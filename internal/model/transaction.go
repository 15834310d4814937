package model

import (
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is one entry in the append-only ledger log. Amount is
// non-negative for user-entered kinds; adjust entries carry a signed delta
// computed by the balance-correction path.
type Transaction struct {
	ID               string          `json:"id"`
	Type             TransactionType `json:"type"`
	Amount           decimal.Decimal `json:"amount"`
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	AccountID        string          `json:"accountId"`
	ToAccountID      string          `json:"toAccountId,omitempty"`
	CategoryID       string          `json:"categoryId,omitempty"`
	Date             civil.Date      `json:"date"`
	Note             string          `json:"note,omitempty"`
	Currency         string          `json:"currency"`
	OriginalCurrency string          `json:"originalCurrency"`
	ExchangeRate     decimal.Decimal `json:"exchangeRate"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// TransactionInput carries caller-supplied fields for a new transaction.
type TransactionInput struct {
	ID               string
	Type             TransactionType
	Amount           decimal.Decimal
	OriginalAmount   decimal.Decimal
	AccountID        string
	ToAccountID      string
	CategoryID       string
	Date             civil.Date
	Note             string
	Currency         string
	OriginalCurrency string
	ExchangeRate     decimal.Decimal
}

// NewTransaction builds a transaction from input. A zero date defaults to the
// calendar day of now; a zero exchange rate defaults to 1; the original
// amount and currency default to the normalized ones.
func NewTransaction(in TransactionInput, now time.Time) Transaction {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.Type == "" {
		in.Type = TxExpense
	}
	if !in.Date.IsValid() {
		in.Date = civil.DateOf(now)
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if in.OriginalCurrency == "" {
		in.OriginalCurrency = in.Currency
	}
	if in.OriginalAmount.IsZero() {
		in.OriginalAmount = in.Amount
	}
	if in.ExchangeRate.IsZero() {
		in.ExchangeRate = decimal.NewFromInt(1)
	}
	return Transaction{
		ID:               in.ID,
		Type:             in.Type,
		Amount:           in.Amount,
		OriginalAmount:   in.OriginalAmount,
		AccountID:        in.AccountID,
		ToAccountID:      in.ToAccountID,
		CategoryID:       in.CategoryID,
		Date:             in.Date,
		Note:             in.Note,
		Currency:         in.Currency,
		OriginalCurrency: in.OriginalCurrency,
		ExchangeRate:     in.ExchangeRate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ErrInvalidTransaction marks transaction validation failures.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Validate enforces the structural invariants of a transaction: a known
// type, a non-negative amount for user-entered kinds, and for transfers two
// distinct account references. Referential existence of the accounts is the
// store's concern, not the value's.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if t.Type != TxAdjust && t.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidTransaction, t.Amount)
	}
	if t.AccountID == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidTransaction)
	}
	if t.Type == TxTransfer {
		if t.ToAccountID == "" {
			return fmt.Errorf("%w: transfer without destination account", ErrInvalidTransaction)
		}
		if t.ToAccountID == t.AccountID {
			return fmt.Errorf("%w: transfer between identical accounts", ErrInvalidTransaction)
		}
	}
	return nil
}

// TransactionPatch is a partial update; nil fields are left unchanged.
type TransactionPatch struct {
	Type        *TransactionType
	Amount      *decimal.Decimal
	AccountID   *string
	ToAccountID *string
	CategoryID  *string
	Date        *civil.Date
	Note        *string
	Currency    *string
}

// Apply merges the patch into a copy of the transaction and restamps
// UpdatedAt.
func (t Transaction) Apply(p TransactionPatch, now time.Time) Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.AccountID != nil {
		t.AccountID = *p.AccountID
	}
	if p.ToAccountID != nil {
		t.ToAccountID = *p.ToAccountID
	}
	if p.CategoryID != nil {
		t.CategoryID = *p.CategoryID
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Note != nil {
		t.Note = *p.Note
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
	t.UpdatedAt = now
	return t
}

// EntityID implements the merge key.
func (t Transaction) EntityID() string { return t.ID }

// LastUpdated implements the merge ordering key.
func (t Transaction) LastUpdated() time.Time { return t.UpdatedAt }
