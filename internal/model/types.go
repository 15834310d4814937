// Package model defines the ledger's entity types and their factory
// functions. Entities are plain values: every "update" produces a new value
// with a fresh UpdatedAt stamp, which is the sole conflict-resolution key
// during cloud reconciliation.
package model

// AccountType classifies an account.
type AccountType string

const (
	AccountCash       AccountType = "cash"
	AccountBank       AccountType = "bank"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
	AccountOther      AccountType = "other"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountBank, AccountCredit, AccountInvestment, AccountOther:
		return true
	}
	return false
}

// TransactionType is the closed set of transaction kinds. Every consumer
// (balance replay, category filters, display) must handle all four; adjust is
// synthetic and system-generated, never entered by hand.
type TransactionType string

const (
	TxIncome   TransactionType = "income"
	TxExpense  TransactionType = "expense"
	TxTransfer TransactionType = "transfer"
	TxAdjust   TransactionType = "adjust"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxIncome, TxExpense, TxTransfer, TxAdjust:
		return true
	}
	return false
}

// CategoryType splits categories into income and expense groups.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// Frequency is the schedule kind of a recurring item.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)
