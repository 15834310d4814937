package model

import "time"

// Snapshot is the full JSON-serializable dataset: every collection plus
// settings and the note-suggestion index. The same shape is persisted
// locally, uploaded to the cloud document store, and rotated into backups.
type Snapshot struct {
	Accounts        []Account           `json:"accounts"`
	Categories      []Category          `json:"categories"`
	Transactions    []Transaction       `json:"transactions"`
	Budgets         []Budget            `json:"budgets"`
	SavingsGoals    []SavingsGoal       `json:"savingsGoals"`
	RecurringItems  []RecurringItem     `json:"recurringItems"`
	NoteSuggestions map[string][]string `json:"noteSuggestions,omitempty"`
	Settings        Settings            `json:"settings"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// EmptySnapshot returns a snapshot with empty collections and default
// settings.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Accounts:        []Account{},
		Categories:      []Category{},
		Transactions:    []Transaction{},
		Budgets:         []Budget{},
		SavingsGoals:    []SavingsGoal{},
		RecurringItems:  []RecurringItem{},
		NoteSuggestions: map[string][]string{},
		Settings:        DefaultSettings(),
	}
}

// Clone returns a deep copy of the snapshot so callers can hold it without
// aliasing the store's internal state.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Accounts = append([]Account(nil), s.Accounts...)
	out.Categories = append([]Category(nil), s.Categories...)
	out.Transactions = append([]Transaction(nil), s.Transactions...)
	out.Budgets = append([]Budget(nil), s.Budgets...)
	out.SavingsGoals = append([]SavingsGoal(nil), s.SavingsGoals...)
	out.RecurringItems = append([]RecurringItem(nil), s.RecurringItems...)
	out.NoteSuggestions = make(map[string][]string, len(s.NoteSuggestions))
	for k, v := range s.NoteSuggestions {
		out.NoteSuggestions[k] = append([]string(nil), v...)
	}
	return out
}
