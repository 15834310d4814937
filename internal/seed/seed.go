// Package seed provides the stock reference data a fresh install starts
// with.
package seed

import "github.com/avetrov/ledgerkeep/internal/model"

// Categories returns the default income and expense category set.
func Categories() []model.CategoryInput {
	return []model.CategoryInput{
		{Name: "Salary", Type: model.CategoryIncome, Icon: "money-bill-wave", Color: "#4CAF50"},
		{Name: "Bonus", Type: model.CategoryIncome, Icon: "gift", Color: "#9C27B0"},
		{Name: "Investment income", Type: model.CategoryIncome, Icon: "chart-line", Color: "#2196F3"},
		{Name: "Interest", Type: model.CategoryIncome, Icon: "percentage", Color: "#3F51B5"},
		{Name: "Rental income", Type: model.CategoryIncome, Icon: "home", Color: "#009688"},
		{Name: "Other income", Type: model.CategoryIncome, Icon: "plus-circle", Color: "#FF9800"},
		{Name: "Food & dining", Type: model.CategoryExpense, Icon: "utensils", Color: "#F44336"},
		{Name: "Transport", Type: model.CategoryExpense, Icon: "bus", Color: "#FF9800"},
		{Name: "Shopping", Type: model.CategoryExpense, Icon: "shopping-bag", Color: "#E91E63"},
		{Name: "Housing", Type: model.CategoryExpense, Icon: "home", Color: "#795548"},
		{Name: "Entertainment", Type: model.CategoryExpense, Icon: "film", Color: "#9C27B0"},
		{Name: "Healthcare", Type: model.CategoryExpense, Icon: "hospital", Color: "#2196F3"},
		{Name: "Education", Type: model.CategoryExpense, Icon: "book", Color: "#3F51B5"},
		{Name: "Phone & internet", Type: model.CategoryExpense, Icon: "mobile-alt", Color: "#009688"},
		{Name: "Clothing", Type: model.CategoryExpense, Icon: "tshirt", Color: "#673AB7"},
		{Name: "Insurance", Type: model.CategoryExpense, Icon: "shield-alt", Color: "#607D8B"},
		{Name: "Other expenses", Type: model.CategoryExpense, Icon: "minus-circle", Color: "#FF5722"},
	}
}

// Store is the slice of the ledger store seeding needs.
type Store interface {
	Categories() []model.Category
	AddCategory(model.CategoryInput) (model.Category, error)
}

// Apply seeds the default categories, but only into an empty category
// collection so a restored or synced dataset is never polluted.
func Apply(store Store) error {
	if len(store.Categories()) > 0 {
		return nil
	}
	for _, in := range Categories() {
		if _, err := store.AddCategory(in); err != nil {
			return err
		}
	}
	return nil
}
