package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avetrov/ledgerkeep/internal/model"
)

func newTestStore() *Store {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	return NewStore(WithClock(func() time.Time { return base }))
}

func mustAddAccount(t *testing.T, s *Store, name, initial string) model.Account {
	t.Helper()
	acc, err := s.AddAccount(model.AccountInput{Name: name, InitialBalance: dec(initial)})
	if err != nil {
		t.Fatalf("AddAccount(%s): %v", name, err)
	}
	return acc
}

func mustAddTx(t *testing.T, s *Store, in model.TransactionInput) model.Transaction {
	t.Helper()
	tx, err := s.AddTransaction(in)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return tx
}

func storedBalance(t *testing.T, s *Store, id string) decimal.Decimal {
	t.Helper()
	acc, err := s.Account(id)
	if err != nil {
		t.Fatalf("Account(%s): %v", id, err)
	}
	return acc.Balance
}

// Walks the concrete correction scenario: 100 initial, +50 income, -30
// expense, adjust to 200, then delete the expense and recompute to 230.
func TestStoreAdjustScenario(t *testing.T) {
	s := newTestStore()
	acc := mustAddAccount(t, s, "wallet", "100")

	mustAddTx(t, s, model.TransactionInput{Type: model.TxIncome, Amount: dec("50"), AccountID: acc.ID})
	if b := storedBalance(t, s, acc.ID); !b.Equal(dec("150")) {
		t.Fatalf("after income: balance = %s, want 150", b)
	}

	expense := mustAddTx(t, s, model.TransactionInput{Type: model.TxExpense, Amount: dec("30"), AccountID: acc.ID})
	if b := storedBalance(t, s, acc.ID); !b.Equal(dec("120")) {
		t.Fatalf("after expense: balance = %s, want 120", b)
	}

	adj, err := s.AdjustAccountBalance(acc.ID, dec("200"))
	if err != nil {
		t.Fatalf("AdjustAccountBalance: %v", err)
	}
	if adj == nil {
		t.Fatal("expected an adjust transaction, got none")
	}
	if adj.Type != model.TxAdjust {
		t.Errorf("adjust type = %s, want adjust", adj.Type)
	}
	if !adj.Amount.Equal(dec("80")) {
		t.Errorf("adjust amount = %s, want 80", adj.Amount)
	}
	if b := storedBalance(t, s, acc.ID); !b.Equal(dec("200")) {
		t.Fatalf("after adjust: balance = %s, want 200", b)
	}

	if err := s.DeleteTransaction(expense.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if b := storedBalance(t, s, acc.ID); !b.Equal(dec("230")) {
		t.Fatalf("after delete: balance = %s, want 230", b)
	}
}

func TestStoreAdjustIsIdempotent(t *testing.T) {
	s := newTestStore()
	acc := mustAddAccount(t, s, "wallet", "100")

	first, err := s.AdjustAccountBalance(acc.ID, dec("250"))
	if err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	if first == nil {
		t.Fatal("first adjust should write an entry")
	}

	second, err := s.AdjustAccountBalance(acc.ID, dec("250"))
	if err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if second != nil {
		t.Errorf("second adjust wrote an entry of %s, want no-op", second.Amount)
	}
	if n := len(s.Transactions()); n != 1 {
		t.Errorf("transaction count = %d, want 1", n)
	}
}

func TestStoreAdjustUnknownAccount(t *testing.T) {
	s := newTestStore()
	if _, err := s.AdjustAccountBalance("missing", dec("1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreAddTransactionDuplicateID(t *testing.T) {
	s := newTestStore()
	acc := mustAddAccount(t, s, "wallet", "0")

	in := model.TransactionInput{ID: "fixed-id", Type: model.TxIncome, Amount: dec("10"), AccountID: acc.ID}
	mustAddTx(t, s, in)

	// Replaying the same id must not append a second entry or change state.
	in.Amount = dec("9999")
	got := mustAddTx(t, s, in)
	if !got.Amount.Equal(dec("10")) {
		t.Errorf("replay returned amount %s, want stored 10", got.Amount)
	}
	if n := len(s.Transactions()); n != 1 {
		t.Errorf("transaction count = %d, want 1", n)
	}
	if b := storedBalance(t, s, acc.ID); !b.Equal(dec("10")) {
		t.Errorf("balance = %s, want 10", b)
	}
}

func TestStoreTransferValidation(t *testing.T) {
	s := newTestStore()
	acc := mustAddAccount(t, s, "wallet", "0")

	_, err := s.AddTransaction(model.TransactionInput{
		Type:        model.TxTransfer,
		Amount:      dec("5"),
		AccountID:   acc.ID,
		ToAccountID: acc.ID,
	})
	if !errors.Is(err, model.ErrInvalidTransaction) {
		t.Errorf("self-transfer err = %v, want ErrInvalidTransaction", err)
	}

	_, err = s.AddTransaction(model.TransactionInput{
		Type:      model.TxTransfer,
		Amount:    dec("5"),
		AccountID: acc.ID,
	})
	if !errors.Is(err, model.ErrInvalidTransaction) {
		t.Errorf("transfer without destination err = %v, want ErrInvalidTransaction", err)
	}
}

func TestStoreUpdateTransactionRecomputes(t *testing.T) {
	s := newTestStore()
	acc := mustAddAccount(t, s, "wallet", "100")
	tx := mustAddTx(t, s, model.TransactionInput{Type: model.TxExpense, Amount: dec("30"), AccountID: acc.ID})

	newAmount := dec("10")
	if _, err := s.UpdateTransaction(tx.ID, model.TransactionPatch{Amount: &newAmount}); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if b := storedBalance(t, s, acc.ID); !b.Equal(dec("90")) {
		t.Errorf("balance = %s, want 90", b)
	}
}

func TestStoreBudgetDuplicatePeriod(t *testing.T) {
	s := newTestStore()

	if _, err := s.AddBudget(model.BudgetInput{CategoryID: "food", Amount: dec("500"), Year: 2024, Month: 3}); err != nil {
		t.Fatalf("first AddBudget: %v", err)
	}

	_, err := s.AddBudget(model.BudgetInput{CategoryID: "food", Amount: dec("300"), Year: 2024, Month: 3})
	if !errors.Is(err, ErrDuplicateBudgetPeriod) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateBudgetPeriod", err)
	}
	if n := len(s.Budgets()); n != 1 {
		t.Errorf("budget count = %d, want 1", n)
	}

	// Same category, another month is fine.
	if _, err := s.AddBudget(model.BudgetInput{CategoryID: "food", Amount: dec("500"), Year: 2024, Month: 4}); err != nil {
		t.Errorf("different month AddBudget: %v", err)
	}
}

func TestStoreBudgetRejectsNonPositiveAmount(t *testing.T) {
	s := newTestStore()
	if _, err := s.AddBudget(model.BudgetInput{CategoryID: "food", Amount: dec("0"), Year: 2024, Month: 3}); err == nil {
		t.Error("expected error for zero amount")
	}
}

func TestStoreNoteSuggestions(t *testing.T) {
	s := newTestStore()

	s.AddNoteSuggestion("food", "lunch")
	s.AddNoteSuggestion("food", "dinner")
	s.AddNoteSuggestion("food", "lunch") // duplicate, ignored
	s.AddNoteSuggestion("food", "")      // empty, ignored

	got := s.NoteSuggestions("food")
	if len(got) != 2 || got[0] != "dinner" || got[1] != "lunch" {
		t.Fatalf("suggestions = %v, want [dinner lunch]", got)
	}

	for i := 0; i < 15; i++ {
		s.AddNoteSuggestion("food", string(rune('a'+i)))
	}
	if n := len(s.NoteSuggestions("food")); n != maxNoteSuggestions {
		t.Errorf("suggestion count = %d, want %d", n, maxNoteSuggestions)
	}

	s.DeleteNoteSuggestion("food", s.NoteSuggestions("food")[0])
	if n := len(s.NoteSuggestions("food")); n != maxNoteSuggestions-1 {
		t.Errorf("after delete count = %d, want %d", n, maxNoteSuggestions-1)
	}
}

func TestStoreSetAllDoesNotRecompute(t *testing.T) {
	s := newTestStore()
	snap := model.EmptySnapshot()
	acc := model.NewAccount(model.AccountInput{ID: "a", Name: "wallet", InitialBalance: dec("10")}, time.Now())
	acc.Balance = dec("777") // authoritative as given
	snap.Accounts = []model.Account{acc}
	s.SetAll(snap)

	if b := storedBalance(t, s, "a"); !b.Equal(dec("777")) {
		t.Errorf("balance = %s, want the snapshot's 777", b)
	}
}

func TestStoreClearAllData(t *testing.T) {
	s := newTestStore()
	mustAddAccount(t, s, "wallet", "10")
	s.AddNoteSuggestion("food", "lunch")
	s.ClearAllData()

	if n := len(s.Accounts()); n != 0 {
		t.Errorf("accounts after clear = %d, want 0", n)
	}
	if got := s.Settings(); got != model.DefaultSettings() {
		t.Errorf("settings after clear = %+v, want defaults", got)
	}
}

func TestStoreEvents(t *testing.T) {
	s := newTestStore()
	events, unsubscribe := s.Subscribe(8)
	defer unsubscribe()

	acc := mustAddAccount(t, s, "wallet", "0")
	mustAddTx(t, s, model.TransactionInput{Type: model.TxIncome, Amount: dec("1"), AccountID: acc.ID})

	want := []EventKind{EventAccounts, EventTransactions}
	for i, kind := range want {
		select {
		case ev := <-events:
			if ev.Kind != kind {
				t.Errorf("event %d kind = %s, want %s", i, ev.Kind, kind)
			}
		default:
			t.Fatalf("missing event %d (%s)", i, kind)
		}
	}
}

func TestStoreDeletedAccountToleratedByReplay(t *testing.T) {
	s := newTestStore()
	a := mustAddAccount(t, s, "a", "100")
	b := mustAddAccount(t, s, "b", "0")
	mustAddTx(t, s, model.TransactionInput{Type: model.TxTransfer, Amount: dec("25"), AccountID: a.ID, ToAccountID: b.ID})

	if err := s.DeleteAccount(a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	// The dangling transfer still credits b; no error, no crash.
	mustAddTx(t, s, model.TransactionInput{Type: model.TxIncome, Amount: dec("1"), AccountID: b.ID})
	if got := storedBalance(t, s, b.ID); !got.Equal(dec("26")) {
		t.Errorf("balance = %s, want 26", got)
	}
}
