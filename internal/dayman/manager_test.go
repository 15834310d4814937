package dayman

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/avetrov/ledgerkeep/internal/ledger"
	"github.com/avetrov/ledgerkeep/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// testClock is a mutable time source shared by the store and the manager.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advanceDays(n int) {
	c.t = c.t.AddDate(0, 0, n)
}

func newFixture(t *testing.T) (*ledger.Store, *Manager, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)}
	store := ledger.NewStore(ledger.WithClock(clock.now))
	mgr, err := New(store, nil, WithClock(clock.now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, mgr, clock
}

func TestStartNewDayRejectsSameDay(t *testing.T) {
	_, mgr, _ := newFixture(t)
	if _, err := mgr.StartNewDay(); !errors.Is(err, ErrAlreadyToday) {
		t.Fatalf("err = %v, want ErrAlreadyToday", err)
	}
}

func TestStartNewDayRunsOnce(t *testing.T) {
	store, mgr, clock := newFixture(t)
	acc, err := store.AddAccount(model.AccountInput{Name: "wallet"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddRecurringItem(model.RecurringItemInput{
		Name:        "coffee",
		Type:        model.TxExpense,
		Amount:      dec("4.50"),
		AccountID:   acc.ID,
		Frequency:   model.FreqDaily,
		AutoProcess: true,
	}); err != nil {
		t.Fatal(err)
	}

	clock.advanceDays(1)
	report, err := mgr.StartNewDay()
	if err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}
	if report.Date != civil.DateOf(clock.now()) {
		t.Errorf("report date = %s, want %s", report.Date, civil.DateOf(clock.now()))
	}
	if n := len(store.Transactions()); n != 1 {
		t.Fatalf("posted %d transactions, want 1", n)
	}

	// The second call on the same real day must not repeat the transition or
	// the posting.
	if _, err := mgr.StartNewDay(); !errors.Is(err, ErrAlreadyToday) {
		t.Fatalf("second call err = %v, want ErrAlreadyToday", err)
	}
	if n := len(store.Transactions()); n != 1 {
		t.Errorf("after second call %d transactions, want 1", n)
	}
}

func TestStartNewDayRecurringSchedules(t *testing.T) {
	// 2024-03-15 is a Friday (weekday 5), day 15 of month 3.
	target := civil.Date{Year: 2024, Month: time.March, Day: 15}

	tests := []struct {
		name string
		item model.RecurringItemInput
		due  bool
	}{
		{"daily always matches", model.RecurringItemInput{Frequency: model.FreqDaily}, true},
		{"weekly on friday", model.RecurringItemInput{Frequency: model.FreqWeekly, DayOfWeek: intPtr(5)}, true},
		{"weekly on monday", model.RecurringItemInput{Frequency: model.FreqWeekly, DayOfWeek: intPtr(1)}, false},
		{"monthly on the 15th", model.RecurringItemInput{Frequency: model.FreqMonthly, DayOfMonth: 15}, true},
		{"monthly on the 1st", model.RecurringItemInput{Frequency: model.FreqMonthly, DayOfMonth: 1}, false},
		{"yearly march 15", model.RecurringItemInput{Frequency: model.FreqYearly, Month: 3, DayOfMonth: 15}, true},
		{"yearly april 15", model.RecurringItemInput{Frequency: model.FreqYearly, Month: 4, DayOfMonth: 15}, false},
		{"inactive never matches", model.RecurringItemInput{Frequency: model.FreqDaily, Active: boolPtr(false)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mgr, clock := newFixture(t)
			acc, _ := store.AddAccount(model.AccountInput{Name: "wallet"})
			tt.item.Name = tt.name
			tt.item.AccountID = acc.ID
			tt.item.Amount = dec("1")
			if _, err := store.AddRecurringItem(tt.item); err != nil {
				t.Fatal(err)
			}

			clock.t = target.In(time.UTC).Add(8 * time.Hour)
			report, err := mgr.StartNewDay()
			if err != nil {
				t.Fatalf("StartNewDay: %v", err)
			}
			if got := len(report.DueItems) == 1; got != tt.due {
				t.Errorf("due = %v, want %v", got, tt.due)
			}
		})
	}
}

func TestStartNewDayWeeklySundaySchedule(t *testing.T) {
	// 2024-03-17 is a Sunday; weekday 0 must survive item creation and match.
	target := civil.Date{Year: 2024, Month: time.March, Day: 17}

	store, mgr, clock := newFixture(t)
	acc, _ := store.AddAccount(model.AccountInput{Name: "wallet"})

	item, err := store.AddRecurringItem(model.RecurringItemInput{
		Name:      "sunday market",
		Amount:    dec("25"),
		AccountID: acc.ID,
		Frequency: model.FreqWeekly,
		DayOfWeek: intPtr(0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if item.DayOfWeek != 0 {
		t.Fatalf("DayOfWeek = %d, explicit Sunday not kept", item.DayOfWeek)
	}

	clock.t = target.In(time.UTC).Add(8 * time.Hour)
	report, err := mgr.StartNewDay()
	if err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}
	if len(report.DueItems) != 1 {
		t.Errorf("due items = %d on Sunday, want 1", len(report.DueItems))
	}
}

func TestStartNewDaySkipsInvalidAutoPost(t *testing.T) {
	store, mgr, clock := newFixture(t)
	acc, _ := store.AddAccount(model.AccountInput{Name: "wallet"})

	// Transfer template missing its destination: auto-post must fail
	// validation, get flagged, and not abort the remaining items.
	if _, err := store.AddRecurringItem(model.RecurringItemInput{
		Name:        "broken transfer",
		Type:        model.TxTransfer,
		Amount:      dec("10"),
		AccountID:   acc.ID,
		Frequency:   model.FreqDaily,
		AutoProcess: true,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddRecurringItem(model.RecurringItemInput{
		Name:        "rent",
		Type:        model.TxExpense,
		Amount:      dec("900"),
		AccountID:   acc.ID,
		Frequency:   model.FreqDaily,
		AutoProcess: true,
	}); err != nil {
		t.Fatal(err)
	}

	clock.advanceDays(1)
	report, err := mgr.StartNewDay()
	if err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}
	if len(report.DueItems) != 2 {
		t.Fatalf("due items = %d, want 2", len(report.DueItems))
	}

	var posted, skipped int
	for _, d := range report.DueItems {
		if d.Posted {
			posted++
		}
		if d.SkipReason != "" {
			skipped++
		}
	}
	if posted != 1 || skipped != 1 {
		t.Errorf("posted=%d skipped=%d, want 1 and 1", posted, skipped)
	}
	if n := len(store.Transactions()); n != 1 {
		t.Errorf("transactions = %d, want 1", n)
	}
}

func TestStartNewDayYesterdaySummary(t *testing.T) {
	store, mgr, clock := newFixture(t)
	acc, _ := store.AddAccount(model.AccountInput{Name: "wallet", InitialBalance: dec("100")})
	yesterday := civil.DateOf(clock.now())

	add := func(typ model.TransactionType, amount string) {
		if _, err := store.AddTransaction(model.TransactionInput{
			Type: typ, Amount: dec(amount), AccountID: acc.ID, Date: yesterday,
		}); err != nil {
			t.Fatal(err)
		}
	}
	add(model.TxIncome, "200")
	add(model.TxExpense, "50")
	add(model.TxExpense, "25")

	clock.advanceDays(1)
	report, err := mgr.StartNewDay()
	if err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}

	sum := report.Yesterday
	if sum.Date != yesterday {
		t.Errorf("summary date = %s, want %s", sum.Date, yesterday)
	}
	if !sum.Income.Equal(dec("200")) || !sum.Expense.Equal(dec("75")) || !sum.Net.Equal(dec("125")) {
		t.Errorf("summary income=%s expense=%s net=%s, want 200/75/125", sum.Income, sum.Expense, sum.Net)
	}
	if sum.Count != 3 {
		t.Errorf("summary count = %d, want 3", sum.Count)
	}
}

func TestStartNewDayBudgetWarnings(t *testing.T) {
	store, mgr, clock := newFixture(t)
	acc, _ := store.AddAccount(model.AccountInput{Name: "wallet"})
	today := civil.DateOf(clock.now())

	budget := func(category, amount string) {
		if _, err := store.AddBudget(model.BudgetInput{
			CategoryID: category, Amount: dec(amount),
			Year: today.Year, Month: int(today.Month),
		}); err != nil {
			t.Fatal(err)
		}
	}
	spend := func(category, amount string) {
		if _, err := store.AddTransaction(model.TransactionInput{
			Type: model.TxExpense, Amount: dec(amount), AccountID: acc.ID,
			CategoryID: category, Date: today,
		}); err != nil {
			t.Fatal(err)
		}
	}

	budget("food", "100")
	spend("food", "96") // critical: 96%
	budget("fun", "100")
	spend("fun", "85") // warning: 85%
	budget("transport", "100")
	spend("transport", "20") // fine
	budget("untouched", "100")

	clock.advanceDays(1)
	report, err := mgr.StartNewDay()
	if err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}

	got := map[string]Severity{}
	for _, w := range report.BudgetWarnings {
		got[w.Budget.CategoryID] = w.Severity
	}
	want := map[string]Severity{"food": SeverityCritical, "fun": SeverityWarning}
	if len(got) != len(want) {
		t.Fatalf("warnings = %v, want %v", got, want)
	}
	for cat, sev := range want {
		if got[cat] != sev {
			t.Errorf("category %s severity = %s, want %s", cat, got[cat], sev)
		}
	}
}

func TestStartNewDayImportantDates(t *testing.T) {
	_, mgr, clock := newFixture(t)
	tomorrow := civil.DateOf(clock.now()).AddDays(1)

	if err := mgr.AddImportantDate(ImportantDate{Name: "anniversary", Month: int(tomorrow.Month), Day: tomorrow.Day}); err != nil {
		t.Fatal(err)
	}
	if err := mgr.AddImportantDate(ImportantDate{Name: "someday", Month: 12, Day: 31}); err != nil {
		t.Fatal(err)
	}

	clock.advanceDays(1)
	report, err := mgr.StartNewDay()
	if err != nil {
		t.Fatalf("StartNewDay: %v", err)
	}
	if len(report.ImportantDates) != 1 || report.ImportantDates[0].Name != "anniversary" {
		t.Errorf("important dates = %v, want just the anniversary", report.ImportantDates)
	}
}

func TestTipIsDeterministic(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.July, Day: 9}
	first := TipForDate(d)
	for i := 0; i < 5; i++ {
		if got := TipForDate(d); got != first {
			t.Fatalf("tip changed between calls: %q vs %q", got, first)
		}
	}
	if first == "" {
		t.Error("empty tip")
	}
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }
