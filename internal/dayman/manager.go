// Package dayman owns the application's logical date: the "today" the user
// sees, advanced explicitly rather than by the wall clock. Advancing it runs
// the rollover evaluations: yesterday's summary, recurring items, budget
// thresholds, the daily tip, and important-date reminders.
package dayman

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avetrov/ledgerkeep/internal/ledger"
	"github.com/avetrov/ledgerkeep/internal/localstore"
	"github.com/avetrov/ledgerkeep/internal/model"
)

// ErrAlreadyToday is returned when rollover is requested but the logical
// date already matches the wall-clock day.
var ErrAlreadyToday = errors.New("logical date is already today")

// stateKey is the local storage key for the day manager's own state.
const stateKey = "day"

var (
	warningThreshold  = decimal.New(80, -2) // 0.80
	criticalThreshold = decimal.New(95, -2) // 0.95
)

// Severity of a budget warning.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ImportantDate is an annual reminder keyed by month and day.
type ImportantDate struct {
	Name  string `json:"name"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
}

// DaySummary aggregates one calendar day's transactions.
type DaySummary struct {
	Date    civil.Date      `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

// DueRecurring is one recurring item whose schedule matched the new day.
// Posted is set when the item was auto-processed; SkipReason explains an
// auto-post that failed validation and was skipped.
type DueRecurring struct {
	Item       model.RecurringItem `json:"item"`
	Posted     bool                `json:"posted"`
	SkipReason string              `json:"skipReason,omitempty"`
}

// BudgetWarning reports a budget whose month-to-date spend crossed a
// threshold.
type BudgetWarning struct {
	Budget   model.Budget    `json:"budget"`
	Spent    decimal.Decimal `json:"spent"`
	Ratio    decimal.Decimal `json:"ratio"`
	Severity Severity        `json:"severity"`
}

// RolloverReport is everything a rollover produced, in evaluation order.
// All of it is informational; none of it can fail the transition.
type RolloverReport struct {
	Date           civil.Date      `json:"date"`
	Yesterday      DaySummary      `json:"yesterday"`
	DueItems       []DueRecurring  `json:"dueItems"`
	BudgetWarnings []BudgetWarning `json:"budgetWarnings"`
	Tip            string          `json:"tip"`
	ImportantDates []ImportantDate `json:"importantDates"`
}

type dayState struct {
	CurrentDate    civil.Date      `json:"currentDate"`
	ImportantDates []ImportantDate `json:"importantDates"`
}

// Manager is the rollover state machine. It reads and appends to the ledger
// store but owns only the logical date and the reminder list.
type Manager struct {
	mu    sync.Mutex
	store *ledger.Store
	local *localstore.Store
	now   func() time.Time
	log   zerolog.Logger
	state dayState
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// New loads the persisted logical date, or initializes it to today on first
// run. local may be nil, in which case state lives only in memory.
func New(store *ledger.Store, local *localstore.Store, opts ...Option) (*Manager, error) {
	m := &Manager{
		store: store,
		local: local,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	loaded := false
	if m.local != nil {
		found, err := m.local.Load(stateKey, &m.state)
		if err != nil {
			return nil, fmt.Errorf("load day state: %w", err)
		}
		loaded = found
	}
	if !loaded || !m.state.CurrentDate.IsValid() {
		m.state.CurrentDate = civil.DateOf(m.now())
		if err := m.persist(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) persist() error {
	if m.local == nil {
		return nil
	}
	if err := m.local.Save(stateKey, m.state); err != nil {
		return fmt.Errorf("persist day state: %w", err)
	}
	return nil
}

// CurrentDate returns the logical date.
func (m *Manager) CurrentDate() civil.Date {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CurrentDate
}

// TodayTip returns the deterministic tip for the current logical date.
func (m *Manager) TodayTip() string {
	return TipForDate(m.CurrentDate())
}

// ImportantDates returns a copy of the reminder list.
func (m *Manager) ImportantDates() []ImportantDate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ImportantDate(nil), m.state.ImportantDates...)
}

// AddImportantDate appends an annual reminder.
func (m *Manager) AddImportantDate(d ImportantDate) error {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("invalid reminder date %d-%d", d.Month, d.Day)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.ImportantDates = append(m.state.ImportantDates, d)
	return m.persist()
}

// DeleteImportantDate removes the reminder at index.
func (m *Manager) DeleteImportantDate(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.state.ImportantDates) {
		return fmt.Errorf("reminder index %d out of range", index)
	}
	m.state.ImportantDates = append(m.state.ImportantDates[:index], m.state.ImportantDates[index+1:]...)
	return m.persist()
}

// StartNewDay advances the logical date to the wall-clock day and runs the
// rollover evaluations. It is rejected when the logical date already equals
// today, so calling it twice on the same real day performs the transition
// once. Evaluation steps only produce the report; a single failed auto-post
// is skipped and flagged, never aborting the rest.
func (m *Manager) StartNewDay() (*RolloverReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := civil.DateOf(m.now())
	if today == m.state.CurrentDate {
		return nil, ErrAlreadyToday
	}
	if today.Before(m.state.CurrentDate) {
		return nil, fmt.Errorf("wall clock day %s is behind the logical date %s", today, m.state.CurrentDate)
	}

	m.state.CurrentDate = today
	if err := m.persist(); err != nil {
		return nil, err
	}

	report := &RolloverReport{Date: today}
	report.Yesterday = m.summarizeDay(today.AddDays(-1))
	report.DueItems = m.evaluateRecurring(today)
	report.BudgetWarnings = m.checkBudgets(today)
	report.Tip = TipForDate(today)
	report.ImportantDates = m.matchImportantDates(today)

	m.log.Info().
		Str("date", today.String()).
		Int("due_items", len(report.DueItems)).
		Int("budget_warnings", len(report.BudgetWarnings)).
		Msg("day rollover complete")
	return report, nil
}

func (m *Manager) summarizeDay(d civil.Date) DaySummary {
	sum := DaySummary{Date: d, Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
	for _, tx := range m.store.Transactions() {
		if tx.Date != d {
			continue
		}
		sum.Count++
		switch tx.Type {
		case model.TxIncome:
			sum.Income = sum.Income.Add(tx.Amount)
		case model.TxExpense:
			sum.Expense = sum.Expense.Add(tx.Amount)
		}
	}
	sum.Net = sum.Income.Sub(sum.Expense)
	return sum
}

func (m *Manager) evaluateRecurring(today civil.Date) []DueRecurring {
	var due []DueRecurring
	for _, item := range m.store.RecurringItems() {
		if !item.DueOn(today) {
			continue
		}
		entry := DueRecurring{Item: item}
		if item.AutoProcess {
			_, err := m.store.AddTransaction(model.TransactionInput{
				Type:        item.Type,
				Amount:      item.Amount,
				AccountID:   item.AccountID,
				ToAccountID: item.ToAccountID,
				CategoryID:  item.CategoryID,
				Date:        today,
				Note:        item.Note,
			})
			if err != nil {
				entry.SkipReason = err.Error()
				m.log.Warn().
					Err(err).
					Str("item", item.Name).
					Msg("auto-post skipped")
			} else {
				entry.Posted = true
			}
		}
		due = append(due, entry)
	}
	return due
}

func (m *Manager) checkBudgets(today civil.Date) []BudgetWarning {
	snap := m.store.Snapshot()

	spentByCategory := map[string]decimal.Decimal{}
	for _, tx := range snap.Transactions {
		if tx.Type != model.TxExpense {
			continue
		}
		if tx.Date.Year != today.Year || tx.Date.Month != today.Month {
			continue
		}
		spentByCategory[tx.CategoryID] = spentByCategory[tx.CategoryID].Add(tx.Amount)
	}

	var warnings []BudgetWarning
	for _, budget := range snap.Budgets {
		spent, ok := spentByCategory[budget.CategoryID]
		if !ok || !budget.Amount.IsPositive() {
			continue
		}
		ratio := spent.Div(budget.Amount)
		switch {
		case ratio.GreaterThanOrEqual(criticalThreshold):
			warnings = append(warnings, BudgetWarning{Budget: budget, Spent: spent, Ratio: ratio, Severity: SeverityCritical})
		case ratio.GreaterThanOrEqual(warningThreshold):
			warnings = append(warnings, BudgetWarning{Budget: budget, Spent: spent, Ratio: ratio, Severity: SeverityWarning})
		}
	}
	return warnings
}

func (m *Manager) matchImportantDates(today civil.Date) []ImportantDate {
	var matched []ImportantDate
	for _, d := range m.state.ImportantDates {
		if d.Month == int(today.Month) && d.Day == today.Day {
			matched = append(matched, d)
		}
	}
	return matched
}
