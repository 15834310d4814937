package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avetrov/ledgerkeep/internal/model"
)

var (
	// ErrNotFound is returned when an operation references an entity that is
	// not in the store.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateBudgetPeriod is returned when a budget for the same
	// (category, year, month) tuple already exists.
	ErrDuplicateBudgetPeriod = errors.New("budget for this category and period already exists")
)

// adjustEpsilon is the threshold below which a requested balance correction
// is treated as already correct and no adjust entry is written.
var adjustEpsilon = decimal.New(5, -3) // 0.005, half of the smallest cent

// maxNoteSuggestions caps the per-category note suggestion list.
const maxNoteSuggestions = 10

// Store is the single source of truth for all collections. All operations
// are synchronous and atomic with respect to each other; reads hand out
// copies so callers never alias internal state.
type Store struct {
	mu   sync.RWMutex
	snap model.Snapshot
	subs []chan Event
	now  func() time.Time
	log  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore creates an empty store with default settings.
func NewStore(opts ...Option) *Store {
	s := &Store{
		snap: model.EmptySnapshot(),
		now:  time.Now,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the full dataset.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// SetAll wholesale-replaces every collection and the settings. It does not
// recompute balances: the snapshot is assumed authoritative, including its
// derived fields. The local-restore path uses this.
func (s *Store) SetAll(snap model.Snapshot) {
	s.replaceAll(snap, EventReset)
}

// ApplySynced replaces state like SetAll but announces the write as
// EventSyncApplied, so the sync scheduler can tell its own install apart
// from a user mutation and not re-arm on it. Persistence listeners treat
// both kinds as dirty flags.
func (s *Store) ApplySynced(snap model.Snapshot) {
	s.replaceAll(snap, EventSyncApplied)
}

func (s *Store) replaceAll(snap model.Snapshot, kind EventKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	if s.snap.NoteSuggestions == nil {
		s.snap.NoteSuggestions = map[string][]string{}
	}
	s.publish(kind, "")
}

// ClearAllData resets every collection to empty and settings to defaults.
// Destructive; confirmation is the caller's concern.
func (s *Store) ClearAllData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = model.EmptySnapshot()
	s.log.Warn().Msg("all ledger data cleared")
	s.publish(EventReset, "")
}

// Settings returns the current settings value.
func (s *Store) Settings() model.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Settings
}

// SetSettings merges a partial settings patch and restamps its UpdatedAt.
func (s *Store) SetSettings(p model.SettingsPatch) model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Settings = s.snap.Settings.Apply(p, s.now())
	s.publish(EventSettings, "")
	return s.snap.Settings
}

// ---- accounts ----

// Accounts returns a copy of the account collection.
func (s *Store) Accounts() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Account(nil), s.snap.Accounts...)
}

// Account returns one account by id.
func (s *Store) Account(id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.snap.Accounts {
		if acc.ID == id {
			return acc, nil
		}
	}
	return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// AddAccount creates an account from input and appends it.
func (s *Store) AddAccount(in model.AccountInput) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := model.NewAccount(in, s.now())
	if !acc.Type.Valid() {
		return model.Account{}, fmt.Errorf("unknown account type %q", acc.Type)
	}
	s.snap.Accounts = append(s.snap.Accounts, acc)
	s.publish(EventAccounts, acc.ID)
	return acc, nil
}

// UpdateAccount applies a partial patch to an existing account.
func (s *Store) UpdateAccount(id string, p model.AccountPatch) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, acc := range s.snap.Accounts {
		if acc.ID == id {
			updated := acc.Apply(p, s.now())
			s.snap.Accounts[i] = updated
			s.publish(EventAccounts, id)
			return updated, nil
		}
	}
	return model.Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// DeleteAccount removes an account by id. Transactions referencing it are
// kept; replay simply skips their contribution from then on.
func (s *Store) DeleteAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, acc := range s.snap.Accounts {
		if acc.ID == id {
			s.snap.Accounts = append(s.snap.Accounts[:i], s.snap.Accounts[i+1:]...)
			s.publish(EventAccounts, id)
			return nil
		}
	}
	return fmt.Errorf("account %s: %w", id, ErrNotFound)
}

// AdjustAccountBalance forces an account's replayed balance to the target by
// appending a synthetic adjust transaction carrying the signed delta. When
// the delta is within epsilon the balance is treated as already correct and
// nothing is written. This is the only sanctioned way to set a balance to an
// arbitrary value: the correction stays in the ledger as an auditable entry.
func (s *Store) AdjustAccountBalance(accountID string, target decimal.Decimal) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var account *model.Account
	for i := range s.snap.Accounts {
		if s.snap.Accounts[i].ID == accountID {
			account = &s.snap.Accounts[i]
			break
		}
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNotFound)
	}

	current := replayedBalance(*account, s.snap.Transactions)
	delta := target.Sub(current)
	if delta.Abs().LessThan(adjustEpsilon) {
		return nil, nil
	}

	now := s.now()
	tx := model.NewTransaction(model.TransactionInput{
		Type:      model.TxAdjust,
		Amount:    delta,
		AccountID: accountID,
		Date:      civil.DateOf(now),
		Note:      "balance adjustment",
		Currency:  account.Currency,
	}, now)
	s.snap.Transactions = append(s.snap.Transactions, tx)
	s.recomputeLocked()
	s.log.Info().
		Str("account_id", accountID).
		Str("delta", delta.String()).
		Msg("balance adjusted")
	s.publish(EventTransactions, tx.ID)
	return &tx, nil
}

// ---- transactions ----

// Transactions returns a copy of the transaction log.
func (s *Store) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Transaction(nil), s.snap.Transactions...)
}

// AddTransaction appends a transaction and recomputes balances. Adding a
// transaction whose id is already present is a silent no-op returning the
// stored value: duplicate ids arise from legitimate sync replays, not from
// caller bugs.
func (s *Store) AddTransaction(in model.TransactionInput) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID != "" {
		for _, existing := range s.snap.Transactions {
			if existing.ID == in.ID {
				return existing, nil
			}
		}
	}

	tx := model.NewTransaction(in, s.now())
	if err := tx.Validate(); err != nil {
		return model.Transaction{}, err
	}
	s.snap.Transactions = append(s.snap.Transactions, tx)
	s.recomputeLocked()
	s.publish(EventTransactions, tx.ID)
	return tx, nil
}

// UpdateTransaction applies a partial patch and recomputes balances.
func (s *Store) UpdateTransaction(id string, p model.TransactionPatch) (model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.snap.Transactions {
		if tx.ID == id {
			updated := tx.Apply(p, s.now())
			if err := updated.Validate(); err != nil {
				return model.Transaction{}, err
			}
			s.snap.Transactions[i] = updated
			s.recomputeLocked()
			s.publish(EventTransactions, id)
			return updated, nil
		}
	}
	return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// DeleteTransaction removes a log entry and recomputes balances.
func (s *Store) DeleteTransaction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.snap.Transactions {
		if tx.ID == id {
			s.snap.Transactions = append(s.snap.Transactions[:i], s.snap.Transactions[i+1:]...)
			s.recomputeLocked()
			s.publish(EventTransactions, id)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// recomputeLocked rederives every account balance from the log.
// Callers must hold s.mu.
func (s *Store) recomputeLocked() {
	s.snap.Accounts = Recompute(s.snap.Accounts, s.snap.Transactions)
}

// ---- categories ----

// Categories returns a copy of the category collection.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.snap.Categories...)
}

// AddCategory creates a category from input and appends it.
func (s *Store) AddCategory(in model.CategoryInput) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat := model.NewCategory(in, s.now())
	s.snap.Categories = append(s.snap.Categories, cat)
	s.publish(EventCategories, cat.ID)
	return cat, nil
}

// UpdateCategory applies a partial patch to an existing category.
func (s *Store) UpdateCategory(id string, p model.CategoryPatch) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cat := range s.snap.Categories {
		if cat.ID == id {
			updated := cat.Apply(p, s.now())
			s.snap.Categories[i] = updated
			s.publish(EventCategories, id)
			return updated, nil
		}
	}
	return model.Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
}

// DeleteCategory removes a category. Transactions keep their categoryId and
// degrade to uncategorized at display time.
func (s *Store) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cat := range s.snap.Categories {
		if cat.ID == id {
			s.snap.Categories = append(s.snap.Categories[:i], s.snap.Categories[i+1:]...)
			s.publish(EventCategories, id)
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, ErrNotFound)
}

// ---- budgets ----

// Budgets returns a copy of the budget collection.
func (s *Store) Budgets() []model.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Budget(nil), s.snap.Budgets...)
}

// AddBudget creates a budget, rejecting a duplicate (category, year, month)
// tuple and non-positive amounts.
func (s *Store) AddBudget(in model.BudgetInput) (model.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := model.NewBudget(in, s.now())
	if !b.Amount.IsPositive() {
		return model.Budget{}, fmt.Errorf("budget amount must be positive, got %s", b.Amount)
	}
	for _, existing := range s.snap.Budgets {
		if existing.SamePeriod(b) {
			return model.Budget{}, fmt.Errorf("category %s %d-%02d: %w",
				b.CategoryID, b.Year, b.Month, ErrDuplicateBudgetPeriod)
		}
	}
	s.snap.Budgets = append(s.snap.Budgets, b)
	s.publish(EventBudgets, b.ID)
	return b, nil
}

// UpdateBudget applies a partial patch, re-checking period uniqueness when
// the patch moves the budget to another (category, year, month) tuple.
func (s *Store) UpdateBudget(id string, p model.BudgetPatch) (model.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.snap.Budgets {
		if b.ID == id {
			updated := b.Apply(p, s.now())
			if !updated.Amount.IsPositive() {
				return model.Budget{}, fmt.Errorf("budget amount must be positive, got %s", updated.Amount)
			}
			for j, other := range s.snap.Budgets {
				if j != i && other.SamePeriod(updated) {
					return model.Budget{}, fmt.Errorf("category %s %d-%02d: %w",
						updated.CategoryID, updated.Year, updated.Month, ErrDuplicateBudgetPeriod)
				}
			}
			s.snap.Budgets[i] = updated
			s.publish(EventBudgets, id)
			return updated, nil
		}
	}
	return model.Budget{}, fmt.Errorf("budget %s: %w", id, ErrNotFound)
}

// DeleteBudget removes a budget by id.
func (s *Store) DeleteBudget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.snap.Budgets {
		if b.ID == id {
			s.snap.Budgets = append(s.snap.Budgets[:i], s.snap.Budgets[i+1:]...)
			s.publish(EventBudgets, id)
			return nil
		}
	}
	return fmt.Errorf("budget %s: %w", id, ErrNotFound)
}

// ---- savings goals ----

// SavingsGoals returns a copy of the goal collection.
func (s *Store) SavingsGoals() []model.SavingsGoal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SavingsGoal(nil), s.snap.SavingsGoals...)
}

// AddSavingsGoal creates a savings goal from input and appends it.
func (s *Store) AddSavingsGoal(in model.SavingsGoalInput) (model.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := model.NewSavingsGoal(in, s.now())
	s.snap.SavingsGoals = append(s.snap.SavingsGoals, g)
	s.publish(EventSavingsGoals, g.ID)
	return g, nil
}

// UpdateSavingsGoal applies a partial patch to an existing goal.
func (s *Store) UpdateSavingsGoal(id string, p model.SavingsGoalPatch) (model.SavingsGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.snap.SavingsGoals {
		if g.ID == id {
			updated := g.Apply(p, s.now())
			s.snap.SavingsGoals[i] = updated
			s.publish(EventSavingsGoals, id)
			return updated, nil
		}
	}
	return model.SavingsGoal{}, fmt.Errorf("savings goal %s: %w", id, ErrNotFound)
}

// DeleteSavingsGoal removes a goal by id.
func (s *Store) DeleteSavingsGoal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.snap.SavingsGoals {
		if g.ID == id {
			s.snap.SavingsGoals = append(s.snap.SavingsGoals[:i], s.snap.SavingsGoals[i+1:]...)
			s.publish(EventSavingsGoals, id)
			return nil
		}
	}
	return fmt.Errorf("savings goal %s: %w", id, ErrNotFound)
}

// ---- recurring items ----

// RecurringItems returns a copy of the recurring item collection.
func (s *Store) RecurringItems() []model.RecurringItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.RecurringItem(nil), s.snap.RecurringItems...)
}

// AddRecurringItem creates a recurring item from input and appends it.
func (s *Store) AddRecurringItem(in model.RecurringItemInput) (model.RecurringItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := model.NewRecurringItem(in, s.now())
	s.snap.RecurringItems = append(s.snap.RecurringItems, r)
	s.publish(EventRecurring, r.ID)
	return r, nil
}

// UpdateRecurringItem applies a partial patch to an existing item.
func (s *Store) UpdateRecurringItem(id string, p model.RecurringItemPatch) (model.RecurringItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.snap.RecurringItems {
		if r.ID == id {
			updated := r.Apply(p, s.now())
			s.snap.RecurringItems[i] = updated
			s.publish(EventRecurring, id)
			return updated, nil
		}
	}
	return model.RecurringItem{}, fmt.Errorf("recurring item %s: %w", id, ErrNotFound)
}

// DeleteRecurringItem removes an item by id.
func (s *Store) DeleteRecurringItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.snap.RecurringItems {
		if r.ID == id {
			s.snap.RecurringItems = append(s.snap.RecurringItems[:i], s.snap.RecurringItems[i+1:]...)
			s.publish(EventRecurring, id)
			return nil
		}
	}
	return fmt.Errorf("recurring item %s: %w", id, ErrNotFound)
}

// ---- note suggestions ----

// NoteSuggestions returns the remembered notes for a category, most recent
// first.
func (s *Store) NoteSuggestions(categoryID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.NoteSuggestions[categoryID]...)
}

// AddNoteSuggestion remembers a note for a category. Empty and already-known
// notes are ignored; the list keeps the 10 most recent entries.
func (s *Store) AddNoteSuggestion(categoryID, note string) {
	if note == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.snap.NoteSuggestions[categoryID]
	for _, n := range existing {
		if n == note {
			return
		}
	}
	notes := append([]string{note}, existing...)
	if len(notes) > maxNoteSuggestions {
		notes = notes[:maxNoteSuggestions]
	}
	s.snap.NoteSuggestions[categoryID] = notes
	s.publish(EventNotes, categoryID)
}

// DeleteNoteSuggestion forgets one remembered note for a category.
func (s *Store) DeleteNoteSuggestion(categoryID, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.snap.NoteSuggestions[categoryID]
	for i, n := range existing {
		if n == note {
			s.snap.NoteSuggestions[categoryID] = append(existing[:i:i], existing[i+1:]...)
			s.publish(EventNotes, categoryID)
			return
		}
	}
}
