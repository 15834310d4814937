// Package handlers exposes the ledger core over HTTP for the UI layer. The
// handlers are thin: decode, call the store or manager, map errors, encode.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/avetrov/ledgerkeep/internal/api/middleware"
	"github.com/avetrov/ledgerkeep/internal/dayman"
	"github.com/avetrov/ledgerkeep/internal/ledger"
	"github.com/avetrov/ledgerkeep/internal/model"
	"github.com/avetrov/ledgerkeep/internal/rates"
	"github.com/avetrov/ledgerkeep/internal/syncer"
)

// LedgerHandler serves the full API surface. Engine and rates may be nil
// when cloud sync or the rate provider are not configured; the affected
// endpoints then answer 503.
type LedgerHandler struct {
	store  *ledger.Store
	day    *dayman.Manager
	engine *syncer.Engine
	rates  rates.Provider
	log    zerolog.Logger
}

// New wires a handler over the core components.
func New(store *ledger.Store, day *dayman.Manager, engine *syncer.Engine, provider rates.Provider, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{store: store, day: day, engine: engine, rates: provider, log: log}
}

// Routes returns the API mux.
func (h *LedgerHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/snapshot", h.getSnapshot)
	mux.HandleFunc("POST /api/snapshot", h.restoreSnapshot)
	mux.HandleFunc("DELETE /api/data", h.clearData)

	mux.HandleFunc("GET /api/accounts", h.listAccounts)
	mux.HandleFunc("POST /api/accounts", h.createAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", h.updateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", h.deleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/adjust", h.adjustAccount)

	mux.HandleFunc("GET /api/transactions", h.listTransactions)
	mux.HandleFunc("POST /api/transactions", h.createTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", h.updateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.deleteTransaction)

	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("POST /api/categories", h.createCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.updateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.deleteCategory)

	mux.HandleFunc("GET /api/budgets", h.listBudgets)
	mux.HandleFunc("POST /api/budgets", h.createBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", h.updateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", h.deleteBudget)

	mux.HandleFunc("GET /api/goals", h.listGoals)
	mux.HandleFunc("POST /api/goals", h.createGoal)
	mux.HandleFunc("PUT /api/goals/{id}", h.updateGoal)
	mux.HandleFunc("DELETE /api/goals/{id}", h.deleteGoal)

	mux.HandleFunc("GET /api/recurring", h.listRecurring)
	mux.HandleFunc("POST /api/recurring", h.createRecurring)
	mux.HandleFunc("PUT /api/recurring/{id}", h.updateRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", h.deleteRecurring)

	mux.HandleFunc("GET /api/notes/{categoryId}", h.listNotes)
	mux.HandleFunc("POST /api/notes/{categoryId}", h.addNote)
	mux.HandleFunc("DELETE /api/notes/{categoryId}", h.deleteNote)

	mux.HandleFunc("GET /api/settings", h.getSettings)
	mux.HandleFunc("PUT /api/settings", h.updateSettings)

	mux.HandleFunc("GET /api/day", h.getDay)
	mux.HandleFunc("POST /api/day/rollover", h.rollover)
	mux.HandleFunc("GET /api/day/important-dates", h.listImportantDates)
	mux.HandleFunc("POST /api/day/important-dates", h.addImportantDate)
	mux.HandleFunc("DELETE /api/day/important-dates/{index}", h.deleteImportantDate)

	mux.HandleFunc("POST /api/sync", h.sync)
	mux.HandleFunc("POST /api/sync/pull", h.syncPull)
	mux.HandleFunc("POST /api/sync/push", h.syncPush)

	mux.HandleFunc("GET /api/rates", h.getRates)

	return mux
}

// decode reads the request body into a value of type T.
func decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, fmt.Errorf("invalid request body: %w", err)
	}
	return v, nil
}

// writeCoreError maps core errors onto HTTP statuses.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateBudgetPeriod):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrInvalidTransaction):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dayman.ErrAlreadyToday):
		middleware.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, syncer.ErrNotAuthenticated):
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// ---- snapshot ----

func (h *LedgerHandler) getSnapshot(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *LedgerHandler) restoreSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := decode[model.Snapshot](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.store.SetAll(snap)
	middleware.WriteJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *LedgerHandler) clearData(w http.ResponseWriter, _ *http.Request) {
	h.store.ClearAllData()
	w.WriteHeader(http.StatusNoContent)
}

// ---- accounts ----

func (h *LedgerHandler) listAccounts(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Accounts())
}

func (h *LedgerHandler) createAccount(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.AccountInput](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := h.store.AddAccount(in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acc)
}

func (h *LedgerHandler) updateAccount(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.AccountPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	acc, err := h.store.UpdateAccount(r.PathValue("id"), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acc)
}

func (h *LedgerHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAccount(r.PathValue("id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) adjustAccount(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		Target decimal.Decimal `json:"target"`
	}](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.store.AdjustAccountBalance(r.PathValue("id"), req.Target)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"adjusted":    tx != nil,
		"transaction": tx,
	})
}

// ---- transactions ----

func (h *LedgerHandler) listTransactions(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Transactions())
}

func (h *LedgerHandler) createTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.TransactionInput](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.store.AddTransaction(in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	// Feed the note suggestion index from real usage.
	if tx.CategoryID != "" && tx.Note != "" {
		h.store.AddNoteSuggestion(tx.CategoryID, tx.Note)
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

func (h *LedgerHandler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.TransactionPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.store.UpdateTransaction(r.PathValue("id"), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

func (h *LedgerHandler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTransaction(r.PathValue("id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- categories ----

func (h *LedgerHandler) listCategories(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Categories())
}

func (h *LedgerHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.CategoryInput](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	cat, err := h.store.AddCategory(in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, cat)
}

func (h *LedgerHandler) updateCategory(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.CategoryPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	cat, err := h.store.UpdateCategory(r.PathValue("id"), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cat)
}

func (h *LedgerHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCategory(r.PathValue("id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- budgets ----

func (h *LedgerHandler) listBudgets(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Budgets())
}

func (h *LedgerHandler) createBudget(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.BudgetInput](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.store.AddBudget(in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, b)
}

func (h *LedgerHandler) updateBudget(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.BudgetPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.store.UpdateBudget(r.PathValue("id"), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

func (h *LedgerHandler) deleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteBudget(r.PathValue("id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- savings goals ----

func (h *LedgerHandler) listGoals(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.SavingsGoals())
}

func (h *LedgerHandler) createGoal(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.SavingsGoalInput](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := h.store.AddSavingsGoal(in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, g)
}

func (h *LedgerHandler) updateGoal(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.SavingsGoalPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := h.store.UpdateSavingsGoal(r.PathValue("id"), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, g)
}

func (h *LedgerHandler) deleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSavingsGoal(r.PathValue("id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- recurring items ----

func (h *LedgerHandler) listRecurring(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.RecurringItems())
}

func (h *LedgerHandler) createRecurring(w http.ResponseWriter, r *http.Request) {
	in, err := decode[model.RecurringItemInput](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.store.AddRecurringItem(in)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, item)
}

func (h *LedgerHandler) updateRecurring(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.RecurringItemPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.store.UpdateRecurringItem(r.PathValue("id"), patch)
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, item)
}

func (h *LedgerHandler) deleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRecurringItem(r.PathValue("id")); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- note suggestions ----

func (h *LedgerHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.NoteSuggestions(r.PathValue("categoryId")))
}

func (h *LedgerHandler) addNote(w http.ResponseWriter, r *http.Request) {
	req, err := decode[struct {
		Note string `json:"note"`
	}](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.store.AddNoteSuggestion(r.PathValue("categoryId"), req.Note)
	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) deleteNote(w http.ResponseWriter, r *http.Request) {
	h.store.DeleteNoteSuggestion(r.PathValue("categoryId"), r.URL.Query().Get("note"))
	w.WriteHeader(http.StatusNoContent)
}

// ---- settings ----

func (h *LedgerHandler) getSettings(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Settings())
}

func (h *LedgerHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	patch, err := decode[model.SettingsPatch](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.store.SetSettings(patch))
}

// ---- day manager ----

func (h *LedgerHandler) getDay(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"currentDate": h.day.CurrentDate(),
		"tip":         h.day.TodayTip(),
	})
}

func (h *LedgerHandler) rollover(w http.ResponseWriter, _ *http.Request) {
	report, err := h.day.StartNewDay()
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}

func (h *LedgerHandler) listImportantDates(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.day.ImportantDates())
}

func (h *LedgerHandler) addImportantDate(w http.ResponseWriter, r *http.Request) {
	d, err := decode[dayman.ImportantDate](r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.day.AddImportantDate(d); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *LedgerHandler) deleteImportantDate(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	if err := h.day.DeleteImportantDate(index); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- sync ----

func (h *LedgerHandler) sync(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "cloud sync is not configured")
		return
	}
	res, err := h.engine.Sync(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"remoteExisted": res.RemoteExisted,
		"backup":        res.BackupName,
		"prunedBackups": res.PrunedBackups,
	})
}

func (h *LedgerHandler) syncPull(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "cloud sync is not configured")
		return
	}
	found, err := h.engine.PullToLocal(r.Context())
	if err != nil {
		writeCoreError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"remoteExisted": found})
}

func (h *LedgerHandler) syncPush(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "cloud sync is not configured")
		return
	}
	if err := h.engine.PushLocal(r.Context()); err != nil {
		writeCoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- exchange rates ----

func (h *LedgerHandler) getRates(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "rate provider is not configured")
		return
	}
	mapping, err := h.rates.Rates(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mapping)
}
