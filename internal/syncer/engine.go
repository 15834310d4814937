package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/avetrov/ledgerkeep/internal/ledger"
	"github.com/avetrov/ledgerkeep/internal/model"
)

// ErrNotAuthenticated is returned when a sync is attempted without a signed
// in user.
var ErrNotAuthenticated = errors.New("no authenticated user")

// backupRetention is how many timestamp-named backup snapshots survive
// pruning.
const backupRetention = 2

// backupNameFormat produces names that sort chronologically as strings.
const backupNameFormat = "20060102150405"

// Result describes one completed sync cycle.
type Result struct {
	Merged        model.Snapshot
	RemoteExisted bool
	BackupName    string
	PrunedBackups int
}

// Engine runs the pull-merge-push cycle between the ledger store and the
// remote document store.
type Engine struct {
	store  *ledger.Store
	docs   DocStore
	userID string
	now    func() time.Time
	log    zerolog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the engine's time source, mainly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger.
func WithLogger(log zerolog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// NewEngine wires a reconciliation engine for one user. userID is the stable
// opaque identifier from the authentication boundary; how it was established
// is not the engine's concern.
func NewEngine(store *ledger.Store, docs DocStore, userID string, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		docs:   docs,
		userID: userID,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync performs one full reconciliation cycle: pull the remote document,
// rotate it into a backup slot, merge per record, install the merged result
// locally, then upload it. The upload always happens after a merge, since a
// local-only change needs propagating even when every record matched. Any
// remote failure before the local install aborts the cycle with local state
// untouched; an upload failure after it is tolerated, the next cycle
// re-uploads.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	if e.userID == "" {
		return nil, ErrNotAuthenticated
	}

	remote, err := e.docs.GetSnapshot(ctx, e.userID)
	if err != nil {
		return nil, fmt.Errorf("fetch remote snapshot: %w", err)
	}

	res := &Result{}
	if remote != nil {
		res.RemoteExisted = true
		res.BackupName = e.now().UTC().Format(backupNameFormat)
		if err := e.docs.PutBackup(ctx, e.userID, res.BackupName, *remote); err != nil {
			return nil, fmt.Errorf("write backup: %w", err)
		}
		// Pruning is additive housekeeping; a failure here must not fail the
		// sync.
		pruned, err := e.pruneBackups(ctx)
		if err != nil {
			e.log.Warn().Err(err).Msg("backup pruning failed")
		}
		res.PrunedBackups = pruned
	}

	local := e.store.Snapshot()
	remoteSnap := model.EmptySnapshot()
	if remote != nil {
		remoteSnap = *remote
	}
	merged := MergeSnapshots(local, remoteSnap, e.now())

	e.store.ApplySynced(merged)
	res.Merged = merged

	if err := e.docs.PutSnapshot(ctx, e.userID, merged); err != nil {
		return res, fmt.Errorf("upload merged snapshot: %w", err)
	}

	e.log.Info().
		Int("accounts", len(merged.Accounts)).
		Int("transactions", len(merged.Transactions)).
		Bool("remote_existed", res.RemoteExisted).
		Msg("sync cycle complete")
	return res, nil
}

// pruneBackups deletes every backup beyond the newest backupRetention,
// newest-first by name (names are timestamps, so lexicographic order is
// chronological).
func (e *Engine) pruneBackups(ctx context.Context) (int, error) {
	names, err := e.docs.ListBackups(ctx, e.userID)
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	pruned := 0
	for _, name := range names[min(len(names), backupRetention):] {
		if err := e.docs.DeleteBackup(ctx, e.userID, name); err != nil {
			return pruned, fmt.Errorf("delete backup %s: %w", name, err)
		}
		pruned++
	}
	return pruned, nil
}

// PullToLocal replaces local state with the remote document, if one exists.
// Used on login before the first merge cycle.
func (e *Engine) PullToLocal(ctx context.Context) (bool, error) {
	if e.userID == "" {
		return false, ErrNotAuthenticated
	}
	remote, err := e.docs.GetSnapshot(ctx, e.userID)
	if err != nil {
		return false, fmt.Errorf("fetch remote snapshot: %w", err)
	}
	if remote == nil {
		return false, nil
	}
	e.store.ApplySynced(*remote)
	return true, nil
}

// PushLocal overwrites the remote document with local state, no merge. The
// destructive direction of a manual sync.
func (e *Engine) PushLocal(ctx context.Context) error {
	if e.userID == "" {
		return ErrNotAuthenticated
	}
	snap := e.store.Snapshot()
	now := e.now()
	snap.Settings.UpdatedAt = now
	snap.UpdatedAt = now
	if err := e.docs.PutSnapshot(ctx, e.userID, snap); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	return nil
}
