package syncer

import (
	"context"

	"github.com/avetrov/ledgerkeep/internal/model"
)

// DocStore is the remote document store the engine reconciles against: one
// primary snapshot per user plus a set of timestamp-named backup snapshots.
// Implementations must treat every method as fallible remote I/O; the engine
// handles failures as recoverable and retries on a later cycle.
type DocStore interface {
	// GetSnapshot fetches the user's primary document. It returns (nil, nil)
	// when no document exists yet.
	GetSnapshot(ctx context.Context, userID string) (*model.Snapshot, error)

	// PutSnapshot overwrites the user's primary document.
	PutSnapshot(ctx context.Context, userID string, snap model.Snapshot) error

	// PutBackup stores a snapshot under a timestamp-derived backup name.
	PutBackup(ctx context.Context, userID, name string, snap model.Snapshot) error

	// ListBackups returns the user's backup names in any order.
	ListBackups(ctx context.Context, userID string) ([]string, error)

	// DeleteBackup removes one backup by name.
	DeleteBackup(ctx context.Context, userID, name string) error
}
