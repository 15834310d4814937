// Package syncer reconciles the local dataset with its cloud replica. Each
// collection is merged per record by last-write-wins on the record's
// UpdatedAt stamp; the document-level write itself carries no lock, so two
// devices racing resolve only at record granularity. That weak model is
// deliberate: the system favors availability over strict consistency.
package syncer

import (
	"time"

	"dario.cat/mergo"

	"github.com/avetrov/ledgerkeep/internal/model"
)

// Entity is the merge contract every synced record satisfies: a stable
// identifier and the update stamp used as the conflict-resolution key.
type Entity interface {
	EntityID() string
	LastUpdated() time.Time
}

// MergeByUpdatedAt merges two replicas of one collection. Records are keyed
// by id; when both sides carry the same id, the one with the strictly later
// UpdatedAt wins, ties keeping the local record. Records lacking a stamp
// (legacy categories) naturally lose to any stamped counterpart. Output
// order follows first appearance, local side first.
func MergeByUpdatedAt[T Entity](local, remote []T) []T {
	kept := make(map[string]T, len(local)+len(remote))
	var order []string

	consider := func(candidate T) {
		id := candidate.EntityID()
		if id == "" {
			return
		}
		existing, ok := kept[id]
		if !ok {
			kept[id] = candidate
			order = append(order, id)
			return
		}
		if candidate.LastUpdated().After(existing.LastUpdated()) {
			kept[id] = candidate
		}
	}

	for _, rec := range local {
		consider(rec)
	}
	for _, rec := range remote {
		consider(rec)
	}

	out := make([]T, 0, len(order))
	for _, id := range order {
		out = append(out, kept[id])
	}
	return out
}

// mergeSettings resolves the settings record: the older side is the base and
// the side with the later UpdatedAt overlays every field, zero values
// included, since a replica always writes the full record. Ties keep local.
func mergeSettings(local, remote model.Settings, now time.Time) model.Settings {
	base, overlay := remote, local
	if remote.UpdatedAt.After(local.UpdatedAt) {
		base, overlay = local, remote
	}
	// Overwriting with empty values is required: a flag the newer side
	// disabled must not be resurrected from the older record.
	if err := mergo.Merge(&base, overlay, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
		base = overlay
	}
	base.UpdatedAt = now
	return base
}

// MergeSnapshots merges two full replicas into the dataset that becomes both
// the new local state and the upload payload. Note suggestions are a local
// input-assistance cache and travel with the upload but are not merged per
// record; the local index is kept.
func MergeSnapshots(local, remote model.Snapshot, now time.Time) model.Snapshot {
	merged := model.Snapshot{
		Accounts:        MergeByUpdatedAt(local.Accounts, remote.Accounts),
		Categories:      MergeByUpdatedAt(local.Categories, remote.Categories),
		Transactions:    MergeByUpdatedAt(local.Transactions, remote.Transactions),
		Budgets:         MergeByUpdatedAt(local.Budgets, remote.Budgets),
		SavingsGoals:    MergeByUpdatedAt(local.SavingsGoals, remote.SavingsGoals),
		RecurringItems:  MergeByUpdatedAt(local.RecurringItems, remote.RecurringItems),
		NoteSuggestions: local.NoteSuggestions,
		Settings:        mergeSettings(local.Settings, remote.Settings, now),
		UpdatedAt:       now,
	}
	if merged.NoteSuggestions == nil {
		merged.NoteSuggestions = map[string][]string{}
	}
	return merged
}
