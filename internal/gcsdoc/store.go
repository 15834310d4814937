// Package gcsdoc implements the remote document store on Google Cloud
// Storage: one primary snapshot object per user plus timestamp-named backup
// objects under a backups/ prefix. It assumes Application Default
// Credentials are configured.
package gcsdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/avetrov/ledgerkeep/internal/model"
)

// writeTimeout bounds a single object write.
const writeTimeout = 2 * time.Minute

// Store is a syncer.DocStore backed by a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a storage client against the given bucket.
func New(ctx context.Context, bucket string) (*Store, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func snapshotObject(userID string) string {
	return fmt.Sprintf("users/%s/snapshot.json", userID)
}

func backupPrefix(userID string) string {
	return fmt.Sprintf("users/%s/backups/", userID)
}

func backupObject(userID, name string) string {
	return backupPrefix(userID) + name + ".json"
}

// GetSnapshot fetches the user's primary document, or (nil, nil) when the
// user has never uploaded one.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (*model.Snapshot, error) {
	r, err := s.client.Bucket(s.bucket).Object(snapshotObject(userID)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot object: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// PutSnapshot overwrites the user's primary document.
func (s *Store) PutSnapshot(ctx context.Context, userID string, snap model.Snapshot) error {
	return s.writeObject(ctx, snapshotObject(userID), snap)
}

// PutBackup stores a snapshot under a backup slot name.
func (s *Store) PutBackup(ctx context.Context, userID, name string, snap model.Snapshot) error {
	return s.writeObject(ctx, backupObject(userID, name), snap)
}

func (s *Store) writeObject(ctx context.Context, object string, snap model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize object %s: %w", object, err)
	}
	return nil
}

// ListBackups returns the user's backup slot names.
func (s *Store) ListBackups(ctx context.Context, userID string) ([]string, error) {
	prefix := backupPrefix(userID)
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list backups: %w", err)
		}
		name := attrs.Name[len(prefix):]
		if len(name) > len(".json") {
			names = append(names, name[:len(name)-len(".json")])
		}
	}
	return names, nil
}

// DeleteBackup removes one backup slot.
func (s *Store) DeleteBackup(ctx context.Context, userID, name string) error {
	err := s.client.Bucket(s.bucket).Object(backupObject(userID, name)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete backup %s: %w", name, err)
	}
	return nil
}
