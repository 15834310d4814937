package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/avetrov/ledgerkeep/internal/gcsdoc"
	"github.com/avetrov/ledgerkeep/internal/ledger"
	"github.com/avetrov/ledgerkeep/internal/localstore"
	"github.com/avetrov/ledgerkeep/internal/logger"
	"github.com/avetrov/ledgerkeep/internal/model"
	"github.com/avetrov/ledgerkeep/internal/syncer"
)

const snapshotKey = "snapshot"

// One-shot sync between the local snapshot and the cloud copy. Useful for
// cron jobs and for recovering a machine from the remote state.
func main() {
	log := logger.New()

	dataDir := flag.String("data-dir", envOr("LEDGERKEEP_DATA_DIR", "data"), "directory holding the local snapshot")
	bucket := flag.String("bucket", os.Getenv("LEDGERKEEP_BUCKET"), "GCS bucket name (required)")
	userID := flag.String("user", os.Getenv("LEDGERKEEP_USER"), "user id owning the cloud document (required)")
	pull := flag.Bool("pull", false, "replace the local snapshot with the remote one instead of merging")
	push := flag.Bool("push", false, "overwrite the remote snapshot with the local one instead of merging")
	dryRun := flag.Bool("dry-run", false, "preview the merge without writing anywhere")
	flag.Parse()

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required")
	}
	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *pull && *push {
		log.Fatal().Msg("Error: --pull and --push are mutually exclusive")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	local, err := localstore.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dataDir).Msg("Failed to open local store")
	}

	store := ledger.NewStore(ledger.WithLogger(logger.Component(log, "ledger")))
	var snap model.Snapshot
	found, err := local.Load(snapshotKey, &snap)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load local snapshot")
	}
	if found {
		store.SetAll(snap)
	}

	docs, err := gcsdoc.New(ctx, *bucket)
	if err != nil {
		log.Fatal().Err(err).Str("bucket", *bucket).Msg("Failed to create GCS document store")
	}
	defer docs.Close()

	engine := syncer.NewEngine(store, docs, *userID,
		syncer.WithLogger(logger.Component(log, "syncer")))

	if *dryRun {
		remote, err := docs.GetSnapshot(ctx, *userID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to fetch remote snapshot")
		}
		merged := store.Snapshot()
		if remote != nil {
			merged = syncer.MergeSnapshots(merged, *remote, time.Now())
		}
		out, err := json.MarshalIndent(merged, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode merged snapshot")
		}
		fmt.Println(string(out))
		return
	}

	switch {
	case *pull:
		found, err := engine.PullToLocal(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Pull failed")
		}
		if !found {
			log.Fatal().Msg("No remote snapshot to pull")
		}
	case *push:
		if err := engine.PushLocal(ctx); err != nil {
			log.Fatal().Err(err).Msg("Push failed")
		}
	default:
		res, err := engine.Sync(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Sync failed")
		}
		log.Info().
			Bool("remote_existed", res.RemoteExisted).
			Str("backup", res.BackupName).
			Int("pruned_backups", res.PrunedBackups).
			Msg("Sync finished")
	}

	if err := local.Save(snapshotKey, store.Snapshot()); err != nil {
		log.Fatal().Err(err).Msg("Failed to write local snapshot")
	}

	fmt.Println("Sync completed successfully.")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
