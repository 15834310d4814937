package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avetrov/ledgerkeep/internal/api/handlers"
	"github.com/avetrov/ledgerkeep/internal/api/middleware"
	"github.com/avetrov/ledgerkeep/internal/dayman"
	"github.com/avetrov/ledgerkeep/internal/gcsdoc"
	"github.com/avetrov/ledgerkeep/internal/ledger"
	"github.com/avetrov/ledgerkeep/internal/localstore"
	"github.com/avetrov/ledgerkeep/internal/logger"
	"github.com/avetrov/ledgerkeep/internal/model"
	"github.com/avetrov/ledgerkeep/internal/rates"
	"github.com/avetrov/ledgerkeep/internal/seed"
	"github.com/avetrov/ledgerkeep/internal/syncer"
)

const snapshotKey = "snapshot"

func main() {
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		dataDir   = flag.String("data-dir", envOr("LEDGERKEEP_DATA_DIR", "data"), "directory for local snapshots (or set LEDGERKEEP_DATA_DIR)")
		bucket    = flag.String("bucket", os.Getenv("LEDGERKEEP_BUCKET"), "GCS bucket for cloud sync (or set LEDGERKEEP_BUCKET)")
		userID    = flag.String("user", os.Getenv("LEDGERKEEP_USER"), "user id for cloud sync (or set LEDGERKEEP_USER)")
		ratesURL  = flag.String("rates-url", rates.DefaultBaseURL, "exchange rate API base URL")
		syncDelay = flag.Duration("sync-delay", time.Second, "debounce window before persisting and syncing changes")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	local, err := localstore.New(*dataDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dataDir).Msg("Failed to open local store")
	}

	store := ledger.NewStore(ledger.WithLogger(logger.Component(log, "ledger")))

	// Restore the last snapshot from disk before anything else touches the store.
	var snap model.Snapshot
	found, err := local.Load(snapshotKey, &snap)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load local snapshot")
	}
	if found {
		store.SetAll(snap)
		log.Info().
			Int("accounts", len(snap.Accounts)).
			Int("transactions", len(snap.Transactions)).
			Msg("Restored local snapshot")
	}

	if err := seed.Apply(store); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed default categories")
	}

	day, err := dayman.New(store, local, dayman.WithLogger(logger.Component(log, "dayman")))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize day manager")
	}

	// Every store mutation arms a debounced save of the full snapshot.
	persister := localstore.NewDebounced(*syncDelay, func() error {
		return local.Save(snapshotKey, store.Snapshot())
	}, logger.Component(log, "persist"))

	events, unsubscribe := store.Subscribe(64)
	go func() {
		for range events {
			persister.Trigger()
		}
	}()

	// Cloud sync is optional; without a bucket and user the server runs local-only.
	var engine *syncer.Engine
	var scheduler *syncer.Scheduler
	var docs *gcsdoc.Store
	schedCtx, cancelSched := context.WithCancel(ctx)
	defer cancelSched()

	if *bucket != "" && *userID != "" {
		docs, err = gcsdoc.New(ctx, *bucket)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", *bucket).Msg("Failed to create GCS document store")
		}
		defer docs.Close()

		engine = syncer.NewEngine(store, docs, *userID,
			syncer.WithLogger(logger.Component(log, "syncer")))
		scheduler = syncer.NewScheduler(engine, store, *syncDelay, logger.Component(log, "scheduler"))
		go scheduler.Run(schedCtx)

		log.Info().Str("bucket", *bucket).Str("user", *userID).Msg("Cloud sync enabled")
	} else {
		log.Warn().Msg("No bucket or user configured - cloud sync disabled")
	}

	ratesClient := rates.New(*ratesURL, store.Settings().DefaultCurrency,
		rates.WithLogger(logger.Component(log, "rates")))

	h := handlers.New(store, day, engine, ratesClient, log)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.CORS(h.Routes()),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting ledgerkeep server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop feeding the persister, then flush whatever is pending.
	unsubscribe()
	if err := persister.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to flush local snapshot")
	}

	if scheduler != nil {
		cancelSched()
		scheduler.Wait()
		if _, err := engine.Sync(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Final sync failed")
		}
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
