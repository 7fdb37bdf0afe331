package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"thinkpad-price-tracker/internal/ingest"
	"thinkpad-price-tracker/internal/source"
	"thinkpad-price-tracker/internal/storage"
)

// SyncOnce runs a single fetch-and-reconcile pass across the configured
// marketplaces.
func (a *App) SyncOnce(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	return a.syncPass(ctx, store, a.newSource())
}

// syncPass fetches every configured marketplace and reconciles the combined
// batch. A marketplace whose fetch fails is logged and skipped; the sweep at
// the end of the reconcile is time-based, so one missed subset cannot flip
// its listings to SOLD.
func (a *App) syncPass(ctx context.Context, store *storage.Store, src source.ListingSource) error {
	runLogger := a.Logger.With().Str("run_id", uuid.NewString()).Logger()

	cat, err := store.LoadCatalog(ctx)
	if err != nil {
		return fmt.Errorf("load spec catalog: %w", err)
	}

	var items []source.RawListing
	fetched := 0
	for _, marketplace := range a.Config.Sync.Marketplaces {
		batch, err := src.Fetch(ctx, marketplace, a.Config.Sync.Query, a.Config.Sync.Limit)
		if err != nil {
			runLogger.Error().Err(err).Str("marketplace", marketplace).Msg("marketplace fetch failed")
			continue
		}
		fetched++
		items = append(items, batch...)
		runLogger.Info().Str("marketplace", marketplace).Int("items", len(batch)).Msg("marketplace fetched")
	}
	if fetched == 0 {
		return errors.New("no marketplace could be fetched")
	}

	failures := ingest.NewSink(a.Config.Sync.FailLogPath)
	reconciler := ingest.New(store, cat, failures, runLogger, ingest.Options{
		BatchSize:          a.Config.Sync.BatchSize,
		StalenessThreshold: a.Config.Sync.StalenessThreshold,
	})

	result, err := reconciler.Reconcile(ctx, items)
	if err != nil {
		return err
	}

	runLogger.Info().
		Int("processed", result.Processed).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("junk", result.SkippedJunk).
		Int("failed", result.Failed).
		Int64("marked_sold", result.MarkedSold).
		Msg("sync pass complete")

	return nil
}
