package app

import (
	"context"

	"thinkpad-price-tracker/internal/ingest"
)

// RetryFailed replays items from the failure sink through the reconciler,
// moving entries that exhausted their attempts to the dead-letter file.
func (a *App) RetryFailed(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cat, err := store.LoadCatalog(ctx)
	if err != nil {
		return err
	}

	failures := ingest.NewSink(a.Config.Sync.FailLogPath)
	deadLetter := ingest.NewSink(a.Config.Sync.DeadLetterPath)

	reconciler := ingest.New(store, cat, failures, a.Logger, ingest.Options{
		BatchSize:          a.Config.Sync.BatchSize,
		StalenessThreshold: a.Config.Sync.StalenessThreshold,
	})

	coordinator := ingest.NewRetryCoordinator(reconciler, failures, deadLetter, a.Config.Sync.MaxRetries, a.Logger)

	result, err := coordinator.RetryFailed(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("retried", result.Retried).
		Int("dead_lettered", result.DeadLettered).
		Int("failed_again", result.Reconcile.Failed).
		Msg("retry run complete")

	return nil
}
