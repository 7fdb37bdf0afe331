package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"thinkpad-price-tracker/internal/source"
)

// DefaultMaxRetries is the retry ceiling before an item is dead-lettered.
const DefaultMaxRetries = 3

// RetryResult reports one replay pass.
type RetryResult struct {
	Retried      int
	DeadLettered int
	Reconcile    Result
}

// RetryCoordinator replays previously failed items through the reconciler.
// Entries at or above the retry ceiling move to the dead-letter sink and are
// never resubmitted.
type RetryCoordinator struct {
	reconciler *Reconciler
	failures   *Sink
	deadLetter *Sink
	maxRetries int
	logger     zerolog.Logger
}

// NewRetryCoordinator constructs a RetryCoordinator.
func NewRetryCoordinator(rec *Reconciler, failures, deadLetter *Sink, maxRetries int, logger zerolog.Logger) *RetryCoordinator {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &RetryCoordinator{
		reconciler: rec,
		failures:   failures,
		deadLetter: deadLetter,
		maxRetries: maxRetries,
		logger:     logger.With().Str("component", "retry").Logger(),
	}
}

// RetryFailed drains the failure sink, dead-letters exhausted entries, and
// resubmits the rest as a fresh batch with their retry counts carried
// forward. The sink is cleared before replay so a concurrent run cannot
// double-process; this is at-least-once delivery, and a crash between the
// clear and the replay can lose entries.
func (c *RetryCoordinator) RetryFailed(ctx context.Context) (RetryResult, error) {
	result := RetryResult{}

	entries, err := c.failures.Drain()
	if err != nil {
		return result, fmt.Errorf("drain failure sink: %w", err)
	}
	if len(entries) == 0 {
		c.logger.Info().Msg("no failed items to retry")
		return result, nil
	}

	var exhausted []FailureEntry
	retryBatch := make([]source.RawListing, 0, len(entries))
	for _, entry := range entries {
		if entry.RetryCount >= c.maxRetries {
			exhausted = append(exhausted, entry)
			continue
		}
		item := entry.Item
		// Carry the count forward so a new failure keeps incrementing.
		item.RetryCount = entry.RetryCount
		retryBatch = append(retryBatch, item)
	}

	if len(exhausted) > 0 {
		if err := c.deadLetter.Append(exhausted...); err != nil {
			return result, fmt.Errorf("append dead letters: %w", err)
		}
		result.DeadLettered = len(exhausted)
		c.logger.Warn().Int("count", len(exhausted)).Str("path", c.deadLetter.Path()).Msg("items moved to dead letter")
	}

	if len(retryBatch) > 0 {
		result.Retried = len(retryBatch)
		reconcileResult, err := c.reconciler.Reconcile(ctx, retryBatch)
		result.Reconcile = reconcileResult
		if err != nil {
			return result, fmt.Errorf("replay failed items: %w", err)
		}
	}

	c.logger.Info().
		Int("retried", result.Retried).
		Int("dead_lettered", result.DeadLettered).
		Msg("retry pass complete")

	return result, nil
}
