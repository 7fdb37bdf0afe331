package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"thinkpad-price-tracker/internal/catalog"
	"thinkpad-price-tracker/internal/source"
)

func testCoordinator(t *testing.T, store *fakeStore) (*RetryCoordinator, *Sink, *Sink) {
	t.Helper()
	dir := t.TempDir()
	failures := NewSink(filepath.Join(dir, "failed.jsonl"))
	deadLetter := NewSink(filepath.Join(dir, "dead.jsonl"))

	rec := New(store, catalog.Default(), failures, zerolog.Nop(), Options{})
	rec.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	return NewRetryCoordinator(rec, failures, deadLetter, DefaultMaxRetries, zerolog.Nop()), failures, deadLetter
}

func TestRetryFailedPartitionsByRetryCount(t *testing.T) {
	store := newFakeStore()
	coordinator, failures, deadLetter := testCoordinator(t, store)

	recoverable := rawItem("v1|100|0", "Lenovo ThinkPad T14s Intel i7 16GB 512GB SSD", "500.00")
	exhausted := rawItem("v1|101|0", "Lenovo ThinkPad T480 i5 8GB", "100.00")
	if err := failures.Append(
		FailureEntry{Item: recoverable, Error: "transient", RetryCount: 1},
		FailureEntry{Item: exhausted, Error: "still broken", RetryCount: 3},
	); err != nil {
		t.Fatalf("seed failures: %v", err)
	}

	result, err := coordinator.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Retried != 1 || result.DeadLettered != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Reconcile.Created != 1 {
		t.Fatalf("retried item should have been created, got %+v", result.Reconcile)
	}

	if store.listings["v1|100|0"] == nil {
		t.Fatal("retried item must reach the store")
	}
	if store.listings["v1|101|0"] != nil {
		t.Fatal("dead-lettered item must never be resubmitted")
	}

	dead, err := deadLetter.Read()
	if err != nil {
		t.Fatalf("read dead letter: %v", err)
	}
	if len(dead) != 1 || dead[0].Item.ItemID != "v1|101|0" {
		t.Fatalf("unexpected dead letter contents: %+v", dead)
	}

	remaining, err := failures.Read()
	if err != nil {
		t.Fatalf("read failures: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("failure sink must be drained, got %d entries", len(remaining))
	}
}

func TestRetryFailedIncrementsCountOnRepeatFailure(t *testing.T) {
	store := newFakeStore()
	coordinator, failures, deadLetter := testCoordinator(t, store)

	// No price, so every replay fails again.
	broken := rawItem("v1|200|0", "Lenovo ThinkPad T480 i5 8GB", "")
	if err := failures.Append(FailureEntry{Item: broken, Error: "item has no price", RetryCount: 1}); err != nil {
		t.Fatalf("seed failures: %v", err)
	}

	for attempt, wantCount := range []int{2, 3} {
		result, err := coordinator.RetryFailed(context.Background())
		if err != nil {
			t.Fatalf("retry attempt %d: %v", attempt, err)
		}
		if result.Retried != 1 || result.DeadLettered != 0 {
			t.Fatalf("attempt %d: unexpected result %+v", attempt, result)
		}

		entries, err := failures.Read()
		if err != nil {
			t.Fatalf("read failures: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("attempt %d: expected 1 failure entry, got %d", attempt, len(entries))
		}
		if entries[0].RetryCount != wantCount {
			t.Fatalf("attempt %d: expected retryCount %d, got %d", attempt, wantCount, entries[0].RetryCount)
		}
	}

	// Third pass sees retryCount 3 and dead-letters instead of replaying.
	result, err := coordinator.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("final retry: %v", err)
	}
	if result.Retried != 0 || result.DeadLettered != 1 {
		t.Fatalf("unexpected final result: %+v", result)
	}

	dead, err := deadLetter.Read()
	if err != nil {
		t.Fatalf("read dead letter: %v", err)
	}
	if len(dead) != 1 || dead[0].RetryCount != 3 {
		t.Fatalf("unexpected dead letter contents: %+v", dead)
	}

	remaining, err := failures.Read()
	if err != nil {
		t.Fatalf("read failures: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("failure sink must end empty, got %d entries", len(remaining))
	}
}

func TestRetryFailedEmptySink(t *testing.T) {
	store := newFakeStore()
	coordinator, _, _ := testCoordinator(t, store)

	result, err := coordinator.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Retried != 0 || result.DeadLettered != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if store.flushes != 0 {
		t.Fatal("empty sink must not touch the store")
	}
}

func TestRetryFailedRoundTripsItemShape(t *testing.T) {
	store := newFakeStore()
	coordinator, failures, _ := testCoordinator(t, store)

	item := rawItem("v1|300|0", "Lenovo ThinkPad T14s Intel i7 16GB 512GB SSD", "500.00")
	item.ShortDescription = "Pristine unit"
	item.LocalizedAspects = []source.Aspect{{Name: "Model", Value: "T14s"}}
	if err := failures.Append(FailureEntry{Item: item, Error: "transient", RetryCount: 1}); err != nil {
		t.Fatalf("seed failures: %v", err)
	}

	if _, err := coordinator.RetryFailed(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	listing := store.listings["v1|300|0"]
	if listing == nil {
		t.Fatal("replayed item must reach the store")
	}
	if listing.Title != item.Title || listing.Condition != "Used" {
		t.Fatalf("item fields lost in the sink round trip: %+v", listing)
	}
}
