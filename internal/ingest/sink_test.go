package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"thinkpad-price-tracker/internal/source"
)

func TestSinkAppendAndRead(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "failed.jsonl"))

	first := FailureEntry{
		Item:       source.RawListing{ItemID: "v1|1|0", Title: "ThinkPad T480"},
		Error:      "item has no price",
		RetryCount: 1,
	}
	second := FailureEntry{
		Item:       source.RawListing{ItemID: "v1|2|0", Title: "ThinkPad T490"},
		Error:      "parse price",
		RetryCount: 2,
	}

	if err := sink.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := sink.Append(second); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := sink.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Item.ItemID != first.Item.ItemID || entries[0].Error != first.Error || entries[0].RetryCount != first.RetryCount {
		t.Fatalf("first entry did not round-trip: %+v", entries[0])
	}
	if entries[1].Item.Title != second.Item.Title || entries[1].RetryCount != second.RetryCount {
		t.Fatalf("second entry did not round-trip: %+v", entries[1])
	}
}

func TestSinkMissingFileIsEmpty(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "nope.jsonl"))

	entries, err := sink.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty sink, got %d entries", len(entries))
	}

	entries, err = sink.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty drain, got %d entries", len(entries))
	}
}

func TestSinkDrainClearsFile(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "failed.jsonl"))

	entry := FailureEntry{Item: source.RawListing{ItemID: "v1|1|0"}, Error: "boom", RetryCount: 1}
	if err := sink.Append(entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := sink.Drain()
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if _, err := os.Stat(sink.Path()); !os.IsNotExist(err) {
		t.Fatal("drain must remove the backing file")
	}

	remaining, err := sink.Read()
	if err != nil {
		t.Fatalf("read after drain: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty sink after drain, got %d entries", len(remaining))
	}
}

func TestSinkCreatesParentDir(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "nested", "dir", "failed.jsonl"))

	if err := sink.Append(FailureEntry{Item: source.RawListing{ItemID: "v1|1|0"}, RetryCount: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := sink.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestSinkPreservesConditionString(t *testing.T) {
	sink := NewSink(filepath.Join(t.TempDir(), "failed.jsonl"))

	item := source.RawListing{
		ItemID:    "v1|1|0",
		Condition: source.Condition{Display: "Open box"},
	}
	if err := sink.Append(FailureEntry{Item: item, RetryCount: 1}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := sink.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if entries[0].Item.Condition.Display != "Open box" {
		t.Fatalf("condition lost in round trip: %+v", entries[0].Item)
	}
}
