package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"thinkpad-price-tracker/internal/source"
)

// FailureEntry is one line of the failure (or dead-letter) sink: the
// original item, the error that stopped it, and how many attempts it has
// consumed.
type FailureEntry struct {
	Item       source.RawListing `json:"item"`
	Error      string            `json:"error"`
	RetryCount int               `json:"retryCount"`
}

// Sink is an append-only JSON Lines file. The same type backs both the
// active failure log and the permanent dead-letter file.
type Sink struct {
	path string
}

// NewSink points a sink at a JSONL file path.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Path returns the backing file path.
func (s *Sink) Path() string {
	return s.path
}

// Append writes entries to the end of the file, creating it if needed.
func (s *Sink) Append(entries ...FailureEntry) error {
	if len(entries) == 0 {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sink dir: %w", err)
		}
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("append sink entry: %w", err)
		}
	}
	return nil
}

// Read returns all entries currently in the sink. A missing file is an
// empty sink, not an error.
func (s *Sink) Read() ([]FailureEntry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open sink: %w", err)
	}
	defer file.Close()

	var entries []FailureEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry FailureEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode sink entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sink: %w", err)
	}
	return entries, nil
}

// Drain reads all entries and clears the file. Clearing before replay keeps
// a concurrent run from double-processing; a crash between the clear and the
// replay can lose entries, which is an accepted gap for this domain.
func (s *Sink) Drain() ([]FailureEntry, error) {
	entries, err := s.Read()
	if err != nil {
		return nil, err
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("truncate sink: %w", err)
	}
	return entries, nil
}
