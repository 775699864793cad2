// Package history provides the append-only iteration record store and its
// durable flush boundary.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SummaryFileName is where the terminal run summary lands inside the
// artifact directory.
const SummaryFileName = "build_history.json"

// journalFileName holds one JSON record per line, written synchronously on
// every append so a crash loses at most the in-flight record.
const journalFileName = ".forgeloop.journal"

// Store is the loop's view of run history. Appends must be durable before
// they return; Flush is the single externally visible durability boundary
// and fires exactly once per run.
type Store interface {
	Append(rec models.IterationRecord) error
	All() []models.IterationRecord
	Len() int
	Flush(summary models.RunSummary) error
}

// FileStore keeps records in memory for consistent snapshots and mirrors
// every append into a journal file under the artifact root.
type FileStore struct {
	mu      sync.Mutex
	dir     string
	records []models.IterationRecord
	flushed bool
	log     *zap.Logger
}

// NewFileStore creates a store rooted at the artifact directory.
func NewFileStore(dir string, log *zap.Logger) *FileStore {
	return &FileStore{dir: dir, log: log.Named("history")}
}

// Append validates the record's iteration number (1-based, gap-free),
// journals it, and retains it. A failed journal write rejects the append.
func (s *FileStore) Append(rec models.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if want := len(s.records) + 1; rec.Iteration != want {
		return fmt.Errorf("iteration %d out of sequence, expected %d", rec.Iteration, want)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding iteration record: %w", err)
	}
	if err := s.journal(line); err != nil {
		return fmt.Errorf("journaling iteration record: %w", err)
	}

	s.records = append(s.records, rec)
	s.log.Debug("iteration recorded",
		zap.Int("iteration", rec.Iteration),
		zap.Float64("score", rec.Score))
	return nil
}

func (s *FileStore) journal(line []byte) error {
	f, err := os.OpenFile(filepath.Join(s.dir, journalFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

// All returns a snapshot copy of the records appended so far.
func (s *FileStore) All() []models.IterationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.IterationRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports how many records have been appended.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Flush writes the run summary atomically (temp file, then rename) and
// removes the journal. Calling Flush after a successful flush is a no-op.
func (s *FileStore) Flush(summary models.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flushed {
		return nil
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}

	target := filepath.Join(s.dir, SummaryFileName)
	tmp, err := os.CreateTemp(s.dir, SummaryFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating summary temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing summary: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing summary temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing summary: %w", err)
	}

	os.Remove(filepath.Join(s.dir, journalFileName))
	s.flushed = true
	s.log.Info("run summary flushed",
		zap.String("path", target),
		zap.Int("records", len(summary.Records)),
		zap.String("reason", string(summary.Reason)))
	return nil
}

// Load reads a previously flushed run summary, for status inspection and
// export tooling.
func Load(dir string) (models.RunSummary, error) {
	data, err := os.ReadFile(filepath.Join(dir, SummaryFileName))
	if err != nil {
		return models.RunSummary{}, fmt.Errorf("reading run summary: %w", err)
	}
	var summary models.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return models.RunSummary{}, fmt.Errorf("decoding run summary: %w", err)
	}
	return summary, nil
}
