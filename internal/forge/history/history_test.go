package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/forgeloop/forgeloop/internal/forge/models"
)

func record(iteration int, score float64) models.IterationRecord {
	return models.IterationRecord{
		Iteration: iteration,
		Score:     score,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(iteration) * time.Minute),
	}
}

func TestAppendEnforcesSequence(t *testing.T) {
	store := NewFileStore(t.TempDir(), zaptest.NewLogger(t))

	require.NoError(t, store.Append(record(1, 40)))
	require.NoError(t, store.Append(record(2, 55)))

	err := store.Append(record(4, 60))
	require.Error(t, err, "gaps are rejected")
	assert.Contains(t, err.Error(), "out of sequence")

	err = store.Append(record(2, 60))
	require.Error(t, err, "repeats are rejected")

	assert.Equal(t, 2, store.Len())
}

func TestAppendJournalsSynchronously(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zaptest.NewLogger(t))

	require.NoError(t, store.Append(record(1, 40)))

	data, err := os.ReadFile(filepath.Join(dir, journalFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"iteration":1`)
}

func TestAllReturnsSnapshot(t *testing.T) {
	store := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, store.Append(record(1, 40)))

	snapshot := store.All()
	snapshot[0].Score = 999

	assert.InDelta(t, 40, store.All()[0].Score, 1e-9, "mutating a snapshot must not touch the store")
}

func TestFlushWritesSummaryAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zaptest.NewLogger(t))
	require.NoError(t, store.Append(record(1, 40)))
	require.NoError(t, store.Append(record(2, 90)))

	summary := models.RunSummary{
		RunID:           "run-1",
		Spec:            "a web shop",
		Goal:            "working checkout",
		TotalIterations: 2,
		Reason:          models.ReasonGoalAchieved,
		Records:         store.All(),
		CompletedAt:     time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Flush(summary))

	loaded, err := Load(dir)
	require.NoError(t, err)
	if diff := cmp.Diff(summary, loaded); diff != "" {
		t.Errorf("summary roundtrip mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(filepath.Join(dir, journalFileName))
	assert.True(t, os.IsNotExist(err), "journal is removed after flush")

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SummaryFileName, entries[0].Name())
}

func TestFlushIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, zaptest.NewLogger(t))

	first := models.RunSummary{RunID: "run-1", Reason: models.ReasonBudgetExhausted}
	require.NoError(t, store.Flush(first))

	// A second flush with different content is a no-op.
	second := models.RunSummary{RunID: "run-2", Reason: models.ReasonGoalAchieved}
	require.NoError(t, store.Flush(second))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
}

func TestLoadMissingSummary(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
