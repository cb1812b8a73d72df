package spool

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seamark/hazard-relay/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T, maxPending int) *Store {
	t.Helper()
	store, err := New(t.TempDir(), maxPending, testLogger())
	require.NoError(t, err)
	return store
}

func testReport(id string) domain.Report {
	return domain.Report{
		ID:       id,
		Type:     "debris",
		Severity: 3,
		Lat:      47.6,
		Lng:      -122.3,
		Notes:    "container adrift",
		Status:   domain.StatusPendingUpload,
		QueuedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndList(t *testing.T) {
	store := testStore(t, 0)

	a := testReport("rpt-a")
	b := testReport("rpt-b")
	require.NoError(t, store.Save(a, nil))
	require.NoError(t, store.Save(b, nil))

	got := store.List()
	want := []domain.Report{a, b}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("spooled reports mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, store.Count())
}

func TestSave_PhotoSidecar(t *testing.T) {
	store := testStore(t, 0)

	report := testReport("rpt-a")
	report.PhotoFile = "rpt-a.jpg"
	photo := []byte("jpeg-bytes")
	require.NoError(t, store.Save(report, photo))

	got, err := store.Photo(report)
	require.NoError(t, err)
	assert.Equal(t, photo, got)
}

func TestSave_PhotoWithoutFilename(t *testing.T) {
	store := testStore(t, 0)

	err := store.Save(testReport("rpt-a"), []byte("jpeg-bytes"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "photo filename")
}

func TestSave_MissingID(t *testing.T) {
	store := testStore(t, 0)

	err := store.Save(domain.Report{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID is required")
}

func TestSave_Full(t *testing.T) {
	store := testStore(t, 2)

	require.NoError(t, store.Save(testReport("rpt-a"), nil))
	require.NoError(t, store.Save(testReport("rpt-b"), nil))
	err := store.Save(testReport("rpt-c"), nil)

	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, store.Count())
}

func TestSave_Duplicate(t *testing.T) {
	store := testStore(t, 0)

	require.NoError(t, store.Save(testReport("rpt-a"), nil))
	err := store.Save(testReport("rpt-a"), nil)

	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, store.Count())
}

func TestList_MissingBlob(t *testing.T) {
	store := testStore(t, 0)

	assert.Empty(t, store.List())
	assert.Equal(t, 0, store.Count())
}

func TestList_CorruptedBlob(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0, testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Save(testReport("rpt-a"), nil))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pending.json"), []byte("{not json"), 0o600))

	// Corruption reads as empty and saving starts over cleanly.
	assert.Empty(t, store.List())
	require.NoError(t, store.Save(testReport("rpt-b"), nil))
	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "rpt-b", got[0].ID)
}

func TestRemove(t *testing.T) {
	store := testStore(t, 0)

	a := testReport("rpt-a")
	a.PhotoFile = "rpt-a.jpg"
	require.NoError(t, store.Save(a, []byte("jpeg-bytes")))
	require.NoError(t, store.Save(testReport("rpt-b"), nil))

	require.NoError(t, store.Remove("rpt-a"))

	got := store.List()
	require.Len(t, got, 1)
	assert.Equal(t, "rpt-b", got[0].ID)

	_, err := store.Photo(a)
	require.Error(t, err) // sidecar removed with the record
}

func TestRemove_AbsentID(t *testing.T) {
	store := testStore(t, 0)
	require.NoError(t, store.Save(testReport("rpt-a"), nil))

	require.NoError(t, store.Remove("rpt-zzz"))

	assert.Equal(t, 1, store.Count())
}

func TestClear(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0, testLogger())
	require.NoError(t, err)

	a := testReport("rpt-a")
	a.PhotoFile = "rpt-a.jpg"
	require.NoError(t, store.Save(a, []byte("jpeg-bytes")))
	require.NoError(t, store.Save(testReport("rpt-b"), nil))

	require.NoError(t, store.Clear())

	assert.Empty(t, store.List())
	entries, err := os.ReadDir(filepath.Join(dir, "photos"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopen_SeesSpooledReports(t *testing.T) {
	dir := t.TempDir()
	first, err := New(dir, 0, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Save(testReport("rpt-a"), nil))

	second, err := New(dir, 0, testLogger())
	require.NoError(t, err)

	got := second.List()
	require.Len(t, got, 1)
	assert.Equal(t, "rpt-a", got[0].ID)
}

func TestPhoto_NoPhoto(t *testing.T) {
	store := testStore(t, 0)

	_, err := store.Photo(testReport("rpt-a"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no photo")
}
