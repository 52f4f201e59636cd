package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locate918/roadmap/storage/boltdb"
)

func testSyncer(t *testing.T) *syncer {
	t.Helper()
	s, err := New(false, false, filepath.Join(t.TempDir(), boltdb.DefaultFile))
	require.NoError(t, err)
	s.log = t.Logf
	s.err = t.Logf
	return s
}

func TestSyncPlan(t *testing.T) {
	s := testSyncer(t)

	entries, changed, err := s.SyncPlan("../../ROADMAP.md")
	require.NoError(t, err)
	assert.Len(t, entries, 35)
	assert.Equal(t, len(entries), changed, "every entry is new on the first run")

	_, changed, err = s.SyncPlan("../../ROADMAP.md")
	require.NoError(t, err)
	assert.Zero(t, changed, "an unchanged document is a no-op")
}

func TestSyncPlanRejectsBrokenDocument(t *testing.T) {
	s := testSyncer(t)

	doc := filepath.Join(t.TempDir(), "ROADMAP.md")
	require.NoError(t, os.WriteFile(doc, []byte("# nothing here\n"), 0600))

	_, _, err := s.SyncPlan(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schedule tables")
}

func TestSyncSources(t *testing.T) {
	s := testSyncer(t)

	catalog, changed, err := s.SyncSources("../../SOURCES.md")
	require.NoError(t, err)
	assert.Len(t, catalog, 16)
	assert.Equal(t, len(catalog), changed)

	// Stamp one source the way check --save does, then make sure a re-sync
	// keeps the stamp instead of zeroing it from the document.
	stamp := time.Date(2026, time.February, 27, 12, 0, 0, 0, time.UTC)
	catalog[0].LastChecked = stamp
	st := boltdb.New(boltdb.Config{Path: s.path})
	require.NoError(t, st.SaveSources(catalog))

	catalog, changed, err = s.SyncSources("../../SOURCES.md")
	require.NoError(t, err)
	assert.Zero(t, changed)
	assert.Equal(t, stamp, catalog[0].LastChecked)
}
