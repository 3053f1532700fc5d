package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, ok := store.Load()
	assert.False(t, ok, "empty store has no snapshot")

	snap := Snapshot{SessionID: "sess-1", CurrentQuestion: 3}
	require.NoError(t, store.Save(snap))

	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, snap, got)

	// A fresh store over the same directory sees the same snapshot.
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	got, ok = reopened.Load()
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestFileStoreClear(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(Snapshot{SessionID: "sess-1", CurrentQuestion: 1}))
	require.NoError(t, store.Clear())

	_, ok := store.Load()
	assert.False(t, ok)

	// Clearing again is fine.
	assert.NoError(t, store.Clear())
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	_, ok := store.Load()
	assert.False(t, ok)

	// The corrupt file is discarded so the next save starts clean.
	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreIgnoresEmptySessionID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte(`{"session_id":""}`), 0644))

	_, ok := store.Load()
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Load()
	assert.False(t, ok)

	require.NoError(t, store.Save(Snapshot{SessionID: "sess-1", CurrentQuestion: 2}))
	got, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "sess-1", got.SessionID)

	require.NoError(t, store.Clear())
	_, ok = store.Load()
	assert.False(t, ok)
}
