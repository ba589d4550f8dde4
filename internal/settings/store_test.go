package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "settings.yaml"), nil)
}

func TestStore_LoadMissingFileYieldsDefaults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load())

	cfg := s.Get()
	assert.Equal(t, []string{""}, cfg.SyncFolders, "root included by default")
	assert.True(t, cfg.FileTypes.Markdown)
	assert.False(t, cfg.FileTypes.Images)
	assert.Nil(t, cfg.SelectedChatModelID)
}

func TestStore_UpdatePersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	s := NewStore(path, nil)
	require.NoError(t, s.Load())
	require.NoError(t, s.Update(func(cfg *Settings) {
		cfg.SyncFolders = []string{"notes", "journal"}
		cfg.ExcludeFolders = []string{"notes/drafts"}
		cfg.FileTypes.PDF = true
		cfg.Language = "zh-CN"
	}))

	// A fresh store sees the persisted state.
	s2 := NewStore(path, nil)
	require.NoError(t, s2.Load())
	cfg := s2.Get()
	assert.Equal(t, []string{"notes", "journal"}, cfg.SyncFolders)
	assert.Equal(t, []string{"notes/drafts"}, cfg.ExcludeFolders)
	assert.True(t, cfg.FileTypes.PDF)
	assert.Equal(t, "zh-CN", cfg.Language)
}

func TestStore_SetSelectedModel(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load())

	id := "gpt-4o"
	require.NoError(t, s.SetSelectedModel(&id))
	got := s.Get().SelectedChatModelID
	require.NotNil(t, got)
	assert.Equal(t, "gpt-4o", *got)

	// Clearing back to the backend default persists nil.
	require.NoError(t, s.SetSelectedModel(nil))
	assert.Nil(t, s.Get().SelectedChatModelID)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Load())

	cfg := s.Get()
	cfg.SyncFolders[0] = "mutated"
	assert.Equal(t, []string{""}, s.Get().SyncFolders)
}

func TestStore_LoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\t:not yaml"), 0o644))

	s := NewStore(path, nil)
	assert.Error(t, s.Load())
}
