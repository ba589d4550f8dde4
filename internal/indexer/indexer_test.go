package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-labs/vaultsync/internal/progress"
	"github.com/inkwell-labs/vaultsync/internal/scope"
	"github.com/inkwell-labs/vaultsync/internal/settings"
	"github.com/inkwell-labs/vaultsync/internal/state"
	"github.com/inkwell-labs/vaultsync/internal/testutil"
)

func newStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeVault(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func mdOnly() settings.FileTypes { return settings.FileTypes{Markdown: true} }

func TestRun_IndexesInScopeFiles(t *testing.T) {
	root := writeVault(t, map[string]string{
		"a.md":         "alpha",
		"notes/b.md":   "beta",
		"notes/c.txt":  "ignored kind",
		"archive/d.md": "excluded",
	})
	sc := scope.NewResolver([]string{""}, []string{"archive"})
	store := newStore(t)

	var updates []progress.Update
	res, err := Run(context.Background(), root, sc, mdOnly(), store, Options{},
		func(u progress.Update) { updates = append(updates, u) }, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 0, res.Skipped)

	states, err := store.FileStates()
	require.NoError(t, err)
	assert.Contains(t, states, "a.md")
	assert.Contains(t, states, "notes/b.md")
	assert.NotContains(t, states, "archive/d.md")

	// One initial report plus one per processed file, cumulative.
	require.Len(t, updates, 3)
	assert.Equal(t, progress.Update{Processed: 0, Total: 2}, updates[0])
	assert.Equal(t, progress.Update{Processed: 2, Total: 2}, updates[2])
}

func TestRun_IncrementalSkipsUnchanged(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "alpha", "b.md": "beta"})
	sc := scope.NewResolver([]string{""}, nil)
	store := newStore(t)

	_, err := Run(context.Background(), root, sc, mdOnly(), store, Options{UseCache: true}, nil, nil)
	require.NoError(t, err)

	// A second incremental run touches nothing.
	res, err := Run(context.Background(), root, sc, mdOnly(), store, Options{UseCache: true}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Indexed)
	assert.Equal(t, 2, res.Skipped)

	// Editing one file re-indexes just that file.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("changed"), 0o644))
	res, err = Run(context.Background(), root, sc, mdOnly(), store, Options{UseCache: true}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Skipped)
}

func TestRun_ForceFullBypassesCache(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "alpha"})
	sc := scope.NewResolver([]string{""}, nil)
	store := newStore(t)

	_, err := Run(context.Background(), root, sc, mdOnly(), store, Options{UseCache: true}, nil, nil)
	require.NoError(t, err)

	res, err := Run(context.Background(), root, sc, mdOnly(), store,
		Options{ForceFull: true, UseCache: true}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 0, res.Skipped)
}

func TestRun_PrunesVanishedAndDescopedFiles(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "alpha", "old/b.md": "beta"})
	sc := scope.NewResolver([]string{""}, nil)
	store := newStore(t)

	_, err := Run(context.Background(), root, sc, mdOnly(), store, Options{}, nil, nil)
	require.NoError(t, err)

	// Exclude a folder; its state rows disappear on the next run.
	_, err = sc.AddExclude("old")
	require.NoError(t, err)
	res, err := Run(context.Background(), root, sc, mdOnly(), store, Options{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pruned)

	states, err := store.FileStates()
	require.NoError(t, err)
	assert.NotContains(t, states, "old/b.md")
}

func TestRun_ContextCancellation(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "alpha"})
	sc := scope.NewResolver([]string{""}, nil)
	store := newStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, root, sc, mdOnly(), store, Options{}, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyScope(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "alpha"})
	sc := scope.NewResolver(nil, nil)
	store := newStore(t)

	var first *progress.Update
	res, err := Run(context.Background(), root, sc, mdOnly(), store, Options{},
		func(u progress.Update) {
			if first == nil {
				first = &u
			}
		}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Total, "raw total may be zero; the tracker owns the display floor")
}
