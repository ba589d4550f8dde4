// Package indexer updates the content index for one sync invocation. It
// combines the folder scope with the vault hierarchy to pick candidate
// files, hashes them, skips unchanged files on incremental runs, and reports
// progress after every file.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/inkwell-labs/vaultsync/internal/progress"
	"github.com/inkwell-labs/vaultsync/internal/scope"
	"github.com/inkwell-labs/vaultsync/internal/settings"
	"github.com/inkwell-labs/vaultsync/internal/state"
	"github.com/inkwell-labs/vaultsync/internal/vault"
)

// Options control one index update.
type Options struct {
	// ForceFull re-indexes every candidate file regardless of stored hashes.
	ForceFull bool
	// UseCache skips files whose content hash matches the stored state.
	// Ignored when ForceFull is set.
	UseCache bool
}

// Result summarizes one index update.
type Result struct {
	Total   int
	Indexed int
	Skipped int
	Pruned  int
}

type candidate struct {
	rel string
	abs string
}

// Run performs the index update. onProgress, when non-nil, is invoked with
// cumulative (processed, total) counts; this is the only component that
// pushes progress. The per-file state rows in store are updated as files are
// indexed, and rows for files that left the vault or the sync scope are
// pruned.
func Run(ctx context.Context, root string, sc *scope.Resolver, types settings.FileTypes,
	store state.Store, opts Options, onProgress func(progress.Update), logger *slog.Logger) (Result, error) {

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report := onProgress
	if report == nil {
		report = func(progress.Update) {}
	}

	known, err := store.FileStates()
	if err != nil {
		return Result{}, fmt.Errorf("load file states: %w", err)
	}

	var candidates []candidate
	err = vault.WalkFiles(root, func(rel, abs string, _ int64) error {
		if !vault.TypeEnabled(types, vault.KindOf(rel)) {
			return nil
		}
		if !vault.InScope(sc, folderOf(rel)) {
			return nil
		}
		candidates = append(candidates, candidate{rel: rel, abs: abs})
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Total: len(candidates)}
	report(progress.Update{Processed: 0, Total: res.Total})
	logger.Debug("index update started", "candidates", res.Total, "force_full", opts.ForceFull)

	seen := make(map[string]struct{}, len(candidates))
	processed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		hash, err := hashFile(c.abs)
		if err != nil {
			return res, fmt.Errorf("hash %s: %w", c.rel, err)
		}
		seen[c.rel] = struct{}{}

		if !opts.ForceFull && opts.UseCache && known[c.rel].ContentHash == hash {
			res.Skipped++
		} else {
			if err := store.UpsertFileState(state.FileState{
				Path:        c.rel,
				ContentHash: hash,
				SyncedAt:    time.Now().UTC(),
			}); err != nil {
				return res, err
			}
			res.Indexed++
		}

		processed++
		report(progress.Update{Processed: processed, Total: res.Total})
	}

	// Drop state for files that vanished or fell out of scope, so their
	// return triggers a fresh sync.
	for p := range known {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := store.DeleteFileState(p); err != nil {
			return res, err
		}
		res.Pruned++
	}

	logger.Debug("index update finished",
		"indexed", res.Indexed, "skipped", res.Skipped, "pruned", res.Pruned)
	return res, nil
}

// folderOf returns the vault-relative folder containing rel; files at the
// vault root live in "".
func folderOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return dir
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
