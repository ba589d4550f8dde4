// Package controller is the configuration controller: it owns the sync
// settings, the folder scope, the model-preference reconciler, and the
// lifecycle of force-sync invocations, and keeps all of them consistent with
// the backend.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/inkwell-labs/vaultsync/internal/backend"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/indexer"
	"github.com/inkwell-labs/vaultsync/internal/progress"
	"github.com/inkwell-labs/vaultsync/internal/reconcile"
	"github.com/inkwell-labs/vaultsync/internal/scope"
	"github.com/inkwell-labs/vaultsync/internal/settings"
	"github.com/inkwell-labs/vaultsync/internal/state"
	"github.com/inkwell-labs/vaultsync/internal/vault"
)

// ErrSyncInFlight is returned when a force sync is requested while another
// one is still running. Overlapping syncs are rejected, not queued.
var ErrSyncInFlight = errors.New("a sync is already in progress")

// Config holds controller dependencies. Settings must already be loaded.
type Config struct {
	VaultRoot string
	Settings  *settings.Store
	Backend   backend.Client
	State     state.Store
	Logger    *slog.Logger
	// OnRender is invoked after every state change a UI would need to
	// repaint for. Optional.
	OnRender func()
}

// Controller coordinates one vault's sync configuration.
type Controller struct {
	vaultRoot string
	settings  *settings.Store
	store     state.Store
	rec       *reconcile.Reconciler
	logger    *slog.Logger
	onRender  func()

	mu      sync.Mutex
	scope   *scope.Resolver
	tracker *progress.Tracker
	syncing bool

	syncMu sync.Mutex
}

// New builds a controller from loaded settings.
func New(cfg Config) (*Controller, error) {
	if cfg.Settings == nil || cfg.Backend == nil || cfg.State == nil {
		return nil, fmt.Errorf("controller requires settings, backend, and state store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cur := cfg.Settings.Get()
	return &Controller{
		vaultRoot: cfg.VaultRoot,
		settings:  cfg.Settings,
		store:     cfg.State,
		rec:       reconcile.New(cfg.Backend, cfg.Settings, cur.SelectedChatModelID, logger),
		logger:    logger,
		onRender:  cfg.OnRender,
		scope:     scope.NewResolver(cur.SyncFolders, cur.ExcludeFolders),
	}, nil
}

// ApplyConnectivityChange re-probes the backend and reconciles the model
// preference, then triggers a re-render. Called on startup and whenever the
// URL or API key is edited.
func (c *Controller) ApplyConnectivityChange(ctx context.Context) (reconcile.Snapshot, error) {
	snap, err := c.rec.Refresh(ctx)
	c.render()
	return snap, err
}

// Snapshot returns the current reconciler state.
func (c *Controller) Snapshot() reconcile.Snapshot {
	return c.rec.Snapshot()
}

// SelectModel pushes a user-initiated model selection; nil selects the
// backend default. On a failed push the displayed selection reverts.
func (c *Controller) SelectModel(ctx context.Context, id *string) error {
	err := c.rec.Select(ctx, id)
	c.render()
	return err
}

// Settings returns a copy of the persisted sync configuration.
func (c *Controller) Settings() settings.Settings {
	return c.settings.Get()
}

// IncludeFolder adds a folder to the include set.
func (c *Controller) IncludeFolder(folder string) (vault.Metrics, error) {
	return c.mutateScope(func(sc *scope.Resolver) (bool, error) {
		return sc.AddInclude(folder), nil
	})
}

// RemoveIncludeFolder removes a folder from the include set.
func (c *Controller) RemoveIncludeFolder(folder string) (vault.Metrics, error) {
	return c.mutateScope(func(sc *scope.Resolver) (bool, error) {
		return sc.RemoveInclude(folder), nil
	})
}

// ExcludeFolder adds a folder to the exclude set. Excluding the vault root
// is refused with a *scope.RootExclusionError.
func (c *Controller) ExcludeFolder(folder string) (vault.Metrics, error) {
	return c.mutateScope(func(sc *scope.Resolver) (bool, error) {
		return sc.AddExclude(folder)
	})
}

// RemoveExcludeFolder removes a folder from the exclude set.
func (c *Controller) RemoveExcludeFolder(folder string) (vault.Metrics, error) {
	return c.mutateScope(func(sc *scope.Resolver) (bool, error) {
		return sc.RemoveExclude(folder), nil
	})
}

// mutateScope applies one folder-set mutation, persists the resulting sets
// atomically, and re-derives storage metrics. A rejected or no-op mutation
// persists nothing.
func (c *Controller) mutateScope(fn func(*scope.Resolver) (bool, error)) (vault.Metrics, error) {
	c.mu.Lock()
	changed, err := fn(c.scope)
	var include, exclude []string
	if err == nil && changed {
		include = c.scope.Includes()
		exclude = c.scope.Excludes()
	}
	c.mu.Unlock()

	if err != nil {
		return c.Metrics(), err
	}
	if changed {
		if perr := c.settings.Update(func(cfg *settings.Settings) {
			cfg.SyncFolders = include
			cfg.ExcludeFolders = exclude
		}); perr != nil {
			// Rebuild from the persisted truth so memory and disk agree.
			cur := c.settings.Get()
			c.mu.Lock()
			c.scope = scope.NewResolver(cur.SyncFolders, cur.ExcludeFolders)
			c.mu.Unlock()
			return c.Metrics(), fmt.Errorf("persist folder scope: %w", perr)
		}
	}

	m := c.Metrics()
	c.render()
	return m, nil
}

// SetFileTypes persists the per-type sync toggles and re-derives metrics.
func (c *Controller) SetFileTypes(types settings.FileTypes) (vault.Metrics, error) {
	if err := c.settings.Update(func(cfg *settings.Settings) {
		cfg.FileTypes = types
	}); err != nil {
		return c.Metrics(), err
	}
	m := c.Metrics()
	c.render()
	return m, nil
}

// SetLanguage applies and persists a manual language override.
func (c *Controller) SetLanguage(code string) error {
	if !i18n.SetLanguage(code) {
		return fmt.Errorf("unsupported language %q", code)
	}
	return c.settings.Update(func(cfg *settings.Settings) {
		cfg.Language = code
	})
}

// Metrics computes storage metrics under the current scope. Failures
// degrade to an unavailable display state rather than propagating.
func (c *Controller) Metrics() vault.Metrics {
	c.mu.Lock()
	sc := c.scope
	c.mu.Unlock()

	m, err := vault.ComputeMetrics(c.vaultRoot, sc, c.settings.Get().FileTypes)
	if err != nil {
		c.logger.Debug("storage metrics unavailable", "error", err)
		return vault.Metrics{Available: false}
	}
	return m
}

// Folders lists the enumerated vault folders alongside their scope
// membership for display.
func (c *Controller) Folders() ([]FolderInfo, error) {
	enumerated, err := vault.EnumerateFolders(c.vaultRoot)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	infos := make([]FolderInfo, 0, len(enumerated))
	for folder := range enumerated {
		infos = append(infos, FolderInfo{
			Path:     folder,
			Included: c.scope.HasInclude(folder),
			Excluded: c.scope.HasExclude(folder),
			InScope:  vault.InScope(c.scope, folder),
		})
	}
	sortFolderInfos(infos)
	return infos, nil
}

func sortFolderInfos(infos []FolderInfo) {
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
}

// FolderInfo describes one vault folder's scope status.
type FolderInfo struct {
	Path     string `json:"path"`
	Included bool   `json:"included"`
	Excluded bool   `json:"excluded"`
	InScope  bool   `json:"inScope"`
}

// SyncResult is the outcome of one force sync.
type SyncResult struct {
	Run    *state.Run
	Result indexer.Result
}

// ForceSync runs one full index update. Only one invocation may be in
// flight per controller; a concurrent request fails with ErrSyncInFlight.
// The progress tracker is closed and the run row completed on every exit
// path, before the indexer's error is returned.
func (c *Controller) ForceSync(ctx context.Context, opts indexer.Options) (SyncResult, error) {
	if !c.syncMu.TryLock() {
		return SyncResult{}, ErrSyncInFlight
	}
	defer c.syncMu.Unlock()
	return c.runSync(ctx, opts)
}

// StartSync claims the sync slot synchronously and runs the sync in the
// background. A caller that gets a nil error owns the run; a concurrent
// request fails with ErrSyncInFlight before any work starts.
func (c *Controller) StartSync(ctx context.Context, opts indexer.Options) error {
	if !c.syncMu.TryLock() {
		return ErrSyncInFlight
	}
	go func() {
		defer c.syncMu.Unlock()
		if _, err := c.runSync(ctx, opts); err != nil {
			c.logger.Warn("background sync failed", "error", err)
		}
	}()
	return nil
}

// runSync is the body of a sync; the caller must hold syncMu.
func (c *Controller) runSync(ctx context.Context, opts indexer.Options) (SyncResult, error) {
	run, err := c.store.CreateRun()
	if err != nil {
		return SyncResult{}, fmt.Errorf("create sync run: %w", err)
	}

	tracker := progress.NewTracker()
	c.mu.Lock()
	c.tracker = tracker
	c.syncing = true
	sc := c.scope
	c.mu.Unlock()
	c.render()

	var res indexer.Result
	var runErr error
	func() {
		// Teardown is scoped here so it runs before the error is returned,
		// on success and failure alike.
		defer func() {
			tracker.Close()
			c.mu.Lock()
			c.tracker = nil
			c.syncing = false
			c.mu.Unlock()

			status := state.RunStatusCompleted
			errMsg := ""
			if runErr != nil {
				status = state.RunStatusFailed
				errMsg = runErr.Error()
			}
			if cerr := c.store.CompleteRun(run.ID, status, res.Indexed+res.Skipped, res.Total, errMsg); cerr != nil {
				c.logger.Warn("complete sync run failed", "run_id", run.ID, "error", cerr)
			}
			c.render()
		}()

		res, runErr = indexer.Run(ctx, c.vaultRoot, sc, c.settings.Get().FileTypes,
			c.store, opts, tracker.Report, c.logger)
	}()

	run, err = c.store.GetRun(run.ID)
	if err != nil {
		c.logger.Warn("reload sync run failed", "error", err)
	}
	return SyncResult{Run: run, Result: res}, runErr
}

// ProgressTracker returns the tracker of the in-flight sync, or nil when
// idle.
func (c *Controller) ProgressTracker() *progress.Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker
}

// SyncInFlight reports whether a force sync is currently running; surfaces
// use it to disable their sync controls.
func (c *Controller) SyncInFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// Runs returns recent sync runs, newest first.
func (c *Controller) Runs(limit int) ([]*state.Run, error) {
	return c.store.ListRuns(limit)
}

func (c *Controller) render() {
	if c.onRender != nil {
		c.onRender()
	}
}
