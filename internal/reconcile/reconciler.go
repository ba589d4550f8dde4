// Package reconcile merges the locally cached chat-model selection with the
// backend's freshly fetched truth. The backend's model list and remembered
// preference are the authority; local state only wins after a successful
// push.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/inkwell-labs/vaultsync/internal/backend"
)

// State is the reconciler's connectivity phase.
type State int

const (
	StateDisconnected State = iota
	StateConnectedNoModels
	StateConnectedWithModels
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnectedNoModels:
		return "connected-no-models"
	case StateConnectedWithModels:
		return "connected-with-models"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PreferenceStore persists the reconciled selection so the UI reflects it
// across restarts. Implemented by the settings store.
type PreferenceStore interface {
	SetSelectedModel(id *string) error
}

// Snapshot is a consistent copy of the reconciler's derived state.
type Snapshot struct {
	State           State
	Connection      backend.Connection
	Models          []backend.ModelOption
	SelectedModelID *string
}

// Reconciler owns the single source of truth for the active chat model.
type Reconciler struct {
	client backend.Client
	prefs  PreferenceStore
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	conn     backend.Connection
	models   []backend.ModelOption
	selected *string
}

// New creates a reconciler in the Disconnected state. initialSelection seeds
// the last known-good selection from persisted settings.
func New(client backend.Client, prefs PreferenceStore, initialSelection *string, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		client:   client,
		prefs:    prefs,
		logger:   logger,
		state:    StateDisconnected,
		selected: copyID(initialSelection),
	}
}

// Refresh re-probes connectivity and reconciles the model selection against
// the backend. It runs on startup and after every credential or URL change.
//
// A failed probe, or a connected backend whose fetches fail, always clears
// the derived state; stale models or selections never survive a refresh.
// Reconciliation is idempotent: with unchanged backend state, repeated calls
// produce the same selection.
func (r *Reconciler) Refresh(ctx context.Context) (Snapshot, error) {
	conn, probeErr := r.client.Probe(ctx)
	if probeErr != nil || !conn.Connected {
		r.logger.Debug("backend disconnected", "error", probeErr)
		return r.reset(conn), nil
	}

	// Both fetches are issued concurrently; reconciliation runs only after
	// both settle. Partial results are never reconciled.
	var (
		models []backend.ModelOption
		pref   backend.Preference
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		models, err = r.client.ListModels(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		pref, err = r.client.GetPreference(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		r.reset(backend.Connection{Connected: false, StatusMessage: conn.StatusMessage})
		return r.Snapshot(), fmt.Errorf("fetch backend state: %w", err)
	}

	selected := reconcileSelection(pref.SelectedModelID, models)

	r.mu.Lock()
	r.conn = conn
	r.models = models
	r.selected = selected
	if len(models) == 0 {
		r.state = StateConnectedNoModels
	} else {
		r.state = StateConnectedWithModels
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if err := r.prefs.SetSelectedModel(selected); err != nil {
		return snap, fmt.Errorf("persist selection: %w", err)
	}
	r.logger.Debug("reconciled model preference",
		"models", len(models), "selected", idForLog(selected))
	return snap, nil
}

// reconcileSelection applies the core rule: adopt the server's remembered id
// only when it exists in the freshly fetched list; anything else collapses
// to nil, meaning "defer to backend default". The server holding no
// preference and an explicit null are the same state.
func reconcileSelection(serverID *string, models []backend.ModelOption) *string {
	if serverID == nil {
		return nil
	}
	for _, m := range models {
		if m.ID == *serverID {
			return copyID(serverID)
		}
	}
	return nil
}

// Select attempts a user-initiated selection change. The new id is shown
// optimistically while the push runs, but a failed push reverts to the last
// known-good selection; local state becomes authoritative only after the
// push succeeds. No automatic retry.
func (r *Reconciler) Select(ctx context.Context, id *string) error {
	r.mu.Lock()
	prev := r.selected
	r.selected = copyID(id)
	r.mu.Unlock()

	if err := r.client.PutPreference(ctx, id); err != nil {
		r.mu.Lock()
		r.selected = prev
		r.mu.Unlock()
		r.logger.Debug("preference push failed, reverted", "error", err)
		return fmt.Errorf("push preference: %w", err)
	}

	if err := r.prefs.SetSelectedModel(id); err != nil {
		return fmt.Errorf("persist selection: %w", err)
	}
	return nil
}

// Snapshot returns a copy of the current derived state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// reset unconditionally discards all connectivity-derived state.
func (r *Reconciler) reset(conn backend.Connection) Snapshot {
	r.mu.Lock()
	r.state = StateDisconnected
	r.conn = conn
	r.models = nil
	r.selected = nil
	snap := r.snapshotLocked()
	r.mu.Unlock()

	if err := r.prefs.SetSelectedModel(nil); err != nil {
		r.logger.Debug("persist cleared selection failed", "error", err)
	}
	return snap
}

func (r *Reconciler) snapshotLocked() Snapshot {
	return Snapshot{
		State:           r.state,
		Connection:      r.conn,
		Models:          append([]backend.ModelOption(nil), r.models...),
		SelectedModelID: copyID(r.selected),
	}
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func idForLog(id *string) string {
	if id == nil {
		return "<backend default>"
	}
	return *id
}
