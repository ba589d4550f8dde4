package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/inkwell-labs/vaultsync/internal/backend"
	"github.com/inkwell-labs/vaultsync/internal/controller"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/indexer"
	"github.com/inkwell-labs/vaultsync/internal/scope"
	"github.com/inkwell-labs/vaultsync/internal/settings"
	"github.com/inkwell-labs/vaultsync/internal/vault"
)

// statusResponse is the aggregate view the plugin renders its settings pane
// from.
type statusResponse struct {
	Connection      backend.Connection    `json:"connection"`
	State           string                `json:"state"`
	SelectedModelID *string               `json:"selectedModelId"`
	Metrics         vault.Metrics         `json:"metrics"`
	Syncing         bool                  `json:"syncing"`
	Language        string                `json:"language"`
	Models          []backend.ModelOption `json:"models"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, statusResponse{
		Connection:      snap.Connection,
		State:           snap.State.String(),
		SelectedModelID: snap.SelectedModelID,
		Metrics:         s.ctrl.Metrics(),
		Syncing:         s.ctrl.SyncInFlight(),
		Language:        string(i18n.Default.Language()),
		Models:          snap.Models,
	})
}

func (s *Server) handleConnectivityRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.ApplyConnectivityChange(r.Context())
	if err != nil {
		s.logger.Warn("connectivity refresh failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connection":      snap.Connection,
		"state":           snap.State.String(),
		"selectedModelId": snap.SelectedModelID,
		"models":          snap.Models,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"models":          snap.Models,
		"selectedModelId": snap.SelectedModelID,
	})
}

func (s *Server) handleSelectModel(w http.ResponseWriter, r *http.Request) {
	// The request body shares the preference wire form, so string, number,
	// and null ids are all accepted.
	var pref backend.Preference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if err := s.ctrl.SelectModel(r.Context(), pref.SelectedModelID); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selectedModelId": s.ctrl.Snapshot().SelectedModelID,
	})
}

func (s *Server) handleFolders(w http.ResponseWriter, _ *http.Request) {
	infos, err := s.ctrl.Folders()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type folderMutation struct {
	Action string `json:"action"`
	Path   string `json:"path"`
}

func (s *Server) handleFolderMutation(w http.ResponseWriter, r *http.Request) {
	var req folderMutation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}

	var (
		metrics vault.Metrics
		err     error
	)
	switch req.Action {
	case "include":
		metrics, err = s.ctrl.IncludeFolder(req.Path)
	case "uninclude":
		metrics, err = s.ctrl.RemoveIncludeFolder(req.Path)
	case "exclude":
		metrics, err = s.ctrl.ExcludeFolder(req.Path)
	case "unexclude":
		metrics, err = s.ctrl.RemoveExcludeFolder(req.Path)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	var rootErr *scope.RootExclusionError
	if errors.As(err, &rootErr) {
		writeError(w, http.StatusUnprocessableEntity, rootErr.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cfg := s.ctrl.Settings()
	writeJSON(w, http.StatusOK, map[string]any{
		"syncFolders":    cfg.SyncFolders,
		"excludeFolders": cfg.ExcludeFolders,
		"metrics":        metrics,
	})
}

func (s *Server) handleSetFileTypes(w http.ResponseWriter, r *http.Request) {
	var types settings.FileTypes
	if err := json.NewDecoder(r.Body).Decode(&types); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	metrics, err := s.ctrl.SetFileTypes(types)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fileTypes": s.ctrl.Settings().FileTypes,
		"metrics":   metrics,
	})
}

func (s *Server) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if err := s.ctrl.SetLanguage(req.Language); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"language": req.Language})
}

type syncRequest struct {
	ForceFull bool `json:"forceFull"`
	UseCache  bool `json:"useCache"`
}

func (s *Server) handleSyncStart(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil {
		// An empty body means defaults.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	// The sync outlives the request; the plugin follows it over the
	// progress stream. The slot is claimed before responding, so two
	// simultaneous requests cannot both be told the sync started.
	err := s.ctrl.StartSync(context.Background(), indexer.Options{
		ForceFull: req.ForceFull,
		UseCache:  req.UseCache,
	})
	if errors.Is(err, controller.ErrSyncInFlight) {
		writeError(w, http.StatusConflict, "A sync is already in progress")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"started": true})
}

func (s *Server) handleSyncRuns(w http.ResponseWriter, _ *http.Request) {
	runs, err := s.ctrl.Runs(20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleSyncProgress streams the in-flight sync's display state as
// server-sent events. The stream ends when the sync tears its tracker down.
func (s *Server) handleSyncProgress(w http.ResponseWriter, r *http.Request) {
	tracker := s.ctrl.ProgressTracker()
	if tracker == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch := tracker.Subscribe()
	defer tracker.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(d any) bool {
		data, err := json.Marshal(d)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// Send the current display immediately so late subscribers see state.
	if !writeEvent(tracker.Display()) {
		return
	}
	for {
		select {
		case d, open := <-ch:
			if !open {
				return
			}
			if !writeEvent(d) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
