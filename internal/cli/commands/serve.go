package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-labs/vaultsync/internal/api"
	"github.com/inkwell-labs/vaultsync/internal/controller"
	"github.com/inkwell-labs/vaultsync/internal/indexer"
	"github.com/inkwell-labs/vaultsync/internal/vault"
)

const watchDebounce = 2 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the localhost API for the editor plugin",
		Long: `Serve the plugin API on localhost and watch the vault for changes.
Filesystem changes trigger an incremental sync after a short quiet
window; the plugin follows along over the progress stream.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if addr == "" {
				addr = cmdCtx.Cfg.ListenAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			watcher, err := vault.NewWatcher(cmdCtx.Cfg.VaultDir, watchDebounce, cmdCtx.Logger)
			if err != nil {
				return fmt.Errorf("watch vault: %w", err)
			}
			defer func() { _ = watcher.Close() }()

			server := api.NewServer(api.Config{
				Controller: cmdCtx.Ctrl,
				Addr:       addr,
				Logger:     cmdCtx.Logger,
			})

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Serve(ctx)
			})
			g.Go(func() error {
				watchLoop(ctx, watcher, cmdCtx.Ctrl, cmdCtx.Logger)
				return nil
			})

			err = g.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

// watchLoop runs an incremental sync for every debounced change signal.
// A signal arriving while a sync is in flight is not lost: the watcher's
// coalescing means at most one is pending, and the in-flight rejection
// just defers the work to the next signal.
func watchLoop(ctx context.Context, watcher *vault.Watcher, ctrl *controller.Controller, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-watcher.Events():
			if !open {
				return
			}
			_, err := ctrl.ForceSync(ctx, indexer.Options{UseCache: true})
			if err != nil && !errors.Is(err, controller.ErrSyncInFlight) && ctx.Err() == nil {
				// Keep serving; the next change retriggers the sync.
				logger.Warn("watch-triggered sync failed", "error", err)
			}
		}
	}
}
