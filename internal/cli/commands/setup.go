package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inkwell-labs/vaultsync/internal/backend"
	"github.com/inkwell-labs/vaultsync/internal/cli/config"
	"github.com/inkwell-labs/vaultsync/internal/controller"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/settings"
	"github.com/inkwell-labs/vaultsync/internal/state"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig stores the loaded config in the command context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the process logger in the command context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func getConfig(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{
		VaultDir:   ".",
		BackendURL: config.DefaultBackendURL,
		ListenAddr: config.DefaultListenAddr,
	}
}

func getLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext bundles everything a command needs once the stores and
// the controller are wired up.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Ctrl     *controller.Controller
	Settings *settings.Store
	State    *state.SQLiteStore
}

// NewCommandContext builds the controller stack for a command. The
// returned cleanup closes the state store and must be deferred.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig(cmd.Context())
	logger := getLogger(cmd.Context())

	if _, err := os.Stat(cfg.VaultDir); err != nil {
		return nil, nil, fmt.Errorf("vault directory %s: %w", cfg.VaultDir, err)
	}

	setts := settings.NewStore(cfg.SettingsPath, logger)
	if err := setts.Load(); err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	// A language persisted in the vault's own settings wins over the
	// process locale and the CLI config.
	if lang := setts.Get().Language; lang != "" {
		i18n.SetLanguage(lang)
	}

	if dir := filepath.Dir(cfg.StatePath); cfg.StatePath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("open state store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("migrate state store: %w", err)
	}

	client := backend.NewHTTPClient(backend.Config{
		BaseURL: cfg.BackendURL,
		APIKey:  cfg.APIKey,
		Logger:  logger,
	})

	ctrl, err := controller.New(controller.Config{
		VaultRoot: cfg.VaultDir,
		Settings:  setts,
		Backend:   client,
		State:     store,
		Logger:    logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = store.Close()
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Ctrl:     ctrl,
		Settings: setts,
		State:    store,
	}, cleanup, nil
}
