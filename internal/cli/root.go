// Package cli provides the command-line interface for vaultsync.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inkwell-labs/vaultsync/internal/cli/commands"
	"github.com/inkwell-labs/vaultsync/internal/cli/config"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "vaultsync",
		Short:   "vaultsync - local sync companion for note vaults",
		Long:    `vaultsync keeps a local note vault in sync with the Inkwell backend: it tracks which folders and file types are in scope, reconciles the chat model selection with the server, and reports sync progress to the editor plugin over a localhost API.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))

			// Configured language wins; otherwise follow the process
			// locale. A persisted per-vault choice overrides both once
			// settings are loaded.
			if cfg.Language != "" {
				i18n.SetLanguage(cfg.Language)
			} else {
				i18n.SetLanguage(string(i18n.Detect(os.Getenv("LANG"))))
			}

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./vaultsync.yaml)")
	rootCmd.PersistentFlags().String("vault", "", "Path to the note vault (default: current directory)")
	rootCmd.PersistentFlags().String("backend-url", "", "Backend base URL")
	rootCmd.PersistentFlags().String("api-key", "", "Backend API key")
	rootCmd.PersistentFlags().String("state-path", "", "Path to the sync state database")
	rootCmd.PersistentFlags().String("settings-path", "", "Path to the sync settings file")
	rootCmd.PersistentFlags().String("language", "", "Display language (en, zh-CN)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewStatusCommand())
	rootCmd.AddCommand(commands.NewModelsCommand())
	rootCmd.AddCommand(commands.NewFoldersCommand())
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewServeCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logError(rootCmd, err)
		return 1
	}
	return 0
}

func logError(cmd *cobra.Command, err error) {
	slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)).Error("command failed", "error", err)
}
