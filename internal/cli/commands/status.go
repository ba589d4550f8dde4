package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/settings"
	"github.com/inkwell-labs/vaultsync/internal/vault"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection, scope, and vault usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := cmdCtx.Ctrl.ApplyConnectivityChange(cmd.Context())
			if err != nil {
				cmdCtx.Logger.Warn("connectivity refresh failed", "error", err)
			}

			cfg := cmdCtx.Ctrl.Settings()
			metrics := cmdCtx.Ctrl.Metrics()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendRows([]table.Row{
				{i18n.T("Vault"), cmdCtx.Cfg.VaultDir},
				{i18n.T("Connection"), connectionLine(snap.Connection.Connected, snap.Connection.StatusMessage)},
				{i18n.T("Chat model"), modelLine(snap.SelectedModelID)},
				{i18n.T("Synced folders"), folderList(cfg.SyncFolders)},
				{i18n.T("Excluded folders"), folderList(cfg.ExcludeFolders)},
				{i18n.T("File types"), fileTypeLine(cfg.FileTypes)},
				{i18n.T("Vault usage"), usageLine(metrics)},
			})
			t.Render()
			return nil
		},
	}
}

func connectionLine(connected bool, message string) string {
	if connected {
		return i18n.T("Connected")
	}
	if message != "" {
		return i18n.T(message)
	}
	return i18n.T("Not connected")
}

func modelLine(id *string) string {
	if id == nil {
		return i18n.T("Backend default")
	}
	return *id
}

func folderList(folders []string) string {
	if len(folders) == 0 {
		return i18n.T("None")
	}
	parts := make([]string, len(folders))
	for i, f := range folders {
		if f == "" {
			parts[i] = i18n.T("Entire vault")
		} else {
			parts[i] = f
		}
	}
	return strings.Join(parts, ", ")
}

func fileTypeLine(types settings.FileTypes) string {
	var parts []string
	if types.Markdown {
		parts = append(parts, "markdown")
	}
	if types.Images {
		parts = append(parts, "images")
	}
	if types.PDF {
		parts = append(parts, "pdf")
	}
	if len(parts) == 0 {
		return i18n.T("None")
	}
	return strings.Join(parts, ", ")
}

func usageLine(m vault.Metrics) string {
	if !m.Available {
		return i18n.T("Unavailable")
	}
	return fmt.Sprintf("%s / %s", formatBytes(m.UsedBytes), formatBytes(m.TotalBytes))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
