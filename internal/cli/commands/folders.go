package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/inkwell-labs/vaultsync/internal/controller"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/vault"
)

// NewFoldersCommand creates the folders command and its mutation
// subcommands.
func NewFoldersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List vault folders and manage the sync scope",
		Long: `List the vault's folders with their scope status, or mutate the
include and exclude sets. The vault root is addressed as "/".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return renderFolders(cmd, cmdCtx.Ctrl)
		},
	}

	cmd.AddCommand(newFolderMutationCommand("include", "Add a folder to the synced set",
		func(c *controller.Controller, path string) (vault.Metrics, error) { return c.IncludeFolder(path) }))
	cmd.AddCommand(newFolderMutationCommand("uninclude", "Remove a folder from the synced set",
		func(c *controller.Controller, path string) (vault.Metrics, error) { return c.RemoveIncludeFolder(path) }))
	cmd.AddCommand(newFolderMutationCommand("exclude", "Add a folder to the excluded set",
		func(c *controller.Controller, path string) (vault.Metrics, error) { return c.ExcludeFolder(path) }))
	cmd.AddCommand(newFolderMutationCommand("unexclude", "Remove a folder from the excluded set",
		func(c *controller.Controller, path string) (vault.Metrics, error) { return c.RemoveExcludeFolder(path) }))
	return cmd
}

func newFolderMutationCommand(verb, short string, mutate func(*controller.Controller, string) (vault.Metrics, error)) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			path := args[0]
			if path == "/" {
				path = ""
			}
			metrics, err := mutate(cmdCtx.Ctrl, path)
			if err != nil {
				return err
			}
			if metrics.Available {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s / %s\n",
					i18n.T("Vault usage"), formatBytes(metrics.UsedBytes), formatBytes(metrics.TotalBytes))
			}
			return renderFolders(cmd, cmdCtx.Ctrl)
		},
	}
}

func renderFolders(cmd *cobra.Command, ctrl *controller.Controller) error {
	infos, err := ctrl.Folders()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{i18n.T("Folder"), i18n.T("Included"), i18n.T("Excluded"), i18n.T("In scope")})
	for _, info := range infos {
		name := info.Path
		if name == "" {
			name = "/"
		}
		t.AppendRow(table.Row{name, mark(info.Included), mark(info.Excluded), mark(info.InScope)})
	}
	t.Render()
	return nil
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return ""
}
