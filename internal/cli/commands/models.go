package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/reconcile"
)

// NewModelsCommand creates the models command.
func NewModelsCommand() *cobra.Command {
	var (
		selectID   string
		useDefault bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List chat models or change the selection",
		Long: `List the chat models the backend offers and which one is selected.

With --select the chosen model is pushed to the backend; with --default
the selection is cleared so the backend's own default applies.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if selectID != "" && useDefault {
				return fmt.Errorf("--select and --default are mutually exclusive")
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := cmdCtx.Ctrl.ApplyConnectivityChange(cmd.Context())
			if err != nil {
				return err
			}
			if snap.State == reconcile.StateDisconnected {
				return fmt.Errorf("%s", i18n.T("Not connected"))
			}

			switch {
			case selectID != "":
				if err := cmdCtx.Ctrl.SelectModel(cmd.Context(), &selectID); err != nil {
					return err
				}
			case useDefault:
				if err := cmdCtx.Ctrl.SelectModel(cmd.Context(), nil); err != nil {
					return err
				}
			}

			renderModels(cmd, cmdCtx.Ctrl.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&selectID, "select", "", "Select the model with this id")
	cmd.Flags().BoolVar(&useDefault, "default", false, "Clear the selection and use the backend default")
	return cmd
}

func renderModels(cmd *cobra.Command, snap reconcile.Snapshot) {
	if len(snap.Models) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("No models available"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", i18n.T("ID"), i18n.T("Name")})
	for _, m := range snap.Models {
		marker := ""
		if snap.SelectedModelID != nil && *snap.SelectedModelID == m.ID {
			marker = "*"
		}
		t.AppendRow(table.Row{marker, m.ID, m.Name})
	}
	t.Render()

	if snap.SelectedModelID == nil {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), i18n.T("Backend default"))
	}
}
