package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/inkwell-labs/vaultsync/internal/controller"
	"github.com/inkwell-labs/vaultsync/internal/i18n"
	"github.com/inkwell-labs/vaultsync/internal/indexer"
	syncprog "github.com/inkwell-labs/vaultsync/internal/progress"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	var (
		full    bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a force sync of the vault",
		Long: `Index every in-scope file and update the sync state. Every file is
hashed; files whose content hash matches the stored state are skipped
unless --full or --no-cache is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := indexer.Options{ForceFull: full, UseCache: !noCache}
			if term.IsTerminal(int(os.Stdout.Fd())) {
				return runSyncTUI(cmd, cmdCtx.Ctrl, opts)
			}
			return runSyncPlain(cmd, cmdCtx.Ctrl, opts)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Re-index every file, ignoring cached state")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not skip files whose content hash is unchanged")
	return cmd
}

type syncDone struct {
	res controller.SyncResult
	err error
}

// startSync launches the force sync and hands back the tracker's
// subscription once the run is under way.
func startSync(ctx context.Context, ctrl *controller.Controller, opts indexer.Options) (<-chan syncprog.Display, func(), <-chan syncDone) {
	done := make(chan syncDone, 1)
	go func() {
		res, err := ctrl.ForceSync(ctx, opts)
		done <- syncDone{res: res, err: err}
	}()

	// The tracker appears once ForceSync has claimed the run slot.
	for {
		if tracker := ctrl.ProgressTracker(); tracker != nil {
			ch := tracker.Subscribe()
			return ch, func() { tracker.Unsubscribe(ch) }, done
		}
		select {
		case d := <-done:
			// Finished (or refused) before we ever saw a tracker.
			closed := make(chan syncprog.Display)
			close(closed)
			done <- d
			return closed, func() {}, done
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func runSyncPlain(cmd *cobra.Command, ctrl *controller.Controller, opts indexer.Options) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, i18n.T("Preparing sync"))

	ch, unsubscribe, done := startSync(cmd.Context(), ctrl, opts)
	defer unsubscribe()

	for d := range ch {
		if d.Indeterminate {
			continue
		}
		_, _ = fmt.Fprintf(out, "%s: %d/%d\n", i18n.T("Files"), d.Value, d.Max)
	}

	return finishSync(cmd, <-done)
}

func finishSync(cmd *cobra.Command, d syncDone) error {
	if d.err != nil {
		return fmt.Errorf("%s: %w", i18n.T("Sync failed"), d.err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s, %d %s, %d %s\n",
		i18n.T("Sync complete"),
		d.res.Result.Indexed, i18n.T("indexed"),
		d.res.Result.Skipped, i18n.T("unchanged"),
		d.res.Result.Pruned, i18n.T("pruned"))
	return nil
}

var syncTitleStyle = lipgloss.NewStyle().Bold(true)

type syncModel struct {
	spinner spinner.Model
	bar     progress.Model
	display syncprog.Display
	updates <-chan syncprog.Display
	done    <-chan syncDone
	outcome *syncDone
}

type displayMsg syncprog.Display
type streamClosedMsg struct{}
type doneMsg syncDone

func newSyncModel(updates <-chan syncprog.Display, done <-chan syncDone) syncModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return syncModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		display: syncprog.Display{Indeterminate: true, Max: 1},
		updates: updates,
		done:    done,
	}
}

func (m syncModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		d, open := <-m.updates
		if !open {
			return streamClosedMsg{}
		}
		return displayMsg(d)
	}
}

func (m syncModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg(<-m.done)
	}
}

func (m syncModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case displayMsg:
		m.display = syncprog.Display(msg)
		return m, m.waitForUpdate()
	case streamClosedMsg:
		return m, m.waitForDone()
	case doneMsg:
		outcome := syncDone(msg)
		m.outcome = &outcome
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m syncModel) View() string {
	if m.outcome != nil {
		return ""
	}
	if m.display.Indeterminate {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), i18n.T("Preparing sync"))
	}
	return fmt.Sprintf("%s %s\n%s %d/%d\n",
		m.spinner.View(), syncTitleStyle.Render(i18n.T("Syncing vault")),
		m.bar.ViewAs(m.display.Percent()), m.display.Value, m.display.Max)
}

func runSyncTUI(cmd *cobra.Command, ctrl *controller.Controller, opts indexer.Options) error {
	ch, unsubscribe, done := startSync(cmd.Context(), ctrl, opts)
	defer unsubscribe()

	p := tea.NewProgram(newSyncModel(ch, done), tea.WithOutput(cmd.OutOrStdout()))
	final, err := p.Run()
	if err != nil {
		return err
	}

	if m, ok := final.(syncModel); ok && m.outcome != nil {
		return finishSync(cmd, *m.outcome)
	}
	// Interrupted before the run finished; the deferred teardown in the
	// controller still completes the run row.
	return finishSync(cmd, <-done)
}
