// Package cli implements the todosync command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dori/todosync/internal/app"
	"github.com/dori/todosync/internal/config"
	"github.com/dori/todosync/internal/debug"
	"github.com/dori/todosync/internal/ui"
)

type options struct {
	configDir string
	theme     string
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the TUI.
func NewRootCmd(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "todosync",
		Short: "A terminal task list with undo, reminders and Google Tasks sync",
		Long: `todosync keeps a personal task list in your terminal.

Run without arguments to open the interactive list. Tasks can also be
managed from the shell, e.g.

  todosync add "Pay rent @home due:friday every:monthly"
  todosync list --status active`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config", "", "Configuration directory (default $XDG_CONFIG_HOME/todosync)")
	root.Flags().StringVar(&opts.theme, "theme", "", "Theme for this session (dark, light)")

	root.AddCommand(
		newAddCmd(opts),
		newListCmd(opts),
		newDoneCmd(opts),
		newRemoveCmd(opts),
		newUndoCmd(opts),
		newRedoCmd(opts),
		newClearCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newVersionCmd(version),
	)
	root.Version = version
	return root
}

// Execute runs the root command
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (o *options) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runTUI(ctx context.Context, opts *options) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if opts.theme != "" {
		application.Session.SetTheme(opts.theme)
	}
	application.Start(ctx)

	p := tea.NewProgram(
		ui.NewRootModel(application),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err = p.Run()
	debug.Log("cli: tui exited: %v", err)
	return err
}
