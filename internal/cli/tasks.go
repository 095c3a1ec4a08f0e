package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dori/todosync/internal/app"
	"github.com/dori/todosync/internal/filter"
	"github.com/dori/todosync/internal/model"
	"github.com/dori/todosync/internal/quickadd"
)

// withApp opens the application for a one-shot command. When sync is
// configured it signs in first so the change is mirrored; Close waits for
// the remote calls to finish.
func withApp(cmd *cobra.Command, opts *options, fn func(a *app.App) error) (err error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	if err := a.Connect(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: working offline: %v\n", err)
	}
	return fn(a)
}

func newAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <task>",
		Short: "Quick add a task",
		Long: `Quick add a task. Words starting with @ become tags,
due:<date> sets the due date and every:<period> makes it repeat.

  todosync add "Review PR @work due:tomorrow"
  todosync add "Water plants every:weekly due:sat"

Dates: today, tomorrow, nextweek, monday..sunday, 2024-01-15, 2024-01-15T09:30`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := quickadd.Parse(strings.Join(args, " "), time.Now())
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(a *app.App) error {
				if err := a.Session.Add(d); err != nil {
					return err
				}
				tasks := a.Session.Tasks()
				fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", formatTask(len(tasks), tasks[len(tasks)-1]))
				return nil
			})
		},
	}
}

func newListCmd(opts *options) *cobra.Command {
	var status, tag, search string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			crit := filter.Criteria{
				Status: filter.ParseStatus(status),
				Tag:    strings.TrimPrefix(tag, "@"),
				Search: search,
			}
			return withApp(cmd, opts, func(a *app.App) error {
				printList(cmd.OutOrStdout(), a.Session.Tasks(), crit)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "all", "Show all, active or completed tasks")
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Only show tasks with this tag")
	cmd.Flags().StringVarP(&search, "search", "q", "", "Only show tasks containing this text")
	return cmd
}

func newDoneCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "done <n|id>",
		Short: "Toggle a task between done and not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				t, err := resolveTask(a.Session.Tasks(), args[0])
				if err != nil {
					return err
				}
				a.Session.ToggleComplete(t.ID)
				verb := "Completed"
				if t.Completed {
					verb = "Reopened"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verb, t.Text)
				return nil
			})
		},
	}
}

func newRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <n|id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				t, err := resolveTask(a.Session.Tasks(), args[0])
				if err != nil {
					return err
				}
				a.Session.Delete(t.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", t.Text)
				return nil
			})
		},
	}
}

func newUndoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Undo the last change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				if !a.Session.Undo() {
					return errors.New("nothing to undo")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Undone.")
				return nil
			})
		},
	}
}

func newRedoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				if !a.Session.Redo() {
					return errors.New("nothing to redo")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Redone.")
				return nil
			})
		},
	}
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all completed tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app.App) error {
				before := len(a.Session.Tasks())
				a.Session.ClearCompleted()
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed tasks.\n", before-len(a.Session.Tasks()))
				return nil
			})
		},
	}
}

// resolveTask finds a task by its 1-based list number or by id prefix
func resolveTask(c model.Collection, arg string) (model.Task, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(c) {
			return model.Task{}, fmt.Errorf("no task number %d (have %d)", n, len(c))
		}
		return c[n-1], nil
	}

	var found []model.Task
	for _, t := range c {
		if t.ID == arg {
			return t, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.Task{}, fmt.Errorf("no task matches %q", arg)
	case 1:
		return found[0], nil
	default:
		return model.Task{}, fmt.Errorf("%q matches %d tasks", arg, len(found))
	}
}

// printList prints the visible tasks numbered by their place in the full
// collection, so the numbers work with done and rm.
func printList(w io.Writer, c model.Collection, crit filter.Criteria) {
	visible := filter.Apply(c, crit)
	if len(visible) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return
	}
	width := terminalWidth(w)
	for _, t := range visible {
		line := formatTask(c.Index(t.ID)+1, t)
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\n%d of %d remaining\n", filter.Remaining(c), len(c))
}

// terminalWidth returns the column count when w is a terminal, 0 otherwise
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func formatTask(n int, t model.Task) string {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%3d %s %s", n, check, t.Text)
	if t.HasDue() {
		fmt.Fprintf(&b, "  due %s", t.Due)
		if t.IsOverdue(time.Now()) {
			b.WriteString(" (overdue)")
		}
	}
	if t.Recurrence.IsRecurring() {
		fmt.Fprintf(&b, "  every %s", t.Recurrence)
	}
	for _, tag := range t.Tags {
		fmt.Fprintf(&b, "  #%s", tag)
	}
	return b.String()
}
