package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"todotui/app"
	"todotui/model"
	"todotui/todotxt"
)

func newAddCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a task (a leading \"(X) \" sets its priority)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			task, err := svc.Add(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d: %s\n", task.ID, todotxt.SerializeTask(task))
			return nil
		},
	}
}

func newListCmd(a *App) *cobra.Command {
	var (
		all    bool
		search string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in priority order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			if all && !svc.ShowCompleted() {
				svc.ToggleShowCompleted()
			}
			svc.SetSearch(search)
			for _, t := range svc.VisibleTasks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d %s\n", t.ID, todotxt.SerializeTask(t))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed tasks")
	cmd.Flags().StringVar(&search, "search", "", "Only tasks containing this text")
	return cmd
}

func newDoCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "do <id>",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			task, err := svc.ToggleCompletion(id)
			if err != nil {
				return taskErr(id, err)
			}
			verb := "Done"
			if !task.Completed {
				verb = "Reopened"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %s\n", verb, task.ID, todotxt.SerializeTask(task))
			return nil
		},
	}
}

func newEditCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>...",
		Short: "Replace a task's text",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			task, err := svc.UpdateText(id, strings.Join(args[1:], " "))
			if err != nil {
				return taskErr(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d: %s\n", task.ID, todotxt.SerializeTask(task))
			return nil
		},
	}
}

func newDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			if err := svc.Delete(id); err != nil {
				return taskErr(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d\n", id)
			return nil
		},
	}
}

func newPriCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pri <id> <priority>",
		Short: "Set a task's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			sym := strings.ToUpper(strings.TrimSpace(args[1]))
			task, err := svc.SetPriority(id, sym)
			if err != nil {
				if errors.Is(err, app.ErrInvalidPriority) {
					if svc.PriorityMode() == model.PriorityNumbers {
						return fmt.Errorf("invalid priority %q: number mode takes 0-9", args[1])
					}
					return fmt.Errorf("invalid priority %q: letter mode takes A-Z", args[1])
				}
				return taskErr(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prioritized %d: %s\n", task.ID, todotxt.SerializeTask(task))
			return nil
		},
	}
}

func newDepriCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "depri <id>",
		Short: "Remove a task's priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			task, err := svc.ClearPriority(id)
			if err != nil {
				return taskErr(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deprioritized %d: %s\n", task.ID, todotxt.SerializeTask(task))
			return nil
		},
	}
}

func newProjectsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List every project tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			for _, name := range svc.AllProjects() {
				fmt.Fprintf(cmd.OutOrStdout(), "+%s\n", name)
			}
			return nil
		},
	}
}

func newContextsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List every context tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := loadService(a)
			if err != nil {
				return err
			}
			for _, name := range svc.AllContexts() {
				fmt.Fprintf(cmd.OutOrStdout(), "@%s\n", name)
			}
			return nil
		},
	}
}

func taskErr(id int, err error) error {
	if errors.Is(err, app.ErrTaskNotFound) {
		return fmt.Errorf("no task with id %d", id)
	}
	return err
}
