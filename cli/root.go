// Package cli wires the scriptable subcommands and the default TUI
// entry around the shared task service.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"todotui/app"
	"todotui/config"
	"todotui/store"
	"todotui/todotxt"
	"todotui/tui"
)

// App carries the persistent flag values shared by every subcommand.
type App struct {
	File string
}

func NewRootCmd() *cobra.Command {
	a := &App{}

	cmd := &cobra.Command{
		Use:          "todotui",
		Short:        "todo.txt manager with an interactive TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  todotui

  # Scriptable commands
  todotui add "(A) pay bills +Finance due:2026-09-01"
  todotui list --search bills
  todotui do 3
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTUI(a)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.File, "file", "f", "", "Path to the todo.txt file (default: $TODO_FILE, ./todo.txt, ~/todo.txt)")

	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newDoCmd(a))
	cmd.AddCommand(newEditCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newPriCmd(a))
	cmd.AddCommand(newDepriCmd(a))
	cmd.AddCommand(newProjectsCmd(a))
	cmd.AddCommand(newContextsCmd(a))

	return cmd
}

func runTUI(a *App) error {
	svc, _, err := loadService(a)
	if err != nil {
		return err
	}
	cfg, cfgPath := loadUserConfig()
	detected := todotxt.DetectPriorityFormat(svc.Tasks())
	return tui.Run(svc, cfg, cfgPath, detected)
}

// loadService resolves the backing file and builds a service over its
// tasks, using the configured priority mode.
func loadService(a *App) (*app.Service, string, error) {
	path, err := store.ResolvePath(a.File)
	if err != nil {
		return nil, "", err
	}
	tasks, err := store.LoadTasks(path)
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", path, err)
	}
	cfg, _ := loadUserConfig()
	return app.NewService(tasks, path, cfg.PriorityMode), path, nil
}

// loadUserConfig falls back to defaults when the config location is
// unavailable; subcommands should not fail over a settings file.
func loadUserConfig() (config.Config, string) {
	path, err := config.DefaultPath()
	if err != nil {
		log.Warn("config dir unavailable", "err", err)
		return config.Default(), ""
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		log.Warn("config unreadable, using defaults", "err", err, "path", path)
		return config.Default(), ""
	}
	return cfg, path
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}
