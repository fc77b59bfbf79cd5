package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tasktide/tasktide/internal/config"
	"github.com/tasktide/tasktide/internal/logger"
	"github.com/tasktide/tasktide/internal/model"
	"github.com/tasktide/tasktide/internal/remote"
	"github.com/tasktide/tasktide/internal/store"
	"github.com/tasktide/tasktide/internal/sync"
)

var (
	logLevel   string
	logConsole bool
)

var rootCmd = &cobra.Command{
	Use:   "tasktide",
	Short: "tasktide - local-first task board with calendar, pomodoro and sync",
	Long: `tasktide keeps your tasks, calendar occurrences and pomodoro log in a
local database and mirrors them to a remote backend when one is configured.

Run 'tasktide' without arguments to print the board.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			cfg = config.DefaultConfig()
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
		}

		return logger.Init(logger.Config{
			Level:    logger.ParseLevel(cfg.LogLevel),
			FilePath: cfg.LogFile,
			MaxSize:  10 * 1024 * 1024,
			Console:  cfg.LogConsole,
		})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()
		return printBoard(orch)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Mirror log entries to stderr")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(pomoCmd)
	rootCmd.AddCommand(syncCmd)
}

// openOrchestrator wires the store and the optional remote client from the
// user's config. The returned cleanup closes the store.
func openOrchestrator() (*sync.Orchestrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	path := cfg.DBPath
	if path == "" {
		path, err = store.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	var rc sync.Remote
	if cfg.RemoteURL != "" {
		rc = remote.NewClient(cfg.RemoteURL, cfg.RemoteKey)
	}

	orch := sync.New(st, rc)
	cleanup := func() {
		st.Close()
	}
	return orch, cleanup, nil
}

// printBoard groups backlog tasks into the three kanban lanes.
func printBoard(orch *sync.Orchestrator) error {
	tasks, err := orch.ActiveTasks()
	if err != nil {
		return err
	}

	lanes := []string{model.StatusNotStarted, model.StatusInProgress, model.StatusDone}
	byStatus := map[string][]model.Task{}
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	for _, lane := range lanes {
		fmt.Printf("\n%s (%d)\n", lane, len(byStatus[lane]))
		for _, t := range byStatus[lane] {
			printTaskLine(t)
		}
	}
	fmt.Println()
	return nil
}

func printTaskLine(t model.Task) {
	due := ""
	if t.DueDate != "" {
		due = "due " + t.DueDate
	}
	title := t.Title
	if len(title) > 48 {
		title = title[:45] + "..."
	}
	fmt.Printf("  #%-5d %-48s %s\n", t.ID, title, due)
}
