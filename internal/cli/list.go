package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tasktide/tasktide/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List backlog tasks, or the calendar with --events.

Examples:
  tasktide list
  tasktide list --all
  tasktide list --events`,
	RunE: runList,
}

var (
	listAll    bool
	listEvents bool
)

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include scheduled tasks")
	listCmd.Flags().BoolVarP(&listEvents, "events", "e", false, "Show calendar occurrences instead")
}

func runList(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := openOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	if listEvents {
		events, err := orch.Store().GetEvents()
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No scheduled occurrences.")
			return nil
		}
		for _, e := range events {
			printEventLine(e)
		}
		return nil
	}

	var tasks []model.Task
	if listAll {
		tasks, err = orch.Store().GetAllTasks()
	} else {
		tasks, err = orch.ActiveTasks()
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks. Add one with: tasktide add \"Your task\"")
		return nil
	}
	for _, t := range tasks {
		printTaskLine(t)
	}
	return nil
}

func printEventLine(t model.Task) {
	series := ""
	if t.SeriesID != nil {
		series = fmt.Sprintf("series %d", *t.SeriesID)
	}
	fmt.Printf("  #%-5d %-19s - %-19s %-32s %s\n", t.ID, t.StartTS, t.EndTS, t.Title, series)
}
