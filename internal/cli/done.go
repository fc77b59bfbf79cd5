package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tasktide/tasktide/internal/model"
)

var doneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Mark a task done",
	Long: `Mark a task done, or set another status with --status.

Examples:
  tasktide done 12
  tasktide done 12 --status "in progress"`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

var doneStatus string

func init() {
	doneCmd.Flags().StringVarP(&doneStatus, "status", "s", model.StatusDone,
		"Status to set (not started, in progress, done)")
}

func runDone(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}
	switch doneStatus {
	case model.StatusNotStarted, model.StatusInProgress, model.StatusDone:
	default:
		return fmt.Errorf("unknown status %q", doneStatus)
	}

	orch, cleanup, err := openOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := orch.SetTaskStatus(cmd.Context(), id, doneStatus); err != nil {
		return err
	}
	fmt.Printf("Task %d: %s\n", id, doneStatus)
	return nil
}
