package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <task-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Delete a task. With --future, delete the task and every later
occurrence in its recurring series.

Examples:
  tasktide delete 12
  tasktide delete 12 --future`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var deleteFuture bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteFuture, "future", "f", false,
		"Also delete later occurrences in the same series")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	orch, cleanup, err := openOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	if deleteFuture {
		if err := orch.DeleteFuture(id); err != nil {
			return err
		}
		fmt.Printf("Deleted task %d and later occurrences\n", id)
		return nil
	}
	if err := orch.DeleteTask(id); err != nil {
		return err
	}
	fmt.Printf("Deleted task %d\n", id)
	return nil
}
