package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tasktide/tasktide/internal/model"
)

// TaskSource is what the pomodoro commands need from the rest of the app:
// the set of tasks a session can be logged against.
type TaskSource interface {
	ActiveTasks() ([]model.Task, error)
}

var pomoCmd = &cobra.Command{
	Use:   "pomo",
	Short: "Pomodoro sessions",
}

var (
	pomoPlanned int
	pomoActual  int
	pomoNote    string
)

var pomoLogCmd = &cobra.Command{
	Use:   "log <task-id>",
	Short: "Record a completed session for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		if pomoActual <= 0 {
			pomoActual = pomoPlanned
		}

		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := orch.Store().GetTaskByID(taskID); err != nil {
			return fmt.Errorf("task %d: %w", taskID, err)
		}

		now := time.Now().UTC()
		sess := model.PomodoroSession{
			TaskID:      taskID,
			StartedAt:   now.Add(-time.Duration(pomoActual) * time.Second).Format(time.RFC3339),
			EndedAt:     now.Format(time.RFC3339),
			PlannedSecs: int64(pomoPlanned),
			ActualSecs:  int64(pomoActual),
			Note:        pomoNote,
		}
		id, err := orch.LogPomodoro(sess)
		if err != nil {
			return err
		}
		fmt.Printf("Logged session %d for task %d (%s)\n", id, taskID, fmtSecs(int64(pomoActual)))
		return nil
	},
}

var pomoHistoryCmd = &cobra.Command{
	Use:   "history <task-id>",
	Short: "Show sessions logged for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		taskID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		sessions, err := orch.PomodoroHistory(taskID)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		var total int64
		for _, s := range sessions {
			note := s.Note
			if note != "" {
				note = " " + note
			}
			fmt.Printf("  %-20s %s%s\n", s.EndedAt, fmtSecs(s.ActualSecs), note)
			total += s.ActualSecs
		}
		fmt.Printf("Total: %s over %d sessions\n", fmtSecs(total), len(sessions))
		return nil
	},
}

var pomoTasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks a session can be logged against",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		return printPomoTasks(orch)
	},
}

func printPomoTasks(src TaskSource) error {
	tasks, err := src.ActiveTasks()
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, t := range tasks {
		if t.Status == model.StatusDone {
			continue
		}
		printTaskLine(t)
	}
	return nil
}

func fmtSecs(secs int64) string {
	d := time.Duration(secs) * time.Second
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	pomoLogCmd.Flags().IntVar(&pomoPlanned, "planned", 1500, "Planned length in seconds")
	pomoLogCmd.Flags().IntVar(&pomoActual, "actual", 0, "Actual length in seconds (defaults to planned)")
	pomoLogCmd.Flags().StringVar(&pomoNote, "note", "", "Optional note")
	pomoCmd.AddCommand(pomoLogCmd, pomoHistoryCmd, pomoTasksCmd)
}
