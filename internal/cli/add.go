package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tasktide/tasktide/internal/store"
	"github.com/tasktide/tasktide/internal/sync"
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task",
	Long: `Add a task to the board, optionally scheduled or recurring.

Examples:
  tasktide add "Buy groceries"
  tasktide add "Weekly review" --due 2026-09-04
  tasktide add "Standup" --start 2026-09-01T09:00:00 --end 2026-09-01T09:15:00 \
      --rrule "FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=12"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addNotes   string
	addDue     string
	addStart   string
	addEnd     string
	addTag     string
	addProject string
	addRRule   string
)

func init() {
	addCmd.Flags().StringVarP(&addNotes, "notes", "n", "", "Free-form notes")
	addCmd.Flags().StringVarP(&addDue, "due", "d", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&addStart, "start", "", "Start time (YYYY-MM-DDTHH:MM:SS)")
	addCmd.Flags().StringVar(&addEnd, "end", "", "End time (YYYY-MM-DDTHH:MM:SS)")
	addCmd.Flags().StringVarP(&addTag, "tag", "t", "", "Tag name (created if missing)")
	addCmd.Flags().StringVarP(&addProject, "project", "P", "", "Project name (created if missing)")
	addCmd.Flags().StringVar(&addRRule, "rrule", "", "Recurrence rule (FREQ=DAILY or FREQ=WEEKLY)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	orch, cleanup, err := openOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	title := strings.Join(args, " ")

	params := store.TaskParams{
		Title:   title,
		Notes:   addNotes,
		DueDate: addDue,
		StartTS: addStart,
		EndTS:   addEnd,
	}

	if addTag != "" {
		tagID, err := orch.AddTag(addTag)
		if err != nil {
			// Probably exists already; resolve by name.
			tagID, err = findTagID(orch, addTag)
			if err != nil {
				return err
			}
		}
		params.TagID = &tagID
	}

	if addProject != "" {
		projectID, err := orch.AddProject(ctx, addProject, params.TagID)
		if err != nil {
			return err
		}
		params.ProjectID = &projectID
	}

	var id int64
	if addRRule != "" {
		id, err = orch.UpsertSeries(params, addRRule)
	} else {
		id, err = orch.UpsertTask(params)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Added #%d: %q\n", id, title)
	return nil
}

func findTagID(orch *sync.Orchestrator, name string) (int64, error) {
	tags, err := orch.Store().GetTags()
	if err != nil {
		return 0, err
	}
	for _, t := range tags {
		if t.Name == name {
			return t.ID, nil
		}
	}
	return 0, fmt.Errorf("tag %q not found", name)
}
