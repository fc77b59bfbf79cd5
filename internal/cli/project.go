package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"proj"},
	Short:   "Manage projects",
}

var projectAddTag string

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project (idempotent by name)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		var tagID *int64
		if projectAddTag != "" {
			id, err := findTagID(orch, projectAddTag)
			if err != nil {
				return err
			}
			tagID = &id
		}
		id, err := orch.AddProject(cmd.Context(), args[0], tagID)
		if err != nil {
			return err
		}
		fmt.Printf("Project %d: %s\n", id, args[0])
		return nil
	},
}

var projectRmCmd = &cobra.Command{
	Use:   "rm <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid project id %q", args[0])
		}
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := orch.DeleteProject(id); err != nil {
			return err
		}
		fmt.Printf("Deleted project %d\n", id)
		return nil
	},
}

var projectLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		projects, err := orch.Store().GetProjects()
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			tag := ""
			if p.TagID != nil {
				tag = fmt.Sprintf("tag %d", *p.TagID)
			}
			fmt.Printf("  #%-5d %-32s %s\n", p.ID, p.Name, tag)
		}
		return nil
	},
}

func init() {
	projectAddCmd.Flags().StringVarP(&projectAddTag, "tag", "t", "", "Tag name to associate")
	projectCmd.AddCommand(projectAddCmd, projectRmCmd, projectLsCmd)
}
