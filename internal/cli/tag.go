package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := orch.AddTag(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created tag %d: %s\n", id, args[0])
		return nil
	},
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <tag-id>",
	Short: "Delete a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tag id %q", args[0])
		}
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := orch.DeleteTag(id); err != nil {
			return err
		}
		fmt.Printf("Deleted tag %d\n", id)
		return nil
	},
}

var tagLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := openOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		tags, err := orch.Store().GetTags()
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("No tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Printf("  #%-5d %s\n", t.ID, t.Name)
		}
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagAddCmd, tagRmCmd, tagLsCmd)
}
