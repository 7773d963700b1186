package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

var startTaskAssignee string

var startTaskCmd = &cobra.Command{
	Use:   "start-task \"<text>\"",
	Short: "Create a task from free text and assign it, a beekeeper shortcut over task create+assign",
	Args:  cobra.ExactArgs(1),
	RunE:  runStartTask,
}

func init() {
	startTaskCmd.Flags().StringVar(&startTaskAssignee, "assignee", string(domain.Queen), "bee to assign the task to")
	rootCmd.AddCommand(startTaskCmd)
}

func runStartTask(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	assignee, err := beeArg(startTaskAssignee)
	if err != nil {
		return exitErr(ExitError, err)
	}

	ctx := cmd.Context()
	task, err := h.tasks.CreateTask(ctx, args[0], args[0], domain.PriorityMedium, domain.Beekeeper, "")
	if err != nil {
		return exitErr(ExitError, err)
	}
	if err := h.tasks.Assign(ctx, task.ID(), assignee, domain.Beekeeper); err != nil {
		return exitErr(ExitError, err)
	}

	fmt.Printf("created task %s, assigned to %s\n", task.ID(), assignee)
	return nil
}
