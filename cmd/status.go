package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print bee liveness and task counts",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "refresh every tick_interval until interrupted")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	ctx := cmd.Context()
	if statusWatch {
		if err := runStatusWatch(ctx, h); err != nil {
			return exitErr(ExitError, err)
		}
		return nil
	}

	if err := printStatus(ctx, h); err != nil {
		return exitErr(ExitError, err)
	}
	return nil
}

func printStatus(ctx context.Context, h *hive) error {
	states, err := h.store.ListAgentStates(ctx)
	if err != nil {
		return err
	}
	for _, s := range states {
		task := "none"
		if s.CurrentTaskID() != nil {
			task = *s.CurrentTaskID()
		}
		fmt.Printf("%-10s %-8s task=%-36s last_heartbeat=%s\n",
			s.Bee(), s.Status(), task, s.LastHeartbeat().Format("2006-01-02T15:04:05"))
	}

	active, err := h.store.ActiveTasks(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("active tasks: %d\n", len(active))
	return nil
}
