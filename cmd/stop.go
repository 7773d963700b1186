package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopYes bool

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Shut down the hive: sentinel every bee and tear down the multiplexer session",
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().BoolVarP(&stopYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	if !stopYes {
		fmt.Print("Stop the hive? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.supervisor.Stop(cmd.Context()); err != nil {
		return exitErr(ExitError, err)
	}
	_ = removePIDFile()
	fmt.Println("hive stopped")
	return nil
}
