package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

var remindBee string

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Force an immediate role reminder, to every bee or one named with --bee",
	RunE:  runRemind,
}

func init() {
	remindCmd.Flags().StringVar(&remindBee, "bee", "", "only remind this bee")
	rootCmd.AddCommand(remindCmd)
}

func runRemind(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	var bee domain.BeeName
	if remindBee != "" {
		bee, err = beeArg(remindBee)
		if err != nil {
			return exitErr(ExitError, err)
		}
	}

	h.supervisor.Remind(cmd.Context(), bee)
	if bee != "" {
		fmt.Printf("reminded %s\n", bee)
	} else {
		fmt.Println("reminded every bee")
	}
	return nil
}
