package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/log"
)

var (
	logsLines  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs [bee]",
	Short: "Read recent pane output for a bee (or every bee), delegated to the multiplexer",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogs,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 0, "number of trailing lines to capture (0 = multiplexer default)")
	logsCmd.Flags().BoolVar(&logsFollow, "follow", false, "stream the hive's structured log instead of a pane snapshot")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	if logsFollow {
		return followLogs(cmd)
	}

	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	bees := h.panes.Bees()
	if len(args) == 1 {
		bee, err := beeArg(args[0])
		if err != nil {
			return exitErr(ExitError, err)
		}
		bees = []domain.BeeName{bee}
	}

	ctx := cmd.Context()
	for _, bee := range bees {
		output, err := h.injector.CapturePane(ctx, bee, logsLines)
		if err != nil {
			fmt.Printf("=== %s: error: %v ===\n", bee, err)
			continue
		}
		fmt.Printf("=== %s ===\n%s\n", bee, output)
	}
	return nil
}

// followLogs streams the hive's structured log as it's written, via the
// same continuous listener the log package built for this command. It
// drains the listener's tea.Cmd directly rather than running it through a
// Bubble Tea program, since `logs --follow` is a plain line-printing loop.
func followLogs(cmd *cobra.Command) error {
	listener := log.NewListener(cmd.Context())
	if listener == nil {
		return exitErr(ExitError, fmt.Errorf("log streaming unavailable: logger not initialized"))
	}
	for {
		msg := listener.Listen()()
		if msg == nil {
			return nil
		}
		event, ok := msg.(log.LogEvent)
		if !ok {
			continue
		}
		fmt.Print(event.Payload)
	}
}
