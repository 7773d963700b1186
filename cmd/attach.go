package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Hand off to the multiplexer's attach, putting the hive session on your terminal",
	RunE:  runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	h, err := hiveFromFlags()
	if err != nil {
		return err
	}
	defer h.Close()

	binPath := h.cfg.TmuxBinPath
	if binPath == "" {
		binPath = "tmux"
	}
	session := h.injector.Session()

	attach := exec.CommandContext(cmd.Context(), binPath, "attach-session", "-t", session)
	attach.Stdin = os.Stdin
	attach.Stdout = os.Stdout
	attach.Stderr = os.Stderr
	if err := attach.Run(); err != nil {
		return exitErr(ExitNoMultiplexer, fmt.Errorf("attaching to session %q: %w", session, err))
	}
	return nil
}
