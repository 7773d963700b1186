// Package cmd implements beehive's command-line surface (spec 6): one
// subcommand per lifecycle or inspection operation, each wiring its own
// hive component graph from the loaded Config rather than running a
// persistent server process (the daemon subcommand is the one exception).
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/log"
)

var (
	version   string
	cfgFile   string
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "beehive",
	Short: "Orchestrates a hive of LLM-driven bees over a terminal multiplexer",
	Long: `beehive drives long-running interactive LLM CLI sessions (bees) hosted in
a terminal multiplexer, coordinating them through a durable store, a
message bus, and a task lifecycle.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: hive/hive.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging (also: BEEHIVE_DEBUG=1)")
}

// Execute runs the root command and returns the process exit code to use.
func Execute() int {
	cleanup, err := initLogging()
	if err == nil {
		defer cleanup()
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "beehive:", err)
		var ce *CommandError
		if errors.As(err, &ce) {
			return ce.Code
		}
		return ExitError
	}
	return ExitOK
}

// SetVersion sets the version string, called from main with ldflags.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func initLogging() (func(), error) {
	debug := os.Getenv("BEEHIVE_DEBUG") != "" || debugFlag
	logPath := os.Getenv("BEEHIVE_LOG")
	if logPath == "" {
		logPath = "hive/hive.log"
	}
	if err := os.MkdirAll("hive", 0o750); err != nil {
		return nil, err
	}
	cleanup, err := log.Init(logPath)
	if err != nil {
		return nil, err
	}
	log.SetEnabled(debug)
	return cleanup, nil
}
