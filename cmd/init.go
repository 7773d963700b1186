package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/log"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Start the hive: create the multiplexer session and inject every bee's role",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "tear down and recreate an existing session")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return exitErr(ExitError, err)
	}

	if pidFileExists() && !initForce {
		return exitErr(ExitAlreadyRunning, fmt.Errorf("hive already running (pid file present); use --force to restart"))
	}

	h, err := buildHive(cfg)
	if err != nil {
		return exitErr(ExitError, err)
	}
	defer h.Close()

	ctx := cmd.Context()

	if initForce {
		_ = h.supervisor.Stop(ctx)
		_ = removePIDFile()
	}

	docs, err := loadRoleDocs(cfg)
	if err != nil {
		return exitErr(ExitError, fmt.Errorf("loading role documents: %w", err))
	}

	if err := h.supervisor.Init(ctx, docs); err != nil {
		var timeoutErr *errs.RoleInjectionTimeoutError
		if errors.As(err, &timeoutErr) {
			log.Error(log.CatCLI, "role injection timed out", "bee", timeoutErr.Bee)
			return exitErr(ExitRoleTimeout, err)
		}
		var transportErr *errs.TransportError
		if errors.As(err, &transportErr) {
			return exitErr(ExitNoMultiplexer, err)
		}
		return exitErr(ExitError, err)
	}

	if err := writePIDFile(os.Getpid()); err != nil {
		log.ErrorErr(log.CatCLI, "failed to write pid file", err)
	}

	fmt.Printf("hive %q started: %d bees injected\n", cfg.SessionName, len(docs))
	return nil
}
