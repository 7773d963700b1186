package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beehive-org/beehive/internal/log"
)

var daemonForeground bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the Supervisor as a background process",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Supervisor's duty-sweep loop in the background",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal the background Supervisor process to exit",
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the Supervisor process is running",
	RunE:  runDaemonStatus,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Stop then start the Supervisor process",
	RunE:  runDaemonRestart,
}

var daemonRemindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Force an immediate role reminder (equivalent to top-level remind)",
	RunE:  runRemind,
}

var daemonLogsLines int

var daemonLogsCmd = &cobra.Command{
	Use:   "logs [n]",
	Short: "Print the last n lines of the hive's structured log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDaemonLogs,
}

func init() {
	daemonStartCmd.Flags().BoolVar(&daemonForeground, "foreground", false, "run the duty loop in this process instead of forking")
	daemonLogsCmd.Flags().IntVarP(&daemonLogsLines, "lines", "n", 100, "number of trailing lines")

	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonRestartCmd, daemonRemindCmd, daemonLogsCmd)
	rootCmd.AddCommand(daemonCmd)
}

const daemonPIDPath = "hive/beehive-daemon.pid"

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return exitErr(ExitError, err)
	}

	if daemonForeground {
		h, err := buildHive(cfg)
		if err != nil {
			return exitErr(ExitError, err)
		}
		defer h.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			log.Info(log.CatSupervisor, "daemon received shutdown signal")
			cancel()
		}()

		log.Info(log.CatSupervisor, "daemon duty loop starting")
		h.supervisor.Run(ctx)
		log.Info(log.CatSupervisor, "daemon duty loop stopped")
		return nil
	}

	if running, _ := daemonRunning(); running {
		return exitErr(ExitAlreadyRunning, fmt.Errorf("daemon already running"))
	}

	self, err := os.Executable()
	if err != nil {
		return exitErr(ExitError, err)
	}
	proc := exec.Command(self, "daemon", "start", "--foreground")
	proc.Stdout = nil
	proc.Stderr = nil
	proc.Stdin = nil
	if cfgFile != "" {
		proc.Args = append(proc.Args, "--config", cfgFile)
	}
	if err := proc.Start(); err != nil {
		return exitErr(ExitError, fmt.Errorf("forking daemon: %w", err))
	}
	if err := writeDaemonPIDFile(proc.Process.Pid); err != nil {
		return exitErr(ExitError, err)
	}
	fmt.Printf("daemon started (pid %d)\n", proc.Process.Pid)
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	pid, err := readDaemonPIDFile()
	if err != nil {
		return exitErr(ExitError, fmt.Errorf("daemon is not running: %w", err))
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return exitErr(ExitError, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return exitErr(ExitError, fmt.Errorf("signalling daemon: %w", err))
	}
	_ = os.Remove(daemonPIDPath)
	fmt.Println("daemon stopped")
	return nil
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	running, pid := daemonRunning()
	if running {
		fmt.Printf("daemon running (pid %d)\n", pid)
		return nil
	}
	fmt.Println("daemon not running")
	return nil
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	if running, _ := daemonRunning(); running {
		if err := runDaemonStop(cmd, args); err != nil {
			return err
		}
	}
	return runDaemonStart(cmd, args)
}

func runDaemonLogs(cmd *cobra.Command, args []string) error {
	n := daemonLogsLines
	if len(args) == 1 {
		fmt.Sscanf(args[0], "%d", &n)
	}

	logPath := os.Getenv("BEEHIVE_LOG")
	if logPath == "" {
		logPath = "hive/hive.log"
	}
	lines, err := tailLines(logPath, n)
	if err != nil {
		return exitErr(ExitError, err)
	}
	fmt.Print(strings.Join(lines, ""))
	return nil
}

func daemonRunning() (bool, int) {
	pid, err := readDaemonPIDFile()
	if err != nil {
		return false, 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, 0
	}
	return true, pid
}

func writeDaemonPIDFile(pid int) error {
	if err := os.MkdirAll("hive", 0o750); err != nil {
		return err
	}
	return os.WriteFile(daemonPIDPath, []byte(fmt.Sprintf("%d", pid)), 0o600)
}

func readDaemonPIDFile() (int, error) {
	data, err := os.ReadFile(daemonPIDPath)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(data)), "%d", &pid); err != nil {
		return 0, err
	}
	return pid, nil
}

// tailLines reads the trailing n lines of path, buffering the whole file
// since hive logs are expected to stay small relative to available memory.
func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text()+"\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n <= 0 || n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}
