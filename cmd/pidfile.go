package cmd

import (
	"os"
	"strconv"
	"strings"
)

// pidPath is init's liveness marker: present means init has run and stop
// has not yet removed it. The background daemon keeps its own file
// (daemonPIDPath). It is not itself the source of truth for
// bee liveness (the Supervisor's AgentState rows are); it only answers
// "is a beehive process already managing this directory's hive".
const pidPath = "hive/beehive.pid"

func pidFileExists() bool {
	_, err := os.Stat(pidPath)
	return err == nil
}

func writePIDFile(pid int) error {
	if err := os.MkdirAll("hive", 0o750); err != nil {
		return err
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(pid)), 0o600)
}

func readPIDFile() (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile() error {
	err := os.Remove(pidPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
