package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteDefaultConfig_CreatesParentDirAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "hive.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "session_name: hive")
}

func TestSavePaneMapping_PreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session_name: hive\nlog_level: debug\n"), 0o600))

	require.NoError(t, SavePaneMapping(path, map[string]string{
		"queen": "0.0", "developer": "1.0", "qa": "2.0", "analyst": "3.0",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "log_level: debug")
	require.Contains(t, string(data), "developer")
}

func TestSavePaneMapping_CreatesFileWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hive.yaml")

	require.NoError(t, SavePaneMapping(path, map[string]string{"queen": "0.0"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "pane_mapping")
}
