package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults_PassesValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestValidate_RejectsEmptySessionName(t *testing.T) {
	cfg := Defaults()
	cfg.SessionName = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonWorkerObserver(t *testing.T) {
	cfg := Defaults()
	cfg.ObserverBee = "system"
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownPaneMappingBee(t *testing.T) {
	cfg := Defaults()
	cfg.PaneMapping = map[string]string{"wizard": "0.0"}
	require.Error(t, cfg.Validate())
}

func TestLoad_FallsBackToDefaultsWhenFileMissing(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Defaults().SessionName, cfg.SessionName)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hive.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session_name: custom-hive\n"), 0o600))

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)
	require.Equal(t, "custom-hive", cfg.SessionName)
	require.Equal(t, Defaults().DBPath, cfg.DBPath, "unset keys still fall back to defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hive.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session_name: from-file\n"), 0o600))

	t.Setenv("BEEHIVE_SESSION_NAME", "from-env")

	v := viper.New()
	cfg, err := Load(v, path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.SessionName)
}
