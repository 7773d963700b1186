package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

func TestBeeArg_AcceptsWorkerBeesOnly(t *testing.T) {
	bee, err := beeArg("developer")
	require.NoError(t, err)
	require.Equal(t, domain.Developer, bee)

	_, err = beeArg("beekeeper")
	require.Error(t, err)

	_, err = beeArg("not-a-bee")
	require.Error(t, err)
}

func TestCommandError_UnwrapsAndCarriesCode(t *testing.T) {
	inner := errors.New("boom")
	wrapped := exitErr(ExitRoleTimeout, inner)

	var ce *CommandError
	require.True(t, errors.As(wrapped, &ce))
	require.Equal(t, ExitRoleTimeout, ce.Code)
	require.ErrorIs(t, wrapped, inner)
}

func TestExitErr_NilErrorStaysNil(t *testing.T) {
	require.NoError(t, exitErr(ExitError, nil))
}

func TestPIDFile_RoundTrips(t *testing.T) {
	withTempWorkdir(t)

	require.False(t, pidFileExists())
	require.NoError(t, writePIDFile(4242))
	require.True(t, pidFileExists())

	pid, err := readPIDFile()
	require.NoError(t, err)
	require.Equal(t, 4242, pid)

	require.NoError(t, removePIDFile())
	require.False(t, pidFileExists())
	require.NoError(t, removePIDFile()) // idempotent
}

func TestTailLines_ReturnsTrailingNLines(t *testing.T) {
	dir := withTempWorkdir(t)
	path := filepath.Join(dir, "hive.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o600))

	lines, err := tailLines(path, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"three\n", "four\n"}, lines)

	all, err := tailLines(path, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

// withTempWorkdir chdirs into a fresh temp directory for the duration of
// the test, since pidfile.go and daemon.go resolve their paths relative
// to the current working directory (hive/...).
func withTempWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}
