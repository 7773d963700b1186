package roledocs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store/sqlite"
)

func writeRole(t *testing.T, dir string, bee domain.BeeName, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(bee)+".md"), []byte(content), 0o600))
}

func TestLoadAll_ReadsEveryBeeRoleDocument(t *testing.T) {
	dir := t.TempDir()
	for _, bee := range domain.AllBeeNames() {
		writeRole(t, dir, bee, "you are the "+string(bee))
	}

	docs, err := LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, docs, len(domain.AllBeeNames()))
}

func TestLoadAll_FailsWhenABeeIsMissing(t *testing.T) {
	dir := t.TempDir()
	writeRole(t, dir, domain.Queen, "you are the queen")

	_, err := LoadAll(dir)
	require.Error(t, err)
}

func testBus(t *testing.T) *bus.Bus {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tbl, err := panes.NewTable(map[string]string{
		"queen": "0.0", "developer": "0.1", "qa": "0.2", "analyst": "0.3",
	})
	require.NoError(t, err)
	mux := injector.NewMockMultiplexer()
	for _, p := range []string{"0.0", "0.1", "0.2", "0.3"} {
		mux.SeedPane("hive", domain.Pane(p))
	}
	inj := injector.New(mux, tbl, db, "hive", nil, 4, false)
	return bus.New(db, inj, nil)
}

func TestManager_ReinjectsOnChangeAndAttachesDiff(t *testing.T) {
	dir := t.TempDir()
	writeRole(t, dir, domain.Developer, "line one\nline two\n")

	b := testBus(t)
	m, err := New(dir, b)
	require.NoError(t, err)
	m.Start()
	t.Cleanup(func() { _ = m.Stop() })

	writeRole(t, dir, domain.Developer, "line one\nline three\n")

	select {
	case bee := <-m.Reloaded:
		require.Equal(t, domain.Developer, bee)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload notification")
	}
}

func TestLineDiff_MarksAddedAndRemovedLines(t *testing.T) {
	diff := lineDiff("a\nb\n", "a\nc\n")
	require.Contains(t, diff, "- b")
	require.Contains(t, diff, "+ c")
}
