package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store/sqlite"
)

func testPaneTable(t *testing.T) *panes.Table {
	t.Helper()
	tbl, err := panes.NewTable(map[string]string{
		"queen": "0.0", "developer": "0.1", "qa": "0.2", "analyst": "0.3",
	})
	require.NoError(t, err)
	return tbl
}

func testStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInjector_Send_DeliversAndLogs(t *testing.T) {
	tbl := testPaneTable(t)
	st := testStore(t)
	mux := NewMockMultiplexer()
	mux.SeedPane("hive", domain.Pane("0.1"))

	inj := New(mux, tbl, st, "hive", nil, 4, false)
	err := inj.Send(context.Background(), domain.Developer, domain.Queen, domain.MessageInfo, "hello", nil)
	require.NoError(t, err)

	sent := mux.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "hello", sent[0].Payload)
}

func TestInjector_Send_DryRunSkipsDelivery(t *testing.T) {
	tbl := testPaneTable(t)
	st := testStore(t)
	mux := NewMockMultiplexer()
	mux.SeedPane("hive", domain.Pane("0.1"))

	inj := New(mux, tbl, st, "hive", nil, 4, true)
	err := inj.Send(context.Background(), domain.Developer, domain.Queen, domain.MessageInfo, "hello", nil)
	require.NoError(t, err)
	require.Empty(t, mux.Sent(), "dry run must never reach the multiplexer")
}

func TestInjector_Send_UnknownPaneIsTransportError(t *testing.T) {
	tbl := testPaneTable(t)
	st := testStore(t)
	mux := NewMockMultiplexer() // no panes seeded

	inj := New(mux, tbl, st, "hive", nil, 4, false)
	err := inj.Send(context.Background(), domain.Developer, domain.Queen, domain.MessageInfo, "hello", nil)
	require.Error(t, err)
}

func TestInjector_Send_RejectsBroadcastTarget(t *testing.T) {
	tbl := testPaneTable(t)
	st := testStore(t)
	mux := NewMockMultiplexer()

	inj := New(mux, tbl, st, "hive", nil, 4, false)
	err := inj.Send(context.Background(), domain.All, domain.Queen, domain.MessageInfo, "hello", nil)
	require.Error(t, err, "Send never resolves \"all\" itself; callers must expand via ResolveAll")
}
