package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/config"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store/sqlite"
)

type harness struct {
	sup *Supervisor
	db  *sqlite.DB
	mux *injector.MockMultiplexer
	b   *bus.Bus
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tbl, err := panes.NewTable(map[string]string{
		"queen": "0.0", "developer": "0.1", "qa": "0.2", "analyst": "0.3",
	})
	require.NoError(t, err)
	mux := injector.NewMockMultiplexer()
	mux.SeedPane("hive", domain.Pane("0.0"))
	mux.SeedPane("hive", domain.Pane("0.1"))
	mux.SeedPane("hive", domain.Pane("0.2"))
	mux.SeedPane("hive", domain.Pane("0.3"))

	inj := injector.New(mux, tbl, db, "hive", nil, 4, false)
	b := bus.New(db, inj, nil)
	sup := New(db, b, inj, tbl, cfg, nil)
	return &harness{sup: sup, db: db, mux: mux, b: b}
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.TIdle = 2 * time.Minute
	cfg.TSilent = 10 * time.Minute
	cfg.RemindInterval = 5 * time.Minute
	cfg.RoleInjectionTimeout = 50 * time.Millisecond
	return cfg
}

func TestClassifyLiveness_MarksOfflineAfterTSilent(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	state, err := h.db.GetAgentState(ctx, domain.Developer)
	require.NoError(t, err)
	state.RecordHeartbeat(time.Now().Add(-20 * time.Minute))
	require.NoError(t, h.db.UpsertAgentState(ctx, state))

	h.sup.classifyLiveness(ctx)

	got, err := h.db.GetAgentState(ctx, domain.Developer)
	require.NoError(t, err)
	require.Equal(t, domain.AgentOffline, got.Status())

	messages, err := h.db.Dequeue(ctx, domain.Queen, false)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, domain.MessageAlert, messages[0].Type())
}

func TestClassifyLiveness_LeavesRecentHeartbeatAlone(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	h.sup.classifyLiveness(ctx)

	got, err := h.db.GetAgentState(ctx, domain.Developer)
	require.NoError(t, err)
	require.Equal(t, domain.AgentIdle, got.Status())
}

func TestHeartbeat_RevivesOfflineBeeToIdle(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	state, err := h.db.GetAgentState(ctx, domain.QA)
	require.NoError(t, err)
	state.SetStatus(domain.AgentOffline)
	require.NoError(t, h.db.UpsertAgentState(ctx, state))

	require.NoError(t, h.sup.Heartbeat(ctx, domain.QA))

	got, err := h.db.GetAgentState(ctx, domain.QA)
	require.NoError(t, err)
	require.Equal(t, domain.AgentIdle, got.Status())
}

func TestHeartbeat_RejectsNonRealBee(t *testing.T) {
	h := newHarness(t, testConfig())
	require.Error(t, h.sup.Heartbeat(context.Background(), domain.System))
}

func TestDetectProtocolViolations_AlertsObserverOnce(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	since := time.Now().Add(-time.Minute)

	msg := domain.NewMessage(domain.Developer, domain.QA, domain.MessageInfo, "sneaky", "bypassed the bus", domain.MsgPriorityNormal)
	msg.MarkCLIBypassed()
	_, err := h.db.Enqueue(ctx, msg)
	require.NoError(t, err)

	h.sup.detectProtocolViolations(ctx, since)

	alerts, err := h.db.Dequeue(ctx, domain.Queen, false)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, domain.MessageAlert, alerts[0].Type())
}

func TestDetectProtocolViolations_IgnoresSanctionedSends(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	since := time.Now().Add(-time.Minute)

	_, err := h.b.Send(ctx, domain.Developer, domain.QA, domain.MessageInfo, "fine", "through the bus", bus.SendOptions{})
	require.NoError(t, err)

	h.sup.detectProtocolViolations(ctx, since)

	alerts, err := h.db.Dequeue(ctx, domain.Queen, false)
	require.NoError(t, err)
	require.Empty(t, alerts)
}

func TestReapExpired_MarksProcessedWithoutDelivering(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	msg := domain.NewMessage(domain.Queen, domain.Developer, domain.MessageInfo, "stale", "old news", domain.MsgPriorityNormal)
	msg.WithExpiry(time.Now().Add(-time.Minute))
	id, err := h.db.Enqueue(ctx, msg)
	require.NoError(t, err)

	h.sup.reapExpired(ctx)

	got, err := h.db.GetMessage(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Processed())

	pending, err := h.db.Dequeue(ctx, domain.Developer, false)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestInit_SucceedsWhenBeeAcknowledges(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			msgs, _ := h.db.Dequeue(ctx, domain.Queen, false)
			if len(msgs) > 0 {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		ack := domain.NewMessage(domain.Queen, domain.System, domain.MessageResponse, "ack", AckPattern, domain.MsgPriorityNormal)
		_, _ = h.db.Enqueue(ctx, ack)
	}()

	err := h.sup.Init(ctx, []RoleDoc{{Bee: domain.Queen, Content: "you are the queen"}})
	<-done
	require.NoError(t, err)

	state, err := h.db.GetAgentState(ctx, domain.Queen)
	require.NoError(t, err)
	require.NotEqual(t, domain.AgentError, state.Status())
}

func TestInit_MarksErrorOnTimeout(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	err := h.sup.Init(ctx, []RoleDoc{{Bee: domain.Developer, Content: "you are the developer"}})
	require.Error(t, err)

	state, err := h.db.GetAgentState(ctx, domain.Developer)
	require.NoError(t, err)
	require.Equal(t, domain.AgentError, state.Status())
}

func TestStop_SendsSentinelToEveryBeeAndTearsDownSession(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	require.NoError(t, h.sup.Init(ctx, nil)) // ensures the session exists

	require.NoError(t, h.sup.Stop(ctx))

	for _, bee := range []domain.BeeName{domain.Queen, domain.Developer, domain.QA, domain.Analyst} {
		msgs, err := h.db.Dequeue(ctx, bee, false)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		require.Equal(t, domain.MessageNotification, msgs[0].Type())
	}

	exists, err := h.mux.PaneExists(ctx, "hive", domain.Pane("0.0"))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRemind_TargetsSingleBeeWhenGiven(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()

	h.sup.Remind(ctx, domain.QA)

	gotQA, err := h.db.Dequeue(ctx, domain.QA, false)
	require.NoError(t, err)
	require.Len(t, gotQA, 1)

	gotDev, err := h.db.Dequeue(ctx, domain.Developer, false)
	require.NoError(t, err)
	require.Empty(t, gotDev)
}
