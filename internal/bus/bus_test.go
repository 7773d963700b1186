package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store/sqlite"
)

func testBus(t *testing.T) (*Bus, *injector.MockMultiplexer, *sqlite.DB) {
	t.Helper()
	tbl, err := panes.NewTable(map[string]string{
		"queen": "0.0", "developer": "0.1", "qa": "0.2", "analyst": "0.3",
	})
	require.NoError(t, err)

	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mux := injector.NewMockMultiplexer()
	for _, bee := range []string{"0.0", "0.1", "0.2", "0.3"} {
		mux.SeedPane("hive", domain.Pane(bee))
	}

	inj := injector.New(mux, tbl, db, "hive", nil, 4, false)
	return New(db, inj, nil), mux, db
}

func TestBus_Send_DeliversWireFormattedPayload(t *testing.T) {
	b, mux, _ := testBus(t)

	id, err := b.Send(context.Background(), domain.Queen, domain.Developer, domain.MessageInstruction, "build it", "implement the thing", SendOptions{})
	require.NoError(t, err)
	require.NotZero(t, id)

	sent := mux.Sent()
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Payload, "MESSAGE FROM QUEEN")
	require.Contains(t, sent[0].Payload, "**Type:** instruction")
	require.Contains(t, sent[0].Payload, "implement the thing")
}

func TestBus_Send_BroadcastFansOutToEveryoneButSender(t *testing.T) {
	b, mux, _ := testBus(t)

	_, err := b.Send(context.Background(), domain.Queen, domain.All, domain.MessageNotification, "heads up", "deploy freeze", SendOptions{})
	require.NoError(t, err)
	require.Len(t, mux.Sent(), 3, "broadcast reaches every bee except the sender")
}

func TestBus_Send_RejectsEmptyContent(t *testing.T) {
	b, _, _ := testBus(t)

	_, err := b.Send(context.Background(), domain.Queen, domain.Developer, domain.MessageInfo, "x", "", SendOptions{})
	require.Error(t, err)
}

func TestBus_Send_RejectsBroadcastAsSender(t *testing.T) {
	b, _, _ := testBus(t)

	_, err := b.Send(context.Background(), domain.All, domain.Developer, domain.MessageInfo, "x", "y", SendOptions{})
	require.Error(t, err)
}

func TestBus_ReceiveAndAck(t *testing.T) {
	b, _, _ := testBus(t)
	ctx := context.Background()

	id, err := b.Send(ctx, domain.Queen, domain.Developer, domain.MessageInfo, "x", "y", SendOptions{})
	require.NoError(t, err)

	msgs, err := b.Receive(ctx, domain.Developer, false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, id, msgs[0].ID())

	require.NoError(t, b.Ack(ctx, id))
	require.NoError(t, b.Ack(ctx, id), "ack is idempotent")

	msgs, err = b.Receive(ctx, domain.Developer, false)
	require.NoError(t, err)
	require.Empty(t, msgs, "acked message no longer appears in unprocessed receive")
}

func TestBus_Send_AttachesTaskID(t *testing.T) {
	b, _, _ := testBus(t)
	ctx := context.Background()

	_, err := b.Send(ctx, domain.Queen, domain.Developer, domain.MessageTaskUpdate, "status", "working on it", SendOptions{TaskID: "task-123"})
	require.NoError(t, err)

	msgs, err := b.Receive(ctx, domain.Developer, false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].TaskID())
	require.Equal(t, "task-123", *msgs[0].TaskID())
}
