// Package bus implements the Message Bus (spec 4.D): the protocol-level
// contract every inter-bee exchange goes through, composed atop Store and
// Injector.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/store"
	"github.com/beehive-org/beehive/internal/tracing"
)

// SendOptions carries the optional fields of Bus.Send.
type SendOptions struct {
	TaskID    string
	Priority  domain.MessagePriority
	ExpiresAt *time.Time
	// Metadata is merged into the Injector's injection-log entry alongside
	// message_id/task_id. Used by callers that need the log to carry
	// extra context (e.g. roledocs attaching a diff of what changed).
	Metadata map[string]any
}

// Bus composes Store + Injector to implement send/receive/ack.
type Bus struct {
	store  store.Store
	inj    *injector.Injector
	tracer trace.Tracer
}

// New constructs a Bus.
func New(st store.Store, inj *injector.Injector, tracer trace.Tracer) *Bus {
	return &Bus{store: st, inj: inj, tracer: tracer}
}

// Send validates from/to, expands a broadcast into one message per
// recipient under a shared conversation_id, persists each Message, and
// delivers the formatted wire payload through the Injector. Partial
// broadcast failures are allowed; each recipient's outcome is independent.
// Returns the message id of the first (or only) recipient.
func (b *Bus) Send(ctx context.Context, from, to domain.BeeName, msgType domain.MessageType, subject, content string, opts SendOptions) (int64, error) {
	return tracing.SpanValue(ctx, b.tracer, tracing.SpanPrefixBus+".send",
		[]attribute.KeyValue{
			tracing.AttrFromBee.String(string(from)),
			tracing.AttrToBee.String(string(to)),
			tracing.AttrMsgType.String(string(msgType)),
		},
		func(ctx context.Context) (int64, error) {
			if !from.IsValid() || from.IsBroadcast() {
				return 0, &errs.ValidationError{Field: "from", Reason: "invalid sender"}
			}
			if !to.IsValid() {
				return 0, &errs.ValidationError{Field: "to", Reason: "invalid recipient"}
			}
			if content == "" {
				return 0, &errs.ValidationError{Field: "content", Reason: "must not be empty"}
			}
			if opts.Priority == "" {
				opts.Priority = domain.MsgPriorityNormal
			}

			recipients := []domain.BeeName{to}
			var conversationID string
			if to.IsBroadcast() {
				recipients = allWorkerBeesExcept(from)
				conversationID = uuid.NewString()
			}

			var firstID int64
			var firstErr error
			for i, recipient := range recipients {
				id, err := b.sendOne(ctx, from, recipient, msgType, subject, content, opts, conversationID)
				if i == 0 {
					firstID, firstErr = id, err
				}
			}
			return firstID, firstErr
		})
}

func allWorkerBeesExcept(except domain.BeeName) []domain.BeeName {
	out := make([]domain.BeeName, 0, 4)
	for _, bee := range domain.AllBeeNames() {
		if bee != except {
			out = append(out, bee)
		}
	}
	return out
}

// sendOne persists and delivers one recipient's copy; its own failure
// never aborts siblings in a broadcast fan-out.
func (b *Bus) sendOne(ctx context.Context, from, to domain.BeeName, msgType domain.MessageType, subject, content string, opts SendOptions, conversationID string) (int64, error) {
	msg := domain.NewMessage(from, to, msgType, subject, content, opts.Priority)
	if opts.TaskID != "" {
		msg = msg.WithTaskID(opts.TaskID)
	}
	if opts.ExpiresAt != nil {
		msg = msg.WithExpiry(*opts.ExpiresAt)
	}
	if conversationID != "" {
		msg = msg.WithConversationID(conversationID)
	}

	id, err := b.store.Enqueue(ctx, msg)
	if err != nil {
		return 0, err
	}

	wire := formatWirePayload(from, msgType, subject, msg.TaskID(), msg.CreatedAt(), content)
	var taskPtr *string
	if msg.TaskID() != nil {
		taskPtr = msg.TaskID()
	}
	metadata := map[string]any{"message_id": id, "task_id": taskPtr}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}
	deliverErr := b.inj.Send(ctx, to, from, msgType, wire, metadata)

	b.touchActivity(ctx, from, to)
	return id, deliverErr
}

func (b *Bus) touchActivity(ctx context.Context, from, to domain.BeeName) {
	now := time.Now()
	for _, bee := range []domain.BeeName{from, to} {
		if !bee.IsReal() {
			continue
		}
		state, err := b.store.GetAgentState(ctx, bee)
		if err != nil {
			continue
		}
		state.TouchActivity(now)
		_ = b.store.UpsertAgentState(ctx, state)
	}
}

// Receive returns messages addressed to bee; includeProcessed widens the
// result to already-acked messages. The caller owns calling Ack.
func (b *Bus) Receive(ctx context.Context, bee domain.BeeName, includeProcessed bool) ([]*domain.Message, error) {
	return tracing.SpanValue(ctx, b.tracer, tracing.SpanPrefixBus+".receive",
		[]attribute.KeyValue{tracing.AttrToBee.String(string(bee))},
		func(ctx context.Context) ([]*domain.Message, error) {
			if !bee.IsValid() {
				return nil, &errs.ValidationError{Field: "bee", Reason: "invalid recipient"}
			}
			return b.store.Dequeue(ctx, bee, includeProcessed)
		})
}

// Ack marks a message processed; idempotent.
func (b *Bus) Ack(ctx context.Context, messageID int64) error {
	return tracing.Span(ctx, b.tracer, tracing.SpanPrefixBus+".ack", nil,
		func(ctx context.Context) error {
			return b.store.MarkProcessed(ctx, messageID)
		})
}
