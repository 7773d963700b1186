package domain

import "time"

// MessageType classifies the payload of a Message. The set is extensible
// via configuration; these are the values the spec names explicitly.
type MessageType string

const (
	MessageInfo          MessageType = "info"
	MessageQuestion      MessageType = "question"
	MessageRequest       MessageType = "request"
	MessageResponse      MessageType = "response"
	MessageAlert         MessageType = "alert"
	MessageTaskUpdate    MessageType = "task_update"
	MessageInstruction   MessageType = "instruction"
	MessageConversation  MessageType = "conversation"
	MessageRoleInjection MessageType = "role_injection"
	MessageNotification  MessageType = "notification"
	MessageHeartbeat     MessageType = "heartbeat"
)

// MessagePriority is the urgency of a Message, distinct from Task Priority.
type MessagePriority string

const (
	MsgPriorityLow    MessagePriority = "low"
	MsgPriorityNormal MessagePriority = "normal"
	MsgPriorityHigh   MessagePriority = "high"
	MsgPriorityUrgent MessagePriority = "urgent"
)

func (p MessagePriority) IsValid() bool {
	switch p {
	case MsgPriorityLow, MsgPriorityNormal, MsgPriorityHigh, MsgPriorityUrgent:
		return true
	default:
		return false
	}
}

// Message is one entry in the inter-bee message log.
type Message struct {
	id             int64
	fromBee        BeeName
	toBee          BeeName
	msgType        MessageType
	subject        string
	content        string
	taskID         *string
	priority       MessagePriority
	processed      bool
	processedAt    *time.Time
	createdAt      time.Time
	expiresAt      *time.Time
	replyTo        *int64
	senderCLIUsed  bool
	conversationID *string
}

// NewMessage constructs a not-yet-persisted Message. id is assigned by the
// Store on insert (messages are monotonically numbered there), so it is
// left at zero here.
func NewMessage(from, to BeeName, msgType MessageType, subject, content string, priority MessagePriority) *Message {
	return &Message{
		fromBee:       from,
		toBee:         to,
		msgType:       msgType,
		subject:       subject,
		content:       content,
		priority:      priority,
		senderCLIUsed: true,
		createdAt:     time.Now(),
	}
}

// ReconstituteMessage rebuilds a Message from persisted fields.
func ReconstituteMessage(
	id int64,
	from, to BeeName,
	msgType MessageType,
	subject, content string,
	taskID *string,
	priority MessagePriority,
	processed bool,
	processedAt *time.Time,
	createdAt time.Time,
	expiresAt *time.Time,
	replyTo *int64,
	senderCLIUsed bool,
	conversationID *string,
) *Message {
	return &Message{
		id:             id,
		fromBee:        from,
		toBee:          to,
		msgType:        msgType,
		subject:        subject,
		content:        content,
		taskID:         taskID,
		priority:       priority,
		processed:      processed,
		processedAt:    processedAt,
		createdAt:      createdAt,
		expiresAt:      expiresAt,
		replyTo:        replyTo,
		senderCLIUsed:  senderCLIUsed,
		conversationID: conversationID,
	}
}

func (m *Message) ID() int64                    { return m.id }
func (m *Message) FromBee() BeeName              { return m.fromBee }
func (m *Message) ToBee() BeeName                { return m.toBee }
func (m *Message) Type() MessageType             { return m.msgType }
func (m *Message) Subject() string               { return m.subject }
func (m *Message) Content() string               { return m.content }
func (m *Message) TaskID() *string               { return m.taskID }
func (m *Message) Priority() MessagePriority     { return m.priority }
func (m *Message) Processed() bool               { return m.processed }
func (m *Message) ProcessedAt() *time.Time       { return m.processedAt }
func (m *Message) CreatedAt() time.Time          { return m.createdAt }
func (m *Message) ExpiresAt() *time.Time         { return m.expiresAt }
func (m *Message) ReplyTo() *int64               { return m.replyTo }
func (m *Message) SenderCLIUsed() bool           { return m.senderCLIUsed }
func (m *Message) ConversationID() *string       { return m.conversationID }

// WithTaskID attaches an optional task reference, returning the receiver
// for chaining at construction time.
func (m *Message) WithTaskID(taskID string) *Message {
	m.taskID = &taskID
	return m
}

// WithExpiry sets an expiry timestamp; messages past this point are never
// delivered to receive() callers.
func (m *Message) WithExpiry(at time.Time) *Message {
	m.expiresAt = &at
	return m
}

// WithReplyTo marks this message as a reply to an earlier one.
func (m *Message) WithReplyTo(id int64) *Message {
	m.replyTo = &id
	return m
}

// WithConversationID groups this message with others sharing id, used for
// broadcast fan-out.
func (m *Message) WithConversationID(id string) *Message {
	m.conversationID = &id
	return m
}

// MarkCLIBypassed flags a message as having skipped the sanctioned
// Injector path. Used only by test fixtures and the protocol-violation
// scenario; production sends always go through Bus.Send, which leaves
// senderCLIUsed true.
func (m *Message) MarkCLIBypassed() {
	m.senderCLIUsed = false
}

// IsExpired reports whether the message's expiry has passed as of now.
func (m *Message) IsExpired(now time.Time) bool {
	return m.expiresAt != nil && m.expiresAt.Before(now)
}

// MarkProcessed flags the message as processed, setting processedAt if it
// is not already set. Calling this twice is a no-op the second time
// (ack is idempotent).
func (m *Message) MarkProcessed(at time.Time) {
	if m.processed {
		return
	}
	m.processed = true
	m.processedAt = &at
}
