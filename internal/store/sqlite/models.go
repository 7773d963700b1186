package sqlite

import (
	"encoding/json"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

func unixTime(sec int64) time.Time { return time.Unix(sec, 0) }

// taskModel is the database row for the tasks table. Fields are Unix
// timestamps and nullable pointers, mirroring the teacher's row-model
// convention.
type taskModel struct {
	ID           string
	Title        string
	Description  string
	Status       string
	Priority     string
	AssignedTo   *string
	CreatedBy    string
	ParentTaskID *string
	Metadata     *string // JSON encoded
	CreatedAt    int64
	UpdatedAt    int64
	StartedAt    *int64
	CompletedAt  *int64
}

func toTaskModel(t *domain.Task) *taskModel {
	m := &taskModel{
		ID:          t.ID(),
		Title:       t.Title(),
		Description: t.Description(),
		Status:      string(t.Status()),
		Priority:    string(t.Priority()),
		CreatedBy:   string(t.CreatedBy()),
		CreatedAt:   t.CreatedAt().Unix(),
		UpdatedAt:   t.UpdatedAt().Unix(),
	}
	if t.AssignedTo() != nil {
		assignee := string(*t.AssignedTo())
		m.AssignedTo = &assignee
	}
	if t.ParentTaskID() != nil {
		m.ParentTaskID = t.ParentTaskID()
	}
	if len(t.Metadata()) > 0 {
		if b, err := json.Marshal(t.Metadata()); err == nil {
			s := string(b)
			m.Metadata = &s
		}
	}
	if t.StartedAt() != nil {
		v := t.StartedAt().Unix()
		m.StartedAt = &v
	}
	if t.CompletedAt() != nil {
		v := t.CompletedAt().Unix()
		m.CompletedAt = &v
	}
	return m
}

func (m *taskModel) toDomain() *domain.Task {
	var assignedTo *domain.BeeName
	if m.AssignedTo != nil {
		bee := domain.BeeName(*m.AssignedTo)
		assignedTo = &bee
	}
	var metadata map[string]any
	if m.Metadata != nil {
		_ = json.Unmarshal([]byte(*m.Metadata), &metadata)
	}
	var startedAt, completedAt *time.Time
	if m.StartedAt != nil {
		v := time.Unix(*m.StartedAt, 0)
		startedAt = &v
	}
	if m.CompletedAt != nil {
		v := time.Unix(*m.CompletedAt, 0)
		completedAt = &v
	}
	return domain.ReconstituteTask(
		m.ID, m.Title, m.Description,
		domain.TaskStatus(m.Status), domain.Priority(m.Priority),
		assignedTo, domain.BeeName(m.CreatedBy), m.ParentTaskID, metadata,
		time.Unix(m.CreatedAt, 0), time.Unix(m.UpdatedAt, 0),
		startedAt, completedAt,
	)
}

// messageModel is the database row for the messages table.
type messageModel struct {
	ID             int64
	FromBee        string
	ToBee          string
	Type           string
	Subject        *string
	Content        string
	TaskID         *string
	Priority       string
	Processed      bool
	ProcessedAt    *int64
	CreatedAt      int64
	ExpiresAt      *int64
	ReplyTo        *int64
	SenderCLIUsed  bool
	ConversationID *string
}

func toMessageModel(m *domain.Message) *messageModel {
	row := &messageModel{
		FromBee:       string(m.FromBee()),
		ToBee:         string(m.ToBee()),
		Type:          string(m.Type()),
		Content:       m.Content(),
		Priority:      string(m.Priority()),
		Processed:     m.Processed(),
		CreatedAt:     m.CreatedAt().Unix(),
		SenderCLIUsed: m.SenderCLIUsed(),
	}
	if m.Subject() != "" {
		s := m.Subject()
		row.Subject = &s
	}
	if m.TaskID() != nil {
		row.TaskID = m.TaskID()
	}
	if m.ProcessedAt() != nil {
		v := m.ProcessedAt().Unix()
		row.ProcessedAt = &v
	}
	if m.ExpiresAt() != nil {
		v := m.ExpiresAt().Unix()
		row.ExpiresAt = &v
	}
	if m.ReplyTo() != nil {
		row.ReplyTo = m.ReplyTo()
	}
	if m.ConversationID() != nil {
		row.ConversationID = m.ConversationID()
	}
	return row
}

func (m *messageModel) toDomain() *domain.Message {
	var subject string
	if m.Subject != nil {
		subject = *m.Subject
	}
	var processedAt, expiresAt *time.Time
	if m.ProcessedAt != nil {
		v := time.Unix(*m.ProcessedAt, 0)
		processedAt = &v
	}
	if m.ExpiresAt != nil {
		v := time.Unix(*m.ExpiresAt, 0)
		expiresAt = &v
	}
	return domain.ReconstituteMessage(
		m.ID, domain.BeeName(m.FromBee), domain.BeeName(m.ToBee),
		domain.MessageType(m.Type), subject, m.Content, m.TaskID,
		domain.MessagePriority(m.Priority), m.Processed, processedAt,
		time.Unix(m.CreatedAt, 0), expiresAt, m.ReplyTo, m.SenderCLIUsed,
		m.ConversationID,
	)
}

// agentStateModel is the database row for the agent_state table.
type agentStateModel struct {
	Bee              string
	Status           string
	CurrentTaskID    *string
	LastActivity     int64
	LastHeartbeat    int64
	WorkloadScore    int
	PerformanceScore int
	Capabilities     *string // JSON encoded array
}

func toAgentStateModel(a *domain.AgentState) *agentStateModel {
	row := &agentStateModel{
		Bee:              string(a.Bee()),
		Status:           string(a.Status()),
		CurrentTaskID:    a.CurrentTaskID(),
		LastActivity:     a.LastActivity().Unix(),
		LastHeartbeat:    a.LastHeartbeat().Unix(),
		WorkloadScore:    a.WorkloadScore(),
		PerformanceScore: a.PerformanceScore(),
	}
	if len(a.Capabilities()) > 0 {
		tags := make([]string, 0, len(a.Capabilities()))
		for tag := range a.Capabilities() {
			tags = append(tags, tag)
		}
		if b, err := json.Marshal(tags); err == nil {
			s := string(b)
			row.Capabilities = &s
		}
	}
	return row
}

func (m *agentStateModel) toDomain() *domain.AgentState {
	caps := map[string]bool{}
	if m.Capabilities != nil {
		var tags []string
		_ = json.Unmarshal([]byte(*m.Capabilities), &tags)
		for _, tag := range tags {
			caps[tag] = true
		}
	}
	return domain.ReconstituteAgentState(
		domain.BeeName(m.Bee), domain.AgentStatus(m.Status), m.CurrentTaskID,
		time.Unix(m.LastActivity, 0), time.Unix(m.LastHeartbeat, 0),
		m.WorkloadScore, m.PerformanceScore, caps,
	)
}

// activityModel is the database row for the activity_log table.
type activityModel struct {
	TaskID      string
	BeeName     string
	Type        string
	Description string
	OldValue    *string
	NewValue    *string
	CreatedAt   int64
}

func (m *activityModel) toDomain() domain.ActivityEntry {
	entry := domain.ActivityEntry{
		TaskID:      m.TaskID,
		BeeName:     domain.BeeName(m.BeeName),
		Type:        domain.ActivityType(m.Type),
		Description: m.Description,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
	}
	if m.OldValue != nil {
		entry.OldValue = *m.OldValue
	}
	if m.NewValue != nil {
		entry.NewValue = *m.NewValue
	}
	return entry
}
