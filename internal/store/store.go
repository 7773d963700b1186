// Package store defines the durable, transactional state contract (spec
// 4.C): tasks, messages, agent state, and the two append-only logs. It is
// a plain Go interface; internal/store/sqlite is the concrete
// implementation, structured like the teacher's infrastructure/sqlite
// package (row models + converters + repositories) but for beehive's own
// schema.
package store

import (
	"context"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// TaskFilter narrows Store.ListTasks results. Zero values mean "no
// filter" on that dimension.
type TaskFilter struct {
	Status     domain.TaskStatus
	AssignedTo domain.BeeName
	ParentID   string
}

// ActiveTaskRow is one row of the active_tasks view.
type ActiveTaskRow struct {
	ID              string
	Title           string
	Status          domain.TaskStatus
	Priority        domain.Priority
	AssignedTo      *domain.BeeName
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DependencyCount int
	ChildCount      int
}

// AgentWorkloadRow is one row of the agent_workload view.
type AgentWorkloadRow struct {
	Bee                    domain.BeeName
	ActiveTaskCount        int
	ActiveAssignmentCount  int
}

// Store is the typed, transactional interface every component composes
// on top of. Every method is a single atomic operation from the caller's
// perspective; cross-operation workflows are composed by the caller.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	SetTaskStatus(ctx context.Context, id string, status domain.TaskStatus, actor domain.BeeName, note string) error
	SetTaskAssignee(ctx context.Context, id string, bee domain.BeeName, actor domain.BeeName, note string) error

	// Dependencies
	AddDependency(ctx context.Context, dep domain.TaskDependency) error
	ListDependencies(ctx context.Context, taskID string) ([]domain.TaskDependency, error)
	ListDependents(ctx context.Context, taskID string) ([]domain.TaskDependency, error)

	// Assignments
	CreateAssignment(ctx context.Context, a domain.Assignment) error
	ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error)

	// Messages
	Enqueue(ctx context.Context, m *domain.Message) (int64, error)
	Dequeue(ctx context.Context, bee domain.BeeName, includeProcessed bool) ([]*domain.Message, error)
	MarkProcessed(ctx context.Context, id int64) error
	GetMessage(ctx context.Context, id int64) (*domain.Message, error)
	ListMessagesSince(ctx context.Context, since time.Time) ([]*domain.Message, error)
	ListExpiredUnprocessed(ctx context.Context, asOf time.Time) ([]*domain.Message, error)

	// Agents
	UpsertAgentState(ctx context.Context, s *domain.AgentState) error
	GetAgentState(ctx context.Context, bee domain.BeeName) (*domain.AgentState, error)
	ListAgentStates(ctx context.Context) ([]*domain.AgentState, error)

	// Activity
	AppendActivity(ctx context.Context, e domain.ActivityEntry) error
	ListActivity(ctx context.Context, taskID string, limit int) ([]domain.ActivityEntry, error)

	// Injection log
	AppendInjectionLog(ctx context.Context, e domain.InjectionLogEntry) error

	// Views
	ActiveTasks(ctx context.Context) ([]ActiveTaskRow, error)
	PendingMessages(ctx context.Context) ([]*domain.Message, error)
	AgentWorkload(ctx context.Context) ([]AgentWorkloadRow, error)

	// Lifecycle
	Close() error
}
