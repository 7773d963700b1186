// Package tasks implements the Task Engine (spec 4.E): task creation,
// assignment, the status transition table, dependency gating, and
// cancellation cascades, all composed atop Store and the Message Bus.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/store"
	"github.com/beehive-org/beehive/internal/tracing"
)

// transitions is the fixed status transition table. A status absent as a
// key, or a destination not present in its set, is illegal.
var transitions = map[domain.TaskStatus]map[domain.TaskStatus]bool{
	domain.TaskPending: {
		domain.TaskInProgress: true,
		domain.TaskFailed:     true,
		domain.TaskCancelled:  true,
	},
	domain.TaskInProgress: {
		domain.TaskPending:   true,
		domain.TaskCompleted: true,
		domain.TaskFailed:    true,
		domain.TaskCancelled: true,
	},
	domain.TaskFailed: {
		domain.TaskPending:   true,
		domain.TaskCancelled: true,
	},
	domain.TaskCompleted: {},
	domain.TaskCancelled: {},
}

// CanTransition reports whether from -> to is a legal edge in the table,
// independent of any dependency gating.
func CanTransition(from, to domain.TaskStatus) bool {
	if from == to {
		return false
	}
	dests, ok := transitions[from]
	if !ok {
		return false
	}
	return dests[to]
}

// Engine composes Store + Bus to enforce task lifecycle rules.
type Engine struct {
	store  store.Store
	bus    *bus.Bus
	tracer trace.Tracer
}

// New constructs an Engine.
func New(st store.Store, b *bus.Bus, tracer trace.Tracer) *Engine {
	return &Engine{store: st, bus: b, tracer: tracer}
}

// CreateTask builds a fresh pending Task owned by createdBy and persists
// it. parentID, if non-empty, must already exist; no cycle check is
// needed here since a brand new task cannot be its own ancestor.
func (e *Engine) CreateTask(ctx context.Context, title, description string, priority domain.Priority, createdBy domain.BeeName, parentID string) (*domain.Task, error) {
	return tracing.SpanValue(ctx, e.tracer, tracing.SpanPrefixTask+"create",
		[]attribute.KeyValue{tracing.AttrBeeName.String(string(createdBy))},
		func(ctx context.Context) (*domain.Task, error) {
			if title == "" {
				return nil, &errs.ValidationError{Field: "title", Reason: "must not be empty"}
			}
			if !priority.IsValid() {
				priority = domain.PriorityMedium
			}
			if parentID != "" {
				if _, err := e.store.GetTask(ctx, parentID); err != nil {
					return nil, err
				}
			}

			t := domain.NewTask(uuid.NewString(), title, description, priority, createdBy)
			if parentID != "" {
				t.SetParentTaskID(&parentID)
			}
			if err := e.store.CreateTask(ctx, t); err != nil {
				return nil, err
			}
			if parentID != "" {
				if err := e.store.AddDependency(ctx, domain.TaskDependency{
					TaskID: t.ID(), DependsOnID: parentID, Type: domain.DependencySubtask, CreatedAt: time.Now(),
				}); err != nil {
					return nil, err
				}
			}
			return t, nil
		})
}

// Assign sets a task's primary assignee, recording both the Task row
// update and an Assignment entry, and notifies the assignee over the Bus.
func (e *Engine) Assign(ctx context.Context, taskID string, assignee, assigner domain.BeeName) error {
	return tracing.Span(ctx, e.tracer, tracing.SpanPrefixTask+"assign",
		[]attribute.KeyValue{tracing.AttrTaskID.String(taskID), tracing.AttrBeeName.String(string(assignee))},
		func(ctx context.Context) error {
			if !assignee.IsWorker() {
				return &errs.InvalidAssigneeError{Bee: string(assignee)}
			}
			task, err := e.store.GetTask(ctx, taskID)
			if err != nil {
				return err
			}
			if task.Status().IsTerminal() {
				return &errs.InvalidTransitionError{TaskID: taskID, From: string(task.Status()), To: "assign"}
			}

			if err := e.store.CreateAssignment(ctx, domain.Assignment{
				TaskID: taskID, Assignee: assignee, Assigner: assigner,
				Role: domain.RolePrimary, Status: domain.AssignmentActive, AssignedAt: time.Now(),
			}); err != nil {
				return err
			}
			if err := e.store.SetTaskAssignee(ctx, taskID, assignee, assigner, ""); err != nil {
				return err
			}

			if e.bus != nil {
				subject := fmt.Sprintf("task assigned: %s", task.Title())
				_, _ = e.bus.Send(ctx, assigner, assignee, domain.MessageTaskUpdate, subject, task.Description(), bus.SendOptions{TaskID: taskID})
			}
			return nil
		})
}

// Transition moves a task to newStatus, enforcing the transition table and
// dependency gating (a task may not enter in_progress while any of its
// "blocks" dependencies are unresolved). On reaching completed or failed
// it auto-enqueues a task_update (or high-priority alert) to the queen.
func (e *Engine) Transition(ctx context.Context, taskID string, newStatus domain.TaskStatus, actor domain.BeeName, note string) error {
	return tracing.Span(ctx, e.tracer, tracing.SpanPrefixTask+"transition",
		[]attribute.KeyValue{tracing.AttrTaskID.String(taskID), tracing.AttrBeeName.String(string(actor))},
		func(ctx context.Context) error {
			task, err := e.store.GetTask(ctx, taskID)
			if err != nil {
				return err
			}
			if task.Status() == newStatus {
				return &errs.NoOpTransitionError{TaskID: taskID, Status: string(newStatus)}
			}
			if !CanTransition(task.Status(), newStatus) {
				return &errs.InvalidTransitionError{TaskID: taskID, From: string(task.Status()), To: string(newStatus)}
			}

			if newStatus == domain.TaskInProgress {
				blockers, err := e.unmetBlockers(ctx, taskID)
				if err != nil {
					return err
				}
				if len(blockers) > 0 {
					return &errs.DependencyUnmetError{TaskID: taskID, Blockers: blockers}
				}
			}

			if err := e.store.SetTaskStatus(ctx, taskID, newStatus, actor, note); err != nil {
				return err
			}

			return e.notifyTerminalTransition(ctx, task, newStatus)
		})
}

// unmetBlockers returns the task IDs of every "blocks" dependency that has
// not reached completed.
func (e *Engine) unmetBlockers(ctx context.Context, taskID string) ([]string, error) {
	deps, err := e.store.ListDependencies(ctx, taskID)
	if err != nil {
		return nil, err
	}
	var blockers []string
	for _, dep := range deps {
		if dep.Type != domain.DependencyBlocks {
			continue
		}
		blocker, err := e.store.GetTask(ctx, dep.DependsOnID)
		if err != nil {
			return nil, err
		}
		if blocker.Status() != domain.TaskCompleted {
			blockers = append(blockers, blocker.ID())
		}
	}
	return blockers, nil
}

func (e *Engine) notifyTerminalTransition(ctx context.Context, task *domain.Task, newStatus domain.TaskStatus) error {
	if e.bus == nil {
		return nil
	}
	switch newStatus {
	case domain.TaskCompleted:
		_, err := e.bus.Send(ctx, domain.System, domain.Queen, domain.MessageTaskUpdate,
			fmt.Sprintf("task completed: %s", task.Title()), "task "+task.ID()+" completed",
			bus.SendOptions{TaskID: task.ID(), Priority: domain.MsgPriorityNormal})
		return err
	case domain.TaskFailed:
		_, err := e.bus.Send(ctx, domain.System, domain.Queen, domain.MessageAlert,
			fmt.Sprintf("task failed: %s", task.Title()), "task "+task.ID()+" failed",
			bus.SendOptions{TaskID: task.ID(), Priority: domain.MsgPriorityHigh})
		return err
	default:
		return nil
	}
}

// AddDependency records a directed edge, rejecting self-dependencies and
// any edge that would introduce a cycle. Cycle detection is delegated to
// the Store, which holds the full dependency graph transactionally.
func (e *Engine) AddDependency(ctx context.Context, taskID, dependsOnID string, depType domain.DependencyType) error {
	return tracing.Span(ctx, e.tracer, tracing.SpanPrefixTask+"add_dependency",
		[]attribute.KeyValue{tracing.AttrTaskID.String(taskID)},
		func(ctx context.Context) error {
			return e.store.AddDependency(ctx, domain.TaskDependency{
				TaskID: taskID, DependsOnID: dependsOnID, Type: depType, CreatedAt: time.Now(),
			})
		})
}

// Cancel transitions taskID to cancelled and transitively cancels every
// non-terminal descendant reached via "subtask" dependencies, since a
// cancelled parent makes its children's work moot.
func (e *Engine) Cancel(ctx context.Context, taskID string, actor domain.BeeName, note string) error {
	return tracing.Span(ctx, e.tracer, tracing.SpanPrefixTask+"cancel",
		[]attribute.KeyValue{tracing.AttrTaskID.String(taskID)},
		func(ctx context.Context) error {
			if err := e.cancelOne(ctx, taskID, actor, note); err != nil {
				return err
			}
			return e.cancelDescendants(ctx, taskID, actor, note)
		})
}

func (e *Engine) cancelOne(ctx context.Context, taskID string, actor domain.BeeName, note string) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status().IsTerminal() {
		return nil
	}
	return e.store.SetTaskStatus(ctx, taskID, domain.TaskCancelled, actor, note)
}

func (e *Engine) cancelDescendants(ctx context.Context, taskID string, actor domain.BeeName, note string) error {
	dependents, err := e.store.ListDependents(ctx, taskID)
	if err != nil {
		return err
	}
	for _, dep := range dependents {
		if dep.Type != domain.DependencySubtask {
			continue
		}
		if err := e.cancelOne(ctx, dep.TaskID, actor, note); err != nil {
			return err
		}
		if err := e.cancelDescendants(ctx, dep.TaskID, actor, note); err != nil {
			return err
		}
	}
	return nil
}

// GetProgress returns the task and its immediate dependency/dependent
// edges, the shape `task details` renders.
type Progress struct {
	Task         *domain.Task
	Dependencies []domain.TaskDependency
	Dependents   []domain.TaskDependency
	Assignments  []domain.Assignment
	Activity     []domain.ActivityEntry
}

func (e *Engine) GetProgress(ctx context.Context, taskID string) (*Progress, error) {
	return tracing.SpanValue(ctx, e.tracer, tracing.SpanPrefixTask+"progress",
		[]attribute.KeyValue{tracing.AttrTaskID.String(taskID)},
		func(ctx context.Context) (*Progress, error) {
			task, err := e.store.GetTask(ctx, taskID)
			if err != nil {
				return nil, err
			}
			deps, err := e.store.ListDependencies(ctx, taskID)
			if err != nil {
				return nil, err
			}
			dependents, err := e.store.ListDependents(ctx, taskID)
			if err != nil {
				return nil, err
			}
			assignments, err := e.store.ListAssignments(ctx, taskID)
			if err != nil {
				return nil, err
			}
			activity, err := e.store.ListActivity(ctx, taskID, 0)
			if err != nil {
				return nil, err
			}
			return &Progress{Task: task, Dependencies: deps, Dependents: dependents, Assignments: assignments, Activity: activity}, nil
		})
}
