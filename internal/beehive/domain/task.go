package domain

import "time"

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is a state the Task Engine's transition
// table never leaves (completed, cancelled); failed is a special case that
// permits a single retry path back to pending, so it is not terminal here.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

func (s TaskStatus) String() string { return string(s) }

// Priority is shared between tasks and the relative urgency a beekeeper
// assigns them.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// DependencyType classifies a TaskDependency edge.
type DependencyType string

const (
	DependencyBlocks  DependencyType = "blocks"
	DependencyRelated DependencyType = "related"
	DependencySubtask DependencyType = "subtask"
)

func (t DependencyType) IsValid() bool {
	switch t {
	case DependencyBlocks, DependencyRelated, DependencySubtask:
		return true
	default:
		return false
	}
}

// AssignmentRole distinguishes the primary assignee from reviewers and
// collaborators that may also be attached to a task.
type AssignmentRole string

const (
	RolePrimary      AssignmentRole = "primary"
	RoleReviewer     AssignmentRole = "reviewer"
	RoleCollaborator AssignmentRole = "collaborator"
)

// AssignmentStatus tracks whether an Assignment row is still active.
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentReplaced  AssignmentStatus = "replaced"
)

// Task is the pure domain entity for a unit of work tracked by the hive.
// Fields are unexported; construct with NewTask or ReconstituteTask and
// read through the getters. Mutation happens through the Set* methods so
// updatedAt stays consistent, mirroring the Store's own bump-on-write
// guarantee for persisted rows.
type Task struct {
	id          string
	title       string
	description string
	status      TaskStatus
	priority    Priority
	assignedTo  *BeeName
	createdBy   BeeName
	parentID    *string
	metadata    map[string]any

	createdAt   time.Time
	updatedAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
}

// NewTask constructs a brand-new, not-yet-persisted Task in the pending
// state. id is supplied by the caller (typically a freshly generated UUID)
// so the constructor stays free of infrastructure concerns.
func NewTask(id, title, description string, priority Priority, createdBy BeeName) *Task {
	now := time.Now()
	return &Task{
		id:          id,
		title:       title,
		description: description,
		status:      TaskPending,
		priority:    priority,
		createdBy:   createdBy,
		createdAt:   now,
		updatedAt:   now,
	}
}

// ReconstituteTask rebuilds a Task from persisted fields, typically when
// hydrating a row read from the Store.
func ReconstituteTask(
	id, title, description string,
	status TaskStatus,
	priority Priority,
	assignedTo *BeeName,
	createdBy BeeName,
	parentID *string,
	metadata map[string]any,
	createdAt, updatedAt time.Time,
	startedAt, completedAt *time.Time,
) *Task {
	return &Task{
		id:          id,
		title:       title,
		description: description,
		status:      status,
		priority:    priority,
		assignedTo:  assignedTo,
		createdBy:   createdBy,
		parentID:    parentID,
		metadata:    metadata,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		startedAt:   startedAt,
		completedAt: completedAt,
	}
}

func (t *Task) ID() string               { return t.id }
func (t *Task) Title() string            { return t.title }
func (t *Task) Description() string      { return t.description }
func (t *Task) Status() TaskStatus       { return t.status }
func (t *Task) Priority() Priority       { return t.priority }
func (t *Task) AssignedTo() *BeeName     { return t.assignedTo }
func (t *Task) CreatedBy() BeeName       { return t.createdBy }
func (t *Task) ParentTaskID() *string    { return t.parentID }
func (t *Task) Metadata() map[string]any { return t.metadata }
func (t *Task) CreatedAt() time.Time     { return t.createdAt }
func (t *Task) UpdatedAt() time.Time     { return t.updatedAt }
func (t *Task) StartedAt() *time.Time    { return t.startedAt }
func (t *Task) CompletedAt() *time.Time  { return t.completedAt }

// SetParentTaskID records the parent task for this task, forming a forest
// with other tasks. Callers are responsible for cycle checking before
// calling this (see tasks.Engine).
func (t *Task) SetParentTaskID(parentID *string) {
	t.parentID = parentID
	t.updatedAt = time.Now()
}

// SetAssignee updates the task's primary assignee. Role bookkeeping
// (Assignment rows) is handled by the Task Engine, not here.
func (t *Task) SetAssignee(bee *BeeName) {
	t.assignedTo = bee
	t.updatedAt = time.Now()
}

// ApplyTransition moves the task to newStatus and sets started_at /
// completed_at per spec (in_progress sets started_at; any terminal-ish
// status sets completed_at). Callers must have already validated the
// transition is legal; this method only applies the timestamp side
// effects.
func (t *Task) ApplyTransition(newStatus TaskStatus) {
	now := time.Now()
	t.status = newStatus
	t.updatedAt = now
	switch newStatus {
	case TaskInProgress:
		if t.startedAt == nil {
			t.startedAt = &now
		}
	case TaskCompleted, TaskFailed, TaskCancelled:
		t.completedAt = &now
	}
}

// TaskDependency is a directed edge task_id -> depends_on_task_id.
type TaskDependency struct {
	TaskID         string
	DependsOnID    string
	Type           DependencyType
	CreatedAt      time.Time
}

// Assignment is an auxiliary record of who is working a task in what
// capacity.
type Assignment struct {
	TaskID      string
	Assignee    BeeName
	Assigner    BeeName
	Role        AssignmentRole
	Status      AssignmentStatus
	AssignedAt  time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}
