package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/bus"
	"github.com/beehive-org/beehive/internal/injector"
	"github.com/beehive-org/beehive/internal/panes"
	"github.com/beehive-org/beehive/internal/store/sqlite"
)

func testEngine(t *testing.T) *Engine {
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
	b := bus.New(db, inj, nil)
	return New(db, b, nil)
}

func TestCanTransition_TableMatchesSpecEdges(t *testing.T) {
	require.True(t, CanTransition(domain.TaskPending, domain.TaskInProgress))
	require.True(t, CanTransition(domain.TaskPending, domain.TaskFailed))
	require.True(t, CanTransition(domain.TaskPending, domain.TaskCancelled))
	require.False(t, CanTransition(domain.TaskPending, domain.TaskCompleted))

	require.True(t, CanTransition(domain.TaskInProgress, domain.TaskPending))
	require.True(t, CanTransition(domain.TaskInProgress, domain.TaskCompleted))
	require.True(t, CanTransition(domain.TaskInProgress, domain.TaskFailed))
	require.True(t, CanTransition(domain.TaskInProgress, domain.TaskCancelled))

	require.True(t, CanTransition(domain.TaskFailed, domain.TaskPending))
	require.True(t, CanTransition(domain.TaskFailed, domain.TaskCancelled))
	require.False(t, CanTransition(domain.TaskFailed, domain.TaskInProgress))

	require.False(t, CanTransition(domain.TaskCompleted, domain.TaskPending))
	require.False(t, CanTransition(domain.TaskCancelled, domain.TaskPending))
	require.False(t, CanTransition(domain.TaskPending, domain.TaskPending), "self transitions are never legal")
}

func TestEngine_CreateTask_DefaultsInvalidPriority(t *testing.T) {
	e := testEngine(t)
	task, err := e.CreateTask(context.Background(), "do the thing", "desc", domain.Priority("bogus"), domain.Queen, "")
	require.NoError(t, err)
	require.Equal(t, domain.PriorityMedium, task.Priority())
}

func TestEngine_CreateTask_WithParentAddsSubtaskDependency(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	parent, err := e.CreateTask(ctx, "parent", "desc", domain.PriorityHigh, domain.Queen, "")
	require.NoError(t, err)

	child, err := e.CreateTask(ctx, "child", "desc", domain.PriorityHigh, domain.Queen, parent.ID())
	require.NoError(t, err)

	deps, err := e.store.ListDependencies(ctx, child.ID())
	require.NoError(t, err)
	require.Len(t, deps, 1)
	require.Equal(t, parent.ID(), deps[0].DependsOnID)
	require.Equal(t, domain.DependencySubtask, deps[0].Type)
}

func TestEngine_Assign_RejectsNonWorkerBee(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	task, err := e.CreateTask(ctx, "t", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)

	err = e.Assign(ctx, task.ID(), domain.System, domain.Queen)
	var invalid *errs.InvalidAssigneeError
	require.ErrorAs(t, err, &invalid)
}

func TestEngine_Transition_BlocksOnUnmetDependency(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	blocker, err := e.CreateTask(ctx, "blocker", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)
	blocked, err := e.CreateTask(ctx, "blocked", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)

	require.NoError(t, e.AddDependency(ctx, blocked.ID(), blocker.ID(), domain.DependencyBlocks))

	err = e.Transition(ctx, blocked.ID(), domain.TaskInProgress, domain.Developer, "")
	var unmet *errs.DependencyUnmetError
	require.ErrorAs(t, err, &unmet)
	require.Equal(t, []string{blocker.ID()}, unmet.Blockers)

	require.NoError(t, e.Transition(ctx, blocker.ID(), domain.TaskInProgress, domain.Developer, ""))
	require.NoError(t, e.Transition(ctx, blocker.ID(), domain.TaskCompleted, domain.Developer, ""))
	require.NoError(t, e.Transition(ctx, blocked.ID(), domain.TaskInProgress, domain.Developer, ""))
}

func TestEngine_Transition_RejectsIllegalEdge(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	task, err := e.CreateTask(ctx, "t", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)
	require.NoError(t, e.Transition(ctx, task.ID(), domain.TaskInProgress, domain.Developer, ""))
	require.NoError(t, e.Transition(ctx, task.ID(), domain.TaskCompleted, domain.Developer, ""))

	err = e.Transition(ctx, task.ID(), domain.TaskInProgress, domain.Developer, "")
	var invalid *errs.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestEngine_Transition_RejectsSelfTransition(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	task, err := e.CreateTask(ctx, "t", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)

	err = e.Transition(ctx, task.ID(), domain.TaskPending, domain.Developer, "")
	var noop *errs.NoOpTransitionError
	require.ErrorAs(t, err, &noop)
}

func TestEngine_Transition_CompletedNotifiesQueen(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	task, err := e.CreateTask(ctx, "t", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)
	require.NoError(t, e.Transition(ctx, task.ID(), domain.TaskInProgress, domain.Developer, ""))
	require.NoError(t, e.Transition(ctx, task.ID(), domain.TaskCompleted, domain.Developer, ""))

	msgs, err := e.bus.Receive(ctx, domain.Queen, false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, domain.MessageTaskUpdate, msgs[0].Type())
}

func TestEngine_Cancel_CascadesToSubtasks(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	parent, err := e.CreateTask(ctx, "parent", "desc", domain.PriorityMedium, domain.Queen, "")
	require.NoError(t, err)
	child, err := e.CreateTask(ctx, "child", "desc", domain.PriorityMedium, domain.Queen, parent.ID())
	require.NoError(t, err)

	require.NoError(t, e.Cancel(ctx, parent.ID(), domain.Queen, "no longer needed"))

	gotParent, err := e.store.GetTask(ctx, parent.ID())
	require.NoError(t, err)
	require.Equal(t, domain.TaskCancelled, gotParent.Status())

	gotChild, err := e.store.GetTask(ctx, child.ID())
	require.NoError(t, err)
	require.Equal(t, domain.TaskCancelled, gotChild.Status())
}

func TestEngine_GetProgress_ReturnsFullPicture(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	task, err := e.CreateTask(ctx, "t", "desc", domain.PriorityHigh, domain.Queen, "")
	require.NoError(t, err)
	require.NoError(t, e.Assign(ctx, task.ID(), domain.Developer, domain.Queen))

	progress, err := e.GetProgress(ctx, task.ID())
	require.NoError(t, err)
	require.Equal(t, task.ID(), progress.Task.ID())
	require.Len(t, progress.Assignments, 1)
	require.NotEmpty(t, progress.Activity)
}
