package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(dbPath)
	require.NoError(t, err, "NewDB should succeed")
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_SeedsAgentStates(t *testing.T) {
	db := setupTestDB(t)
	states, err := db.ListAgentStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 4)
	for _, s := range states {
		require.Equal(t, domain.AgentIdle, s.Status())
	}
}

func TestNewDB_RejectsNewerSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(dbPath)
	require.NoError(t, err)

	_, err = db.conn.Exec(`UPDATE schema_migrations SET version = ?`, latestSchemaVersion+1)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewDB(dbPath)
	require.Error(t, err, "opening a database with a newer schema version must abort")
}

func TestCreateTask_AppendsCreatedActivity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := domain.NewTask("t1", "write docs", "fill in the readme", domain.PriorityMedium, domain.Queen)
	require.NoError(t, db.CreateTask(ctx, task))

	got, err := db.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "write docs", got.Title())
	require.Equal(t, domain.TaskPending, got.Status())

	activity, err := db.ListActivity(ctx, "t1", 10)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	require.Equal(t, domain.ActivityCreated, activity[0].Type)
}

func TestGetTask_NotFound(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetTask(context.Background(), "missing")
	require.Error(t, err)
	var notFound *errs.TaskNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "missing", notFound.TaskID)
}

func TestSetTaskStatus_SetsStartedAndCompletedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	task := domain.NewTask("t1", "title", "desc", domain.PriorityLow, domain.Queen)
	require.NoError(t, db.CreateTask(ctx, task))

	require.NoError(t, db.SetTaskStatus(ctx, "t1", domain.TaskInProgress, domain.Queen, ""))
	got, err := db.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt())
	require.Nil(t, got.CompletedAt())

	require.NoError(t, db.SetTaskStatus(ctx, "t1", domain.TaskCompleted, domain.Queen, "done"))
	got, err = db.GetTask(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got.CompletedAt())
}

func TestAddDependency_RejectsSelfDependency(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	task := domain.NewTask("t1", "title", "desc", domain.PriorityLow, domain.Queen)
	require.NoError(t, db.CreateTask(ctx, task))

	err := db.AddDependency(ctx, domain.TaskDependency{TaskID: "t1", DependsOnID: "t1", Type: domain.DependencyBlocks})
	require.Error(t, err)
	var cyclic *errs.CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
}

func TestAddDependency_RejectsCycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.CreateTask(ctx, domain.NewTask(id, id, id, domain.PriorityLow, domain.Queen)))
	}

	// a depends on b, b depends on c: legal chain.
	require.NoError(t, db.AddDependency(ctx, domain.TaskDependency{TaskID: "a", DependsOnID: "b", Type: domain.DependencyBlocks}))
	require.NoError(t, db.AddDependency(ctx, domain.TaskDependency{TaskID: "b", DependsOnID: "c", Type: domain.DependencyBlocks}))

	// c depends on a would close the cycle a -> b -> c -> a.
	err := db.AddDependency(ctx, domain.TaskDependency{TaskID: "c", DependsOnID: "a", Type: domain.DependencyBlocks})
	require.Error(t, err)
	var cyclic *errs.CyclicDependencyError
	require.True(t, errors.As(err, &cyclic))
}

func TestCreateAssignment_SecondPrimaryReplacesFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateTask(ctx, domain.NewTask("t1", "title", "desc", domain.PriorityLow, domain.Queen)))

	require.NoError(t, db.CreateAssignment(ctx, domain.Assignment{
		TaskID: "t1", Assignee: domain.Developer, Assigner: domain.Queen, Role: domain.RolePrimary, Status: domain.AssignmentActive,
	}))
	require.NoError(t, db.CreateAssignment(ctx, domain.Assignment{
		TaskID: "t1", Assignee: domain.QA, Assigner: domain.Queen, Role: domain.RolePrimary, Status: domain.AssignmentActive,
	}))

	assignments, err := db.ListAssignments(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	var activeCount int
	for _, a := range assignments {
		if a.Status == domain.AssignmentActive {
			activeCount++
			require.Equal(t, domain.QA, a.Assignee)
		} else {
			require.Equal(t, domain.AssignmentReplaced, a.Status)
		}
	}
	require.Equal(t, 1, activeCount)
}

func TestEnqueueDequeue_HonorsExpiry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	expired := domain.NewMessage(domain.Queen, domain.Developer, domain.MessageInfo, "", "stale", domain.MsgPriorityNormal).
		WithExpiry(time.Now().Add(-time.Hour))
	fresh := domain.NewMessage(domain.Queen, domain.Developer, domain.MessageInfo, "", "current", domain.MsgPriorityNormal)

	_, err := db.Enqueue(ctx, expired)
	require.NoError(t, err)
	_, err = db.Enqueue(ctx, fresh)
	require.NoError(t, err)

	msgs, err := db.Dequeue(ctx, domain.Developer, false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "current", msgs[0].Content())
}

func TestMarkProcessed_IsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	msg := domain.NewMessage(domain.Queen, domain.Developer, domain.MessageInfo, "", "hello", domain.MsgPriorityNormal)
	id, err := db.Enqueue(ctx, msg)
	require.NoError(t, err)

	require.NoError(t, db.MarkProcessed(ctx, id))
	require.NoError(t, db.MarkProcessed(ctx, id))

	got, err := db.GetMessage(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Processed())
}

func TestUpsertAgentState_Overwrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	state := domain.NewAgentState(domain.Queen)
	state.SetStatus(domain.AgentBusy)
	taskID := "t1"
	state.SetCurrentTask(&taskID)
	require.NoError(t, db.UpsertAgentState(ctx, state))

	got, err := db.GetAgentState(ctx, domain.Queen)
	require.NoError(t, err)
	require.Equal(t, domain.AgentBusy, got.Status())
	require.Equal(t, "t1", *got.CurrentTaskID())
}

func TestActiveTasksView_ExcludesTerminalTasks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateTask(ctx, domain.NewTask("t1", "open", "desc", domain.PriorityLow, domain.Queen)))
	require.NoError(t, db.CreateTask(ctx, domain.NewTask("t2", "done", "desc", domain.PriorityLow, domain.Queen)))
	require.NoError(t, db.SetTaskStatus(ctx, "t2", domain.TaskCompleted, domain.Queen, ""))

	rows, err := db.ActiveTasks(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "t1", rows[0].ID)
}
