package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
	"github.com/beehive-org/beehive/internal/store"
)

const taskColumns = `id, title, description, status, priority, assigned_to, created_by, parent_task_id, metadata, created_at, updated_at, started_at, completed_at`

func scanTask(scanner interface{ Scan(...any) error }) (*taskModel, error) {
	var m taskModel
	err := scanner.Scan(
		&m.ID, &m.Title, &m.Description, &m.Status, &m.Priority, &m.AssignedTo,
		&m.CreatedBy, &m.ParentTaskID, &m.Metadata, &m.CreatedAt, &m.UpdatedAt,
		&m.StartedAt, &m.CompletedAt,
	)
	return &m, err
}

// CreateTask inserts a new task row and appends the "created" activity
// entry in the same transaction, per the Store's trigger-like guarantee.
func (db *DB) CreateTask(ctx context.Context, t *domain.Task) error {
	return withRetry(ctx, "CreateTask", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		m := toTaskModel(t)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (id, title, description, status, priority, assigned_to, created_by, parent_task_id, metadata, created_at, updated_at, started_at, completed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Title, m.Description, m.Status, m.Priority, m.AssignedTo, m.CreatedBy,
			m.ParentTaskID, m.Metadata, m.CreatedAt, m.UpdatedAt, m.StartedAt, m.CompletedAt,
		)
		if err != nil {
			return classifyWriteErr("tasks", err)
		}

		if err := appendActivityTx(ctx, tx, t.ID(), t.CreatedBy(), domain.ActivityCreated, "task created", "", ""); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (db *DB) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := withRetry(ctx, "GetTask", func() error {
		row := db.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
		m, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &errs.TaskNotFoundError{TaskID: id}
		}
		if err != nil {
			return err
		}
		task = m.toDomain()
		return nil
	})
	return task, err
}

func (db *DB) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AssignedTo != "" {
		query += ` AND assigned_to = ?`
		args = append(args, string(filter.AssignedTo))
	}
	if filter.ParentID != "" {
		query += ` AND parent_task_id = ?`
		args = append(args, filter.ParentID)
	}
	query += ` ORDER BY created_at ASC`

	var tasks []*domain.Task
	err := withRetry(ctx, "ListTasks", func() error {
		tasks = nil
		rows, err := db.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, m.toDomain())
		}
		return rows.Err()
	})
	return tasks, err
}

// SetTaskStatus updates status and bumps updated_at, appending the
// status_change activity entry, all within one transaction.
func (db *DB) SetTaskStatus(ctx context.Context, id string, status domain.TaskStatus, actor domain.BeeName, note string) error {
	return withRetry(ctx, "SetTaskStatus", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id)
		var oldStatus string
		if err := row.Scan(&oldStatus); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &errs.TaskNotFoundError{TaskID: id}
			}
			return err
		}

		now := time.Now().Unix()
		setClauses := []string{`status = ?`, `updated_at = ?`}
		args := []any{string(status), now}
		if status == domain.TaskInProgress {
			setClauses = append(setClauses, `started_at = COALESCE(started_at, ?)`)
			args = append(args, now)
		}
		if status == domain.TaskCompleted || status == domain.TaskFailed || status == domain.TaskCancelled {
			setClauses = append(setClauses, `completed_at = ?`)
			args = append(args, now)
		}
		args = append(args, id)
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return classifyWriteErr("tasks.status", err)
		}

		desc := fmt.Sprintf("status changed from %s to %s", oldStatus, status)
		if note != "" {
			desc += ": " + note
		}
		if err := appendActivityTx(ctx, tx, id, actor, domain.ActivityStatusChange, desc, oldStatus, string(status)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// SetTaskAssignee updates assigned_to and appends assignment_change
// activity; it does not create an Assignment row (the Task Engine's
// Assign operation does that via CreateAssignment in its own
// transaction).
func (db *DB) SetTaskAssignee(ctx context.Context, id string, bee domain.BeeName, actor domain.BeeName, note string) error {
	return withRetry(ctx, "SetTaskAssignee", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, `SELECT assigned_to FROM tasks WHERE id = ?`, id)
		var oldAssignee sql.NullString
		if err := row.Scan(&oldAssignee); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &errs.TaskNotFoundError{TaskID: id}
			}
			return err
		}

		now := time.Now().Unix()
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET assigned_to = ?, updated_at = ? WHERE id = ?`, string(bee), now, id)
		if err != nil {
			return classifyWriteErr("tasks.assigned_to", err)
		}

		desc := fmt.Sprintf("assigned to %s", bee)
		if note != "" {
			desc += ": " + note
		}
		if err := appendActivityTx(ctx, tx, id, actor, domain.ActivityAssignmentChange, desc, oldAssignee.String, string(bee)); err != nil {
			return err
		}
		return tx.Commit()
	})
}
