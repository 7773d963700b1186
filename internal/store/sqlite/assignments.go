package sqlite

import (
	"context"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// CreateAssignment inserts an Assignment row. If role is primary, any
// existing active primary assignment for the task is first marked
// replaced, enforcing "at most one primary per task at a time" without
// requiring the caller to sequence two separate Store calls.
func (db *DB) CreateAssignment(ctx context.Context, a domain.Assignment) error {
	return withRetry(ctx, "CreateAssignment", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if a.Role == domain.RolePrimary {
			if _, err := tx.ExecContext(ctx,
				`UPDATE assignments SET status = 'replaced' WHERE task_id = ? AND role = 'primary' AND status IN ('active','accepted')`,
				a.TaskID); err != nil {
				return err
			}
		}

		assignedAt := a.AssignedAt
		if assignedAt.IsZero() {
			assignedAt = time.Now()
		}
		status := a.Status
		if status == "" {
			status = domain.AssignmentActive
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO assignments (task_id, assignee, assigner, role, status, assigned_at, accepted_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.TaskID, string(a.Assignee), string(a.Assigner), string(a.Role), string(status),
			assignedAt.Unix(), unixPtr(a.AcceptedAt), unixPtr(a.CompletedAt),
		)
		if err != nil {
			return classifyWriteErr("assignments", err)
		}
		return tx.Commit()
	})
}

func (db *DB) ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	err := withRetry(ctx, "ListAssignments", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx,
			`SELECT task_id, assignee, assigner, role, status, assigned_at, accepted_at, completed_at FROM assignments WHERE task_id = ? ORDER BY assigned_at ASC`,
			taskID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a domain.Assignment
			var assignedAt int64
			var acceptedAt, completedAt *int64
			var role, status string
			if err := rows.Scan(&a.TaskID, &a.Assignee, &a.Assigner, &role, &status, &assignedAt, &acceptedAt, &completedAt); err != nil {
				return err
			}
			a.Role = domain.AssignmentRole(role)
			a.Status = domain.AssignmentStatus(status)
			a.AssignedAt = time.Unix(assignedAt, 0)
			if acceptedAt != nil {
				v := time.Unix(*acceptedAt, 0)
				a.AcceptedAt = &v
			}
			if completedAt != nil {
				v := time.Unix(*completedAt, 0)
				a.CompletedAt = &v
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	return out, err
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}
