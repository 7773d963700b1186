package sqlite

import (
	"context"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/store"
)

// ActiveTasks queries the active_tasks view (migration 0001): pending and
// in_progress tasks with their dependency and child counts precomputed in
// SQL rather than N+1'd from Go.
func (db *DB) ActiveTasks(ctx context.Context) ([]store.ActiveTaskRow, error) {
	var out []store.ActiveTaskRow
	err := withRetry(ctx, "ActiveTasks", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx,
			`SELECT id, title, status, priority, assigned_to, created_at, updated_at, dependency_count, child_count FROM active_tasks`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r store.ActiveTaskRow
			var assignedTo *string
			var createdAt, updatedAt int64
			if err := rows.Scan(&r.ID, &r.Title, &r.Status, &r.Priority, &assignedTo, &createdAt, &updatedAt, &r.DependencyCount, &r.ChildCount); err != nil {
				return err
			}
			if assignedTo != nil {
				bee := domain.BeeName(*assignedTo)
				r.AssignedTo = &bee
			}
			r.CreatedAt = unixTime(createdAt)
			r.UpdatedAt = unixTime(updatedAt)
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}

// PendingMessages queries the pending_messages view: unprocessed,
// unexpired messages ordered by priority then age.
func (db *DB) PendingMessages(ctx context.Context) ([]*domain.Message, error) {
	var out []*domain.Message
	err := withRetry(ctx, "PendingMessages", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx, `SELECT `+messageColumns+` FROM pending_messages`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanMessage(rows)
			if err != nil {
				return err
			}
			out = append(out, m.toDomain())
		}
		return rows.Err()
	})
	return out, err
}

// AgentWorkload queries the agent_workload view.
func (db *DB) AgentWorkload(ctx context.Context) ([]store.AgentWorkloadRow, error) {
	var out []store.AgentWorkloadRow
	err := withRetry(ctx, "AgentWorkload", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx, `SELECT bee, active_task_count, active_assignment_count FROM agent_workload`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r store.AgentWorkloadRow
			var bee string
			if err := rows.Scan(&bee, &r.ActiveTaskCount, &r.ActiveAssignmentCount); err != nil {
				return err
			}
			r.Bee = domain.BeeName(bee)
			out = append(out, r)
		}
		return rows.Err()
	})
	return out, err
}
