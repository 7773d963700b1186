package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// appendActivityTx records one activity_log row as part of an
// already-open transaction, so that every mutation to a task carries
// its own audit trail entry atomically. Callers in tasks.go treat this
// as unskippable: there is no code path that updates a task without
// also calling this.
func appendActivityTx(ctx context.Context, tx *sql.Tx, taskID string, bee domain.BeeName, activityType domain.ActivityType, description, oldValue, newValue string) error {
	var oldVal, newVal *string
	if oldValue != "" {
		oldVal = &oldValue
	}
	if newValue != "" {
		newVal = &newValue
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_log (task_id, bee_name, activity_type, description, old_value, new_value, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, string(bee), string(activityType), description, oldVal, newVal, time.Now().Unix(),
	)
	return err
}

// AppendActivity records a standalone activity entry (e.g. a note) not
// tied to another mutation already running inside a transaction.
func (db *DB) AppendActivity(ctx context.Context, e domain.ActivityEntry) error {
	return withRetry(ctx, "AppendActivity", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := appendActivityTx(ctx, tx, e.TaskID, e.BeeName, e.Type, e.Description, e.OldValue, e.NewValue); err != nil {
			return classifyWriteErr("activity_log", err)
		}
		return tx.Commit()
	})
}

func (db *DB) ListActivity(ctx context.Context, taskID string, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.ActivityEntry
	err := withRetry(ctx, "ListActivity", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx,
			`SELECT task_id, bee_name, activity_type, description, old_value, new_value, created_at
			 FROM activity_log WHERE task_id = ? ORDER BY created_at DESC LIMIT ?`,
			taskID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var m activityModel
			if err := rows.Scan(&m.TaskID, &m.BeeName, &m.Type, &m.Description, &m.OldValue, &m.NewValue, &m.CreatedAt); err != nil {
				return err
			}
			out = append(out, m.toDomain())
		}
		return rows.Err()
	})
	return out, err
}
