package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
)

// AddDependency inserts a TaskDependency edge, rejecting it at insertion
// if it would close a cycle in the dependency graph (spec 4.E edge case:
// CyclicDependency, checked via DFS on the affected subgraph rather than
// trusted to be cycle-free).
func (db *DB) AddDependency(ctx context.Context, dep domain.TaskDependency) error {
	return withRetry(ctx, "AddDependency", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if dep.TaskID == dep.DependsOnID {
			return &errs.CyclicDependencyError{TaskID: dep.TaskID, DependsOnID: dep.DependsOnID}
		}

		cyclic, err := wouldCreateCycle(ctx, tx, dep.TaskID, dep.DependsOnID)
		if err != nil {
			return err
		}
		if cyclic {
			return &errs.CyclicDependencyError{TaskID: dep.TaskID, DependsOnID: dep.DependsOnID}
		}

		createdAt := dep.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, depends_on_task_id, type, created_at) VALUES (?, ?, ?, ?)`,
			dep.TaskID, dep.DependsOnID, string(dep.Type), createdAt.Unix(),
		)
		if err != nil {
			return classifyWriteErr("task_dependencies", err)
		}
		return tx.Commit()
	})
}

// wouldCreateCycle reports whether adding the edge from->to would create a
// cycle, by checking whether to can already reach from through existing
// dependency edges (a DFS on the subgraph reachable from `to`).
func wouldCreateCycle(ctx context.Context, tx *sql.Tx, from, to string) (bool, error) {
	visited := map[string]bool{}
	stack := []string{to}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		if cur == from {
			return true, nil
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true

		rows, err := tx.QueryContext(ctx, `SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ?`, cur)
		if err != nil {
			return false, err
		}
		for rows.Next() {
			var next string
			if err := rows.Scan(&next); err != nil {
				rows.Close()
				return false, err
			}
			stack = append(stack, next)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return false, err
		}
		rows.Close()
	}
	return false, nil
}

func (db *DB) ListDependencies(ctx context.Context, taskID string) ([]domain.TaskDependency, error) {
	var deps []domain.TaskDependency
	err := withRetry(ctx, "ListDependencies", func() error {
		deps = nil
		rows, err := db.conn.QueryContext(ctx, `SELECT task_id, depends_on_task_id, type, created_at FROM task_dependencies WHERE task_id = ?`, taskID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d domain.TaskDependency
			var createdAt int64
			if err := rows.Scan(&d.TaskID, &d.DependsOnID, &d.Type, &createdAt); err != nil {
				return err
			}
			d.CreatedAt = time.Unix(createdAt, 0)
			deps = append(deps, d)
		}
		return rows.Err()
	})
	return deps, err
}

func (db *DB) ListDependents(ctx context.Context, taskID string) ([]domain.TaskDependency, error) {
	var deps []domain.TaskDependency
	err := withRetry(ctx, "ListDependents", func() error {
		deps = nil
		rows, err := db.conn.QueryContext(ctx, `SELECT task_id, depends_on_task_id, type, created_at FROM task_dependencies WHERE depends_on_task_id = ?`, taskID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var d domain.TaskDependency
			var createdAt int64
			if err := rows.Scan(&d.TaskID, &d.DependsOnID, &d.Type, &createdAt); err != nil {
				return err
			}
			d.CreatedAt = time.Unix(createdAt, 0)
			deps = append(deps, d)
		}
		return rows.Err()
	})
	return deps, err
}
