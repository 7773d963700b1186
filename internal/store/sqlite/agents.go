package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
)

const agentColumns = `bee, status, current_task_id, last_activity, last_heartbeat, workload_score, performance_score, capabilities`

func scanAgentState(scanner interface{ Scan(...any) error }) (*agentStateModel, error) {
	var m agentStateModel
	err := scanner.Scan(&m.Bee, &m.Status, &m.CurrentTaskID, &m.LastActivity, &m.LastHeartbeat, &m.WorkloadScore, &m.PerformanceScore, &m.Capabilities)
	return &m, err
}

// UpsertAgentState writes the full row for a bee, overwriting whatever was
// there. Callers read-modify-write through GetAgentState first when they
// need to preserve fields they are not changing.
func (db *DB) UpsertAgentState(ctx context.Context, s *domain.AgentState) error {
	return withRetry(ctx, "UpsertAgentState", func() error {
		m := toAgentStateModel(s)
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO agent_state (bee, status, current_task_id, last_activity, last_heartbeat, workload_score, performance_score, capabilities)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(bee) DO UPDATE SET status = excluded.status, current_task_id = excluded.current_task_id,
				last_activity = excluded.last_activity, last_heartbeat = excluded.last_heartbeat,
				workload_score = excluded.workload_score, performance_score = excluded.performance_score,
				capabilities = excluded.capabilities`,
			m.Bee, m.Status, m.CurrentTaskID, m.LastActivity, m.LastHeartbeat, m.WorkloadScore, m.PerformanceScore, m.Capabilities,
		)
		if err != nil {
			return classifyWriteErr("agent_state", err)
		}
		return nil
	})
}

func (db *DB) GetAgentState(ctx context.Context, bee domain.BeeName) (*domain.AgentState, error) {
	var state *domain.AgentState
	err := withRetry(ctx, "GetAgentState", func() error {
		row := db.conn.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agent_state WHERE bee = ?`, string(bee))
		m, err := scanAgentState(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &errs.ValidationError{Field: "bee", Reason: "no agent_state row for " + string(bee)}
		}
		if err != nil {
			return err
		}
		state = m.toDomain()
		return nil
	})
	return state, err
}

func (db *DB) ListAgentStates(ctx context.Context) ([]*domain.AgentState, error) {
	var out []*domain.AgentState
	err := withRetry(ctx, "ListAgentStates", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx, `SELECT `+agentColumns+` FROM agent_state ORDER BY bee ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanAgentState(rows)
			if err != nil {
				return err
			}
			out = append(out, m.toDomain())
		}
		return rows.Err()
	})
	return out, err
}

// SeedAgentStates inserts an idle agent_state row for every known worker
// bee that does not already have one, per the "one row per bee seeded at
// install time" requirement. It is safe to call on every startup.
func SeedAgentStates(ctx context.Context, db *DB, bees []domain.BeeName) error {
	return withRetry(ctx, "SeedAgentStates", func() error {
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		for _, bee := range bees {
			state := domain.NewAgentState(bee)
			m := toAgentStateModel(state)
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO agent_state (bee, status, current_task_id, last_activity, last_heartbeat, workload_score, performance_score, capabilities)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				m.Bee, m.Status, m.CurrentTaskID, m.LastActivity, m.LastHeartbeat, m.WorkloadScore, m.PerformanceScore, m.Capabilities,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}
