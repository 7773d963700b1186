package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
)

// AppendInjectionLog records one Injector.Send attempt, successful or not,
// for the audit trail spec 4.B requires regardless of outcome.
func (db *DB) AppendInjectionLog(ctx context.Context, e domain.InjectionLogEntry) error {
	return withRetry(ctx, "AppendInjectionLog", func() error {
		var metadata *string
		if len(e.Metadata) > 0 {
			if b, err := json.Marshal(e.Metadata); err == nil {
				s := string(b)
				metadata = &s
			}
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO injection_log (session, pane, payload_or_hash, type, sender, metadata, dry_run, created_at, outcome)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Session, e.Pane.String(), e.PayloadOrHash, string(e.Type), string(e.Sender), metadata, e.DryRun, createdAt.Unix(), string(e.Outcome),
		)
		if err != nil {
			return classifyWriteErr("injection_log", err)
		}
		return nil
	})
}
