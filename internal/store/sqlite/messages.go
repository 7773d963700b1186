package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/beehive-org/beehive/internal/beehive/domain"
	"github.com/beehive-org/beehive/internal/beehive/errs"
)

const messageColumns = `id, from_bee, to_bee, type, subject, content, task_id, priority, processed, processed_at, created_at, expires_at, reply_to, sender_cli_used, conversation_id`

func scanMessage(scanner interface{ Scan(...any) error }) (*messageModel, error) {
	var m messageModel
	err := scanner.Scan(
		&m.ID, &m.FromBee, &m.ToBee, &m.Type, &m.Subject, &m.Content, &m.TaskID,
		&m.Priority, &m.Processed, &m.ProcessedAt, &m.CreatedAt, &m.ExpiresAt,
		&m.ReplyTo, &m.SenderCLIUsed, &m.ConversationID,
	)
	return &m, err
}

// Enqueue inserts a new message and returns its assigned id.
func (db *DB) Enqueue(ctx context.Context, m *domain.Message) (int64, error) {
	var id int64
	err := withRetry(ctx, "Enqueue", func() error {
		row := toMessageModel(m)
		res, err := db.conn.ExecContext(ctx,
			`INSERT INTO messages (from_bee, to_bee, type, subject, content, task_id, priority, processed, processed_at, created_at, expires_at, reply_to, sender_cli_used, conversation_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.FromBee, row.ToBee, row.Type, row.Subject, row.Content, row.TaskID,
			row.Priority, row.Processed, row.ProcessedAt, row.CreatedAt, row.ExpiresAt,
			row.ReplyTo, row.SenderCLIUsed, row.ConversationID,
		)
		if err != nil {
			return classifyWriteErr("messages", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Dequeue returns unprocessed (or, if includeProcessed, all) unexpired
// messages addressed to bee, oldest first within priority band, honoring
// the invariant that expired messages are never delivered.
func (db *DB) Dequeue(ctx context.Context, bee domain.BeeName, includeProcessed bool) ([]*domain.Message, error) {
	var out []*domain.Message
	err := withRetry(ctx, "Dequeue", func() error {
		out = nil
		now := time.Now().Unix()
		query := `SELECT ` + messageColumns + ` FROM messages WHERE to_bee = ? AND (expires_at IS NULL OR expires_at > ?)`
		if !includeProcessed {
			query += ` AND processed = 0`
		}
		query += ` ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END, created_at ASC`
		rows, err := db.conn.QueryContext(ctx, query, string(bee), now)
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

// MarkProcessed flips processed on a message; idempotent, matching the
// domain Message.MarkProcessed no-op-on-repeat semantics.
func (db *DB) MarkProcessed(ctx context.Context, id int64) error {
	return withRetry(ctx, "MarkProcessed", func() error {
		_, err := db.conn.ExecContext(ctx,
			`UPDATE messages SET processed = 1, processed_at = ? WHERE id = ? AND processed = 0`,
			time.Now().Unix(), id)
		return err
	})
}

func (db *DB) GetMessage(ctx context.Context, id int64) (*domain.Message, error) {
	var msg *domain.Message
	err := withRetry(ctx, "GetMessage", func() error {
		row := db.conn.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
		m, err := scanMessage(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &errs.ValidationError{Field: "message_id", Reason: "no such message"}
		}
		if err != nil {
			return err
		}
		msg = m.toDomain()
		return nil
	})
	return msg, err
}

// ListExpiredUnprocessed returns unprocessed messages whose expiry has
// passed as of asOf, used by the Supervisor's reaping duty.
func (db *DB) ListExpiredUnprocessed(ctx context.Context, asOf time.Time) ([]*domain.Message, error) {
	var out []*domain.Message
	err := withRetry(ctx, "ListExpiredUnprocessed", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE processed = 0 AND expires_at IS NOT NULL AND expires_at < ?`,
			asOf.Unix())
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

func (db *DB) ListMessagesSince(ctx context.Context, since time.Time) ([]*domain.Message, error) {
	var out []*domain.Message
	err := withRetry(ctx, "ListMessagesSince", func() error {
		out = nil
		rows, err := db.conn.QueryContext(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE created_at >= ? ORDER BY created_at ASC LIMIT 500`,
			since.Unix())
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
