package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Spok95/metalqms/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

// Repo — таблица notification_outbox.
type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

const outboxCols = `id, user_id, kind, payload, urgent, status, attempts,
	next_attempt_at, locked_until, last_error, created_at, sent_at`

func scanMessage(row pgx.Row) (Message, error) {
	var (
		m   Message
		raw []byte
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.Kind, &raw, &m.Urgent, &m.Status, &m.Attempts,
		&m.NextAttemptAt, &m.LockedUntil, &m.LastError, &m.CreatedAt, &m.SentAt); err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m.Payload); err != nil {
		return m, fmt.Errorf("decode outbox payload %s: %w", m.ID, err)
	}
	return m, nil
}

// Enqueue пишет сообщение. Вызывается внутри транзакции смены статуса.
func (r *Repo) Enqueue(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO notification_outbox (id, user_id, kind, payload, urgent, status, next_attempt_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, m.ID, m.UserID, m.Kind, payload, m.Urgent, m.Status, m.NextAttemptAt, m.CreatedAt)
	return err
}

// ClaimDue забирает до limit готовых сообщений и ставит аренду до now+lease.
// SKIP LOCKED не даёт двум диспетчерам взять одну строку, аренда — повторно
// взять строку, которую держит упавший диспетчер.
func (r *Repo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Message, error) {
	rows, err := r.db.Query(ctx, `
		WITH due AS (
			SELECT id FROM notification_outbox
			WHERE status IN ('pending', 'retry')
			  AND next_attempt_at <= $1
			  AND (locked_until IS NULL OR locked_until <= $1)
			ORDER BY urgent DESC, next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_outbox o SET locked_until = $2
		FROM due WHERE o.id = due.id
		RETURNING o.id, o.user_id, o.kind, o.payload, o.urgent, o.status, o.attempts,
			o.next_attempt_at, o.locked_until, o.last_error, o.created_at, o.sent_at
	`, now, now.Add(lease), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repo) MarkSent(ctx context.Context, m Message, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', attempts = attempts + 1, sent_at = $2, locked_until = NULL, last_error = ''
		WHERE id = $1 AND status <> 'sent'
	`, m.ID, now)
	return err
}

func (r *Repo) MarkRetry(ctx context.Context, m Message, next time.Time, cause string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'retry', attempts = attempts + 1, next_attempt_at = $2, locked_until = NULL, last_error = $3
		WHERE id = $1 AND status <> 'sent'
	`, m.ID, next, cause)
	return err
}

func (r *Repo) MarkFailed(ctx context.Context, m Message, cause string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'failed', attempts = attempts + 1, locked_until = NULL, last_error = $2
		WHERE id = $1 AND status <> 'sent'
	`, m.ID, cause)
	return err
}

// ListByStatus — для CLI и отладки.
func (r *Repo) ListByStatus(ctx context.Context, status Status, limit int) ([]Message, error) {
	rows, err := r.db.Query(ctx, `SELECT `+outboxCols+` FROM notification_outbox
		WHERE status = $1 ORDER BY created_at LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
