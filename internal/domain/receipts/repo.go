package receipts

import (
	"context"
	"errors"

	"github.com/Spok95/metalqms/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

const receiptCols = `id, material_id, received_by, document_number, status, notes,
	received_at, created_at, updated_at, COALESCE(updated_by, 0)`

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var r Receipt
	if err := row.Scan(&r.ID, &r.MaterialID, &r.ReceivedBy, &r.DocumentNumber, &r.Status, &r.Notes,
		&r.ReceivedAt, &r.CreatedAt, &r.UpdatedAt, &r.UpdatedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// Create вставляет поступление и заполняет ID и отметки времени.
func (r *Repo) Create(ctx context.Context, rc *Receipt) error {
	if rc.Status == "" {
		rc.Status = StatusPendingQC
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO receipts (material_id, received_by, document_number, status, notes, updated_by)
		VALUES ($1,$2,$3,$4,$5,$2)
		RETURNING id, received_at, created_at, updated_at
	`, rc.MaterialID, rc.ReceivedBy, rc.DocumentNumber, rc.Status, rc.Notes).
		Scan(&rc.ID, &rc.ReceivedAt, &rc.CreatedAt, &rc.UpdatedAt)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Receipt, error) {
	return scanReceipt(r.db.QueryRow(ctx, `SELECT `+receiptCols+` FROM receipts WHERE id = $1`, id))
}

func (r *Repo) LockByID(ctx context.Context, id int64) (*Receipt, error) {
	return scanReceipt(r.db.QueryRow(ctx, `SELECT `+receiptCols+` FROM receipts WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repo) FindByMaterial(ctx context.Context, materialID int64) (*Receipt, error) {
	return scanReceipt(r.db.QueryRow(ctx, `SELECT `+receiptCols+` FROM receipts WHERE material_id = $1`, materialID))
}

// UpdateStatus пишет результат Apply. Условие по старому статусу защищает от гонки
// вне FOR UPDATE: если строка уже ушла в другой статус, вернётся TransitionError.
func (r *Repo) UpdateStatus(ctx context.Context, tr Transition) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE receipts SET status = $3, updated_by = NULLIF($4::bigint, 0), updated_at = $5
		WHERE id = $1 AND status = $2
	`, tr.ReceiptID, tr.From, tr.To, tr.Actor, tr.At)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &TransitionError{From: tr.From, To: tr.To}
	}
	return nil
}

func (r *Repo) ListByStatus(ctx context.Context, status Status, limit int) ([]Receipt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+receiptCols+` FROM receipts
		WHERE status = $1
		ORDER BY received_at
		LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rc)
	}
	return out, rows.Err()
}
