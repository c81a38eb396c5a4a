package laboratory

import (
	"context"

	"github.com/Spok95/metalqms/internal/infra/db"
)

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

// Create вставляет заявку. Повтор по (inspection_id, test_type) пропускается,
// тогда ID остаётся нулевым, а created=false.
func (r *Repo) Create(ctx context.Context, req *Request) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO lab_test_requests (receipt_id, inspection_id, requested_by, test_type, status, requirements)
		VALUES ($1, $2, NULLIF($3::bigint, 0), $4, $5, $6)
		ON CONFLICT (inspection_id, test_type) DO NOTHING
	`, req.ReceiptID, req.InspectionID, req.RequestedBy, req.TestType, req.Status, req.Requirements)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	err = r.db.QueryRow(ctx, `
		SELECT id, created_at FROM lab_test_requests WHERE inspection_id = $1 AND test_type = $2
	`, req.InspectionID, req.TestType).Scan(&req.ID, &req.CreatedAt)
	return true, err
}

func (r *Repo) ListByInspection(ctx context.Context, inspectionID int64) ([]Request, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, receipt_id, inspection_id, COALESCE(requested_by, 0), test_type, status, requirements, created_at
		FROM lab_test_requests
		WHERE inspection_id = $1
		ORDER BY id`, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var q Request
		if err := rows.Scan(&q.ID, &q.ReceiptID, &q.InspectionID, &q.RequestedBy, &q.TestType,
			&q.Status, &q.Requirements, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
