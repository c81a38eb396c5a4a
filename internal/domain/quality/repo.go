package quality

import (
	"context"
	"errors"

	"github.com/Spok95/metalqms/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

const inspectionCols = `id, receipt_id, COALESCE(inspector_id, 0), COALESCE(checklist_id, 0), status,
	requires_ultrasonic, requires_ppsd, ultrasonic_reasons, ppsd_reasons, comments,
	created_at, started_at, completed_at`

func scanInspection(row pgx.Row) (*Inspection, error) {
	var in Inspection
	if err := row.Scan(&in.ID, &in.ReceiptID, &in.InspectorID, &in.ChecklistID, &in.Status,
		&in.RequiresUltrasonic, &in.RequiresPpsd, &in.UltrasonicReasons, &in.PpsdReasons, &in.Comments,
		&in.CreatedAt, &in.StartedAt, &in.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &in, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create вставляет инспекцию вместе со строками результатов.
func (r *Repo) Create(ctx context.Context, in *Inspection) error {
	if in.Status == "" {
		in.Status = InspectionPending
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO inspections (receipt_id, inspector_id, checklist_id, status,
			requires_ultrasonic, requires_ppsd, ultrasonic_reasons, ppsd_reasons, comments)
		VALUES ($1, NULLIF($2::bigint, 0), NULLIF($3::bigint, 0), $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, in.ReceiptID, in.InspectorID, in.ChecklistID, in.Status,
		in.RequiresUltrasonic, in.RequiresPpsd, nonNil(in.UltrasonicReasons), nonNil(in.PpsdReasons), in.Comments).
		Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return err
	}

	for i := range in.Results {
		it := &in.Results[i]
		it.InspectionID = in.ID
		if err := r.db.QueryRow(ctx, `
			INSERT INTO inspection_results (inspection_id, checklist_item_id, item_order, description, critical, result, notes, measured_value)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id
		`, it.InspectionID, it.ChecklistItemID, it.Order, it.Description, it.Critical, it.Result, it.Notes, it.MeasuredValue).
			Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) withResults(ctx context.Context, in *Inspection, err error) (*Inspection, error) {
	if err != nil || in == nil {
		return in, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, inspection_id, checklist_item_id, item_order, description, critical, result, notes, measured_value
		FROM inspection_results
		WHERE inspection_id = $1
		ORDER BY item_order, id`, in.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it ResultItem
		if err := rows.Scan(&it.ID, &it.InspectionID, &it.ChecklistItemID, &it.Order, &it.Description,
			&it.Critical, &it.Result, &it.Notes, &it.MeasuredValue); err != nil {
			return nil, err
		}
		in.Results = append(in.Results, it)
	}
	return in, rows.Err()
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Inspection, error) {
	in, err := scanInspection(r.db.QueryRow(ctx, `SELECT `+inspectionCols+` FROM inspections WHERE id = $1`, id))
	return r.withResults(ctx, in, err)
}

func (r *Repo) LockByID(ctx context.Context, id int64) (*Inspection, error) {
	in, err := scanInspection(r.db.QueryRow(ctx, `SELECT `+inspectionCols+` FROM inspections WHERE id = $1 FOR UPDATE`, id))
	return r.withResults(ctx, in, err)
}

func (r *Repo) FindByReceipt(ctx context.Context, receiptID int64) (*Inspection, error) {
	in, err := scanInspection(r.db.QueryRow(ctx, `SELECT `+inspectionCols+` FROM inspections WHERE receipt_id = $1`, receiptID))
	return r.withResults(ctx, in, err)
}

// UpdateState сохраняет статус, инспектора, отметки времени и комментарий.
// Флаги требований после создания не трогаются.
func (r *Repo) UpdateState(ctx context.Context, in Inspection) error {
	_, err := r.db.Exec(ctx, `
		UPDATE inspections
		SET status = $2, inspector_id = NULLIF($3::bigint, 0), started_at = $4, completed_at = $5, comments = $6
		WHERE id = $1
	`, in.ID, in.Status, in.InspectorID, in.StartedAt, in.CompletedAt, in.Comments)
	return err
}

func (r *Repo) UpdateResult(ctx context.Context, it ResultItem) error {
	_, err := r.db.Exec(ctx, `
		UPDATE inspection_results SET result = $2, notes = $3, measured_value = $4
		WHERE id = $1
	`, it.ID, it.Result, it.Notes, it.MeasuredValue)
	return err
}

// ChecklistRepo — шаблоны чек-листов.
type ChecklistRepo struct{ db db.DBTX }

func NewChecklistRepo(conn db.DBTX) *ChecklistRepo { return &ChecklistRepo{db: conn} }

// ListActive возвращает активные чек-листы с пунктами.
func (r *ChecklistRepo) ListActive(ctx context.Context) ([]Checklist, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, grade, version, description, active
		FROM checklists
		WHERE active
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var out []Checklist
	byID := map[int64]int{}
	for rows.Next() {
		var c Checklist
		if err := rows.Scan(&c.ID, &c.Name, &c.Grade, &c.Version, &c.Description, &c.Active); err != nil {
			rows.Close()
			return nil, err
		}
		byID[c.ID] = len(out)
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	items, err := r.db.Query(ctx, `
		SELECT i.id, i.checklist_id, i.item_order, i.description, i.critical, i.acceptance_criteria
		FROM checklist_items i
		JOIN checklists c ON c.id = i.checklist_id
		WHERE c.active
		ORDER BY i.checklist_id, i.item_order`)
	if err != nil {
		return nil, err
	}
	defer items.Close()
	for items.Next() {
		var it ChecklistItem
		if err := items.Scan(&it.ID, &it.ChecklistID, &it.Order, &it.Description, &it.Critical, &it.AcceptanceCriteria); err != nil {
			return nil, err
		}
		if idx, ok := byID[it.ChecklistID]; ok {
			out[idx].Items = append(out[idx].Items, it)
		}
	}
	return out, items.Err()
}

// Create сохраняет чек-лист с пунктами. Повтор имени и версии — ошибка уникальности.
func (r *ChecklistRepo) Create(ctx context.Context, c *Checklist) error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if err := r.db.QueryRow(ctx, `
		INSERT INTO checklists (name, grade, version, description, active)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, c.Name, c.Grade, c.Version, c.Description, c.Active).Scan(&c.ID); err != nil {
		return err
	}
	for i := range c.Items {
		it := &c.Items[i]
		it.ChecklistID = c.ID
		if err := r.db.QueryRow(ctx, `
			INSERT INTO checklist_items (checklist_id, item_order, description, critical, acceptance_criteria)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, it.ChecklistID, it.Order, it.Description, it.Critical, it.AcceptanceCriteria).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}
