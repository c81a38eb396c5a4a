package materials

import (
	"context"
	"errors"
	"fmt"

	"github.com/Spok95/metalqms/internal/infra/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ db db.DBTX }

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

const materialCols = `id, external_id, grade, size, supplier, order_number, certificate_number,
	heat_number, quantity::float8, unit, location, is_deleted, deleted_at, created_at`

func scanMaterial(row pgx.Row) (*Material, error) {
	var m Material
	if err := row.Scan(
		&m.ID,
		&m.ExternalID,
		&m.Grade,
		&m.Size,
		&m.Supplier,
		&m.OrderNumber,
		&m.CertificateNumber,
		&m.HeatNumber,
		&m.Quantity,
		&m.Unit,
		&m.Location,
		&m.Deleted,
		&m.DeletedAt,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) Create(ctx context.Context, in NewInput) (*Material, error) {
	if in.Unit == "" {
		in.Unit = UnitKg
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must be >= 0")
	}
	return scanMaterial(r.db.QueryRow(ctx, `
		INSERT INTO materials (external_id, grade, size, supplier, order_number, certificate_number,
			heat_number, quantity, unit, location)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+materialCols,
		uuid.New(), in.Grade, in.Size, in.Supplier, in.OrderNumber, in.CertificateNumber,
		in.HeatNumber, in.Quantity, in.Unit, in.Location))
}

// GetByID возвращает партию, в том числе удалённую (nil, nil — если нет такой).
func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	return scanMaterial(r.db.QueryRow(ctx, `SELECT `+materialCols+` FROM materials WHERE id = $1`, id))
}

// LockByID берёт строку под FOR UPDATE, удалённые партии не возвращает.
// Вызывать внутри транзакции: блокировка сериализует приёмку одной партии.
func (r *Repo) LockByID(ctx context.Context, id int64) (*Material, error) {
	return scanMaterial(r.db.QueryRow(ctx, `
		SELECT `+materialCols+` FROM materials
		WHERE id = $1 AND is_deleted = FALSE
		FOR UPDATE`, id))
}

// UpdateGrade исправляет марку партии. Уже созданные инспекции не пересчитываются.
func (r *Repo) UpdateGrade(ctx context.Context, id int64, grade string) error {
	_, err := r.db.Exec(ctx, `UPDATE materials SET grade = $2 WHERE id = $1 AND is_deleted = FALSE`, id, grade)
	return err
}

// SoftDelete помечает партию удалённой, физически строки не удаляются.
func (r *Repo) SoftDelete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE materials SET is_deleted = TRUE, deleted_at = now()
		WHERE id = $1 AND is_deleted = FALSE`, id)
	return err
}
