// Package workflow — сценарии ОТК поверх хранилища: приёмка партии с
// созданием инспекции, смена статуса поступления и жизненный цикл инспекции.
// Каждый сценарий выполняется в одной транзакции Store.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/infra/metrics"
)

type Service struct {
	store   Store
	rules   *requirements.Rules
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store Store, rules *requirements.Rules, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, rules: rules, log: log, metrics: m, now: time.Now}
}

// WithClock подменяет часы (для тестов).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Check — оценка обоих требований без записи в хранилище.
type Check struct {
	Ultrasonic requirements.Result
	Ppsd       requirements.Result
}

func (s *Service) Check(d materials.Descriptor) Check {
	c := Check{
		Ultrasonic: s.rules.EvaluateUltrasonic(d.Grade, d.Size),
		Ppsd:       s.rules.EvaluatePpsd(d.Grade, d.Size),
	}
	s.metrics.Evaluated("ultrasonic", c.Ultrasonic.Required)
	s.metrics.Evaluated("ppsd", c.Ppsd.Required)
	if c.Ultrasonic.Unclassified {
		s.log.Debug("size not classified", "grade", d.Grade, "size", d.Size)
	}
	return c
}

type ReceiptRequest struct {
	MaterialID     int64
	ReceivedBy     int64
	DocumentNumber string
	Notes          string
	AutoCreateQC   bool
}

type ReceiptOutcome struct {
	Receipt           *receipts.Receipt
	Inspection        *quality.Inspection
	ReceiptCreated    bool
	InspectionCreated bool
	Duplicate         bool // инспекция уже была, ничего не создавалось
	Ultrasonic        requirements.Result
	Ppsd              requirements.Result
	Warnings          []string
}

func (o *ReceiptOutcome) warn(format string, args ...any) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// ProcessReceipt находит или создаёт поступление по партии и, если просили,
// ровно одну инспекцию к нему. Повторный вызов возвращает существующую
// инспекцию с Duplicate=true. Отсутствие инспектора или чек-листа — предупреждение,
// не ошибка.
func (s *Service) ProcessReceipt(ctx context.Context, req ReceiptRequest) (*ReceiptOutcome, error) {
	req.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
	if req.ReceivedBy == 0 || req.DocumentNumber == "" {
		return nil, fmt.Errorf("%w: received_by and document_number are required", ErrInvalidRequest)
	}

	var out *ReceiptOutcome
	err := s.store.InTx(ctx, func(tx Tx) error {
		out = &ReceiptOutcome{}
		return s.processReceipt(ctx, tx, req, out)
	})
	if err != nil {
		s.metrics.ReceiptProcessed("error")
		return nil, err
	}

	switch {
	case out.Duplicate:
		s.metrics.ReceiptProcessed("duplicate")
	case out.InspectionCreated:
		s.metrics.ReceiptProcessed("created")
	default:
		s.metrics.ReceiptProcessed("receipt_only")
	}
	s.log.Info("receipt processed",
		"material_id", req.MaterialID,
		"receipt_id", out.Receipt.ID,
		"receipt_created", out.ReceiptCreated,
		"inspection_created", out.InspectionCreated,
		"duplicate", out.Duplicate,
		"warnings", len(out.Warnings),
	)
	return out, nil
}

func (s *Service) processReceipt(ctx context.Context, tx Tx, req ReceiptRequest, out *ReceiptOutcome) error {
	mat, err := tx.Materials().LockByID(ctx, req.MaterialID)
	if err != nil {
		return fmt.Errorf("lock material: %w", err)
	}
	if mat == nil {
		return fmt.Errorf("%w: %d", ErrMaterialNotFound, req.MaterialID)
	}

	rc, err := tx.Receipts().FindByMaterial(ctx, mat.ID)
	if err != nil {
		return fmt.Errorf("find receipt: %w", err)
	}
	if rc == nil {
		rc = &receipts.Receipt{
			MaterialID:     mat.ID,
			ReceivedBy:     req.ReceivedBy,
			DocumentNumber: req.DocumentNumber,
			Status:         receipts.StatusPendingQC,
			Notes:          req.Notes,
		}
		if err := tx.Receipts().Create(ctx, rc); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		out.ReceiptCreated = true
	}
	out.Receipt = rc

	if !req.AutoCreateQC {
		return nil
	}

	existing, err := tx.Inspections().FindByReceipt(ctx, rc.ID)
	if err != nil {
		return fmt.Errorf("find inspection: %w", err)
	}
	if existing != nil {
		out.Inspection = existing
		out.Duplicate = true
		out.Ultrasonic = requirements.Result{Required: existing.RequiresUltrasonic, Reasons: existing.UltrasonicReasons}
		out.Ppsd = requirements.Result{Required: existing.RequiresPpsd, Reasons: existing.PpsdReasons}
		return nil
	}
	// Для закрытого поступления инспекцию уже не завершить.
	if rc.Status.Terminal() {
		out.warn("Поступление уже в статусе «%s», инспекция не создаётся", rc.Status.Title())
		return nil
	}

	check := s.Check(mat.Descriptor())
	out.Ultrasonic, out.Ppsd = check.Ultrasonic, check.Ppsd
	if check.Ultrasonic.Unclassified {
		out.warn("%s", check.Ultrasonic.Reason())
	}
	if check.Ultrasonic.Required {
		out.warn("Требуется УЗК: %s", check.Ultrasonic.Reason())
	}
	if check.Ppsd.Required {
		out.warn("Требуется ППСД: %s", check.Ppsd.Reason())
	}

	var inspectorID int64
	inspector, err := tx.Users().FirstActiveByRole(ctx, users.RoleQC)
	if err != nil {
		return fmt.Errorf("pick inspector: %w", err)
	}
	if inspector != nil {
		inspectorID = inspector.ID
	} else {
		out.warn("Нет активного инспектора ОТК, инспекция создана без исполнителя")
	}

	lists, err := tx.Checklists().ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list checklists: %w", err)
	}
	var checklist *quality.Checklist
	if c, ok := quality.SelectChecklist(mat.Grade, lists); ok {
		checklist = &c
	} else {
		out.warn("Не найден чек-лист для марки %s", mat.Grade)
	}

	in := quality.NewInspection(quality.Draft{
		ReceiptID:   rc.ID,
		InspectorID: inspectorID,
		Ultrasonic:  check.Ultrasonic,
		Ppsd:        check.Ppsd,
		Checklist:   checklist,
		Now:         s.now(),
	})
	if err := tx.Inspections().Create(ctx, &in); err != nil {
		return fmt.Errorf("create inspection: %w", err)
	}
	out.Inspection = &in
	out.InspectionCreated = true
	return nil
}

// CreateMaterial заводит партию. Для CLI и API приёмки.
func (s *Service) CreateMaterial(ctx context.Context, in materials.NewInput) (*materials.Material, error) {
	in.Grade, in.Size = strings.TrimSpace(in.Grade), strings.TrimSpace(in.Size)
	if in.Grade == "" || in.Size == "" {
		return nil, fmt.Errorf("%w: grade and size are required", ErrInvalidRequest)
	}
	var m *materials.Material
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		m, err = tx.Materials().Create(ctx, in)
		return err
	})
	return m, err
}

// UpdateMaterialGrade исправляет марку партии. Флаги УЗК/ППСД уже созданной
// инспекции остаются такими, какими были при её создании.
func (s *Service) UpdateMaterialGrade(ctx context.Context, id int64, grade string) (*materials.Material, error) {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return nil, fmt.Errorf("%w: grade is required", ErrInvalidRequest)
	}
	var m *materials.Material
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if m, err = tx.Materials().LockByID(ctx, id); err != nil {
			return fmt.Errorf("lock material: %w", err)
		}
		if m == nil {
			return fmt.Errorf("%w: %d", ErrMaterialNotFound, id)
		}
		if err := tx.Materials().UpdateGrade(ctx, id, grade); err != nil {
			return fmt.Errorf("update grade: %w", err)
		}
		m.Grade = grade
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("material grade updated", "material_id", id, "grade", grade)
	return m, nil
}

// ListReceipts — поступления в статусе, старые первыми.
func (s *Service) ListReceipts(ctx context.Context, status receipts.Status, limit int) ([]receipts.Receipt, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	if limit <= 0 {
		limit = 50
	}
	var out []receipts.Receipt
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.Receipts().ListByStatus(ctx, status, limit)
		return err
	})
	return out, err
}

func (s *Service) GetReceipt(ctx context.Context, id int64) (*receipts.Receipt, error) {
	var rc *receipts.Receipt
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if rc, err = tx.Receipts().GetByID(ctx, id); err != nil {
			return err
		}
		if rc == nil {
			return fmt.Errorf("%w: %d", ErrReceiptNotFound, id)
		}
		return nil
	})
	return rc, err
}

// IsNotFound — любая из ошибок «не найдено».
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMaterialNotFound) ||
		errors.Is(err, ErrReceiptNotFound) ||
		errors.Is(err, ErrInspectionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
