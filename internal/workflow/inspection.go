package workflow

import (
	"context"
	"fmt"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
)

func lockInspection(ctx context.Context, tx Tx, id int64) (*quality.Inspection, error) {
	in, err := tx.Inspections().LockByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock inspection: %w", err)
	}
	if in == nil {
		return nil, fmt.Errorf("%w: %d", ErrInspectionNotFound, id)
	}
	return in, nil
}

func (s *Service) GetInspection(ctx context.Context, id int64) (*quality.Inspection, error) {
	var in *quality.Inspection
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if in, err = tx.Inspections().GetByID(ctx, id); err != nil {
			return err
		}
		if in == nil {
			return fmt.Errorf("%w: %d", ErrInspectionNotFound, id)
		}
		return nil
	})
	return in, err
}

func (s *Service) InspectionByReceipt(ctx context.Context, receiptID int64) (*quality.Inspection, error) {
	var in *quality.Inspection
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if in, err = tx.Inspections().FindByReceipt(ctx, receiptID); err != nil {
			return err
		}
		if in == nil {
			return fmt.Errorf("%w: receipt %d", ErrInspectionNotFound, receiptID)
		}
		return nil
	})
	return in, err
}

// StartInspection берёт инспекцию в работу и переводит поступление в «В ОТК».
func (s *Service) StartInspection(ctx context.Context, id, inspectorID int64) (*quality.Inspection, error) {
	var out *quality.Inspection
	err := s.store.InTx(ctx, func(tx Tx) error {
		in, err := lockInspection(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := in.Start(inspectorID, s.now()); err != nil {
			return err
		}
		if err := tx.Inspections().UpdateState(ctx, *in); err != nil {
			return fmt.Errorf("update inspection: %w", err)
		}

		rc, err := tx.Receipts().GetByID(ctx, in.ReceiptID)
		if err != nil {
			return fmt.Errorf("load receipt: %w", err)
		}
		if rc != nil && rc.Status == receipts.StatusPendingQC {
			if _, err := s.transition(ctx, tx, rc.ID, receipts.StatusInQC, in.InspectorID); err != nil {
				return err
			}
		}
		out = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("inspection started", "inspection_id", id, "inspector_id", out.InspectorID)
	return out, nil
}

func (s *Service) RecordResult(ctx context.Context, inspectionID, itemID int64, input quality.ResultInput) (*quality.ResultItem, error) {
	var out quality.ResultItem
	err := s.store.InTx(ctx, func(tx Tx) error {
		in, err := lockInspection(ctx, tx, inspectionID)
		if err != nil {
			return err
		}
		if out, err = in.ApplyResult(itemID, input); err != nil {
			return err
		}
		return tx.Inspections().UpdateResult(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type CompletionOutcome struct {
	Inspection       *quality.Inspection
	Receipt          *receipts.Receipt
	CriticalFailures []quality.ResultItem
	LabRequests      []laboratory.Request
	Warnings         []string
}

// CompleteInspection закрывает инспекцию: при критическом несоответствии
// поступление отклоняется, иначе одобряется и по флагам создаются заявки в лабораторию.
func (s *Service) CompleteInspection(ctx context.Context, id, actorID int64) (*CompletionOutcome, error) {
	out := &CompletionOutcome{}
	err := s.store.InTx(ctx, func(tx Tx) error {
		in, err := lockInspection(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := in.Complete(s.now()); err != nil {
			return err
		}
		if pct := in.CompletionPercentage(); pct < 100 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Проверено %.1f%% пунктов чек-листа", pct))
		}
		if err := tx.Inspections().UpdateState(ctx, *in); err != nil {
			return fmt.Errorf("update inspection: %w", err)
		}
		if actorID == 0 {
			actorID = in.InspectorID
		}

		out.CriticalFailures = in.CriticalFailures()
		target := receipts.StatusApproved
		if !in.Passed() {
			target = receipts.StatusRejected
		}
		rc, err := s.transition(ctx, tx, in.ReceiptID, target, actorID)
		if err != nil {
			return err
		}

		if target == receipts.StatusApproved {
			for _, req := range laboratory.PlanTests(*in) {
				created, err := tx.Lab().Create(ctx, &req)
				if err != nil {
					return fmt.Errorf("create lab request: %w", err)
				}
				if created {
					out.LabRequests = append(out.LabRequests, req)
				}
			}
		}
		out.Inspection, out.Receipt = in, rc
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("inspection completed",
		"inspection_id", id, "receipt_status", out.Receipt.Status,
		"critical_failures", len(out.CriticalFailures), "lab_requests", len(out.LabRequests))
	return out, nil
}

// Report — .xlsx-отчёт по инспекции.
func (s *Service) Report(ctx context.Context, inspectionID int64) ([]byte, error) {
	var (
		in   *quality.Inspection
		info quality.ReportInfo
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if in, err = tx.Inspections().GetByID(ctx, inspectionID); err != nil {
			return err
		}
		if in == nil {
			return fmt.Errorf("%w: %d", ErrInspectionNotFound, inspectionID)
		}
		rc, err := tx.Receipts().GetByID(ctx, in.ReceiptID)
		if err != nil {
			return fmt.Errorf("load receipt: %w", err)
		}
		if rc == nil {
			return fmt.Errorf("%w: %d", ErrReceiptNotFound, in.ReceiptID)
		}
		info.DocumentNumber, info.ReceiptStatus = rc.DocumentNumber, rc.Status.Title()

		var mat *materials.Material
		if mat, err = tx.Materials().GetByID(ctx, rc.MaterialID); err != nil {
			return err
		}
		if mat != nil {
			info.Grade, info.Size, info.Supplier, info.Certificate = mat.Grade, mat.Size, mat.Supplier, mat.CertificateNumber
		}
		if in.InspectorID != 0 {
			u, err := tx.Users().GetByID(ctx, in.InspectorID)
			if err != nil {
				return err
			}
			if u != nil {
				info.Inspector = u.DisplayName()
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quality.Report(*in, info)
}

// ImportChecklists сохраняет чек-листы одной транзакцией.
func (s *Service) ImportChecklists(ctx context.Context, lists []quality.Checklist) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		for i := range lists {
			if err := tx.Checklists().Create(ctx, &lists[i]); err != nil {
				return fmt.Errorf("create checklist %q: %w", lists[i].Name, err)
			}
		}
		return nil
	})
}
