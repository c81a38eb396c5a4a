package workflow

import (
	"context"
	"fmt"

	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/users"
)

// ApplyTransition меняет статус поступления и ставит уведомления в outbox
// в той же транзакции. Недопустимый переход ничего не меняет.
func (s *Service) ApplyTransition(ctx context.Context, receiptID int64, target receipts.Status, actorID int64) (*receipts.Receipt, error) {
	var out *receipts.Receipt
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		out, err = s.transition(ctx, tx, receiptID, target, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, tx Tx, receiptID int64, target receipts.Status, actorID int64) (*receipts.Receipt, error) {
	rc, err := tx.Receipts().LockByID(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("lock receipt: %w", err)
	}
	if rc == nil {
		return nil, fmt.Errorf("%w: %d", ErrReceiptNotFound, receiptID)
	}

	updated, tr, err := receipts.Apply(*rc, target, actorID, s.now())
	if err != nil {
		return nil, err
	}
	if err := tx.Receipts().UpdateStatus(ctx, tr); err != nil {
		return nil, fmt.Errorf("update receipt status: %w", err)
	}
	n, err := s.enqueueStatusChanged(ctx, tx, updated, tr)
	if err != nil {
		return nil, err
	}

	s.metrics.Transitioned(string(tr.To))
	s.log.Info("receipt status changed",
		"receipt_id", tr.ReceiptID, "from", tr.From, "to", tr.To, "actor_id", tr.Actor, "notifications", n)
	return &updated, nil
}

// enqueueStatusChanged пишет по строке outbox на каждого достижимого получателя.
func (s *Service) enqueueStatusChanged(ctx context.Context, tx Tx, rc receipts.Receipt, tr receipts.Transition) (int, error) {
	mat, err := tx.Materials().GetByID(ctx, rc.MaterialID)
	if err != nil {
		return 0, fmt.Errorf("load material: %w", err)
	}
	in, err := tx.Inspections().FindByReceipt(ctx, rc.ID)
	if err != nil {
		return 0, fmt.Errorf("load inspection: %w", err)
	}

	aud := notifications.Audience{ReceivedBy: rc.ReceivedBy}
	if in != nil {
		aud.InspectorID = in.InspectorID
		aud.NeedsLab = in.RequiresUltrasonic || in.RequiresPpsd
	}
	if tr.To == receipts.StatusApproved || tr.To == receipts.StatusRejected {
		if aud.Warehouse, err = s.roleIDs(ctx, tx, users.RoleWarehouse); err != nil {
			return 0, err
		}
	}
	if tr.To == receipts.StatusApproved && aud.NeedsLab {
		if aud.Lab, err = s.roleIDs(ctx, tx, users.RoleLab); err != nil {
			return 0, err
		}
	}

	ev := notifications.StatusChanged{
		ReceiptID:      rc.ID,
		DocumentNumber: rc.DocumentNumber,
		Old:            tr.From,
		New:            tr.To,
		ActorID:        tr.Actor,
		At:             tr.At,
	}
	if mat != nil {
		ev.Material = notifications.MaterialInfo{
			ID:          mat.ID,
			Grade:       mat.Grade,
			Size:        mat.Size,
			Supplier:    mat.Supplier,
			Certificate: mat.CertificateNumber,
			Heat:        mat.HeatNumber,
			Quantity:    mat.Quantity,
			Unit:        string(mat.Unit),
		}
	}

	n := 0
	for _, uid := range notifications.Recipients(tr.To, aud) {
		u, err := tx.Users().GetByID(ctx, uid)
		if err != nil {
			return n, fmt.Errorf("load recipient %d: %w", uid, err)
		}
		if u == nil || !u.Reachable() {
			continue
		}
		if err := tx.Outbox().Enqueue(ctx, notifications.NewMessage(uid, ev, tr.At)); err != nil {
			return n, fmt.Errorf("enqueue notification: %w", err)
		}
		n++
	}
	return n, nil
}

func (s *Service) roleIDs(ctx context.Context, tx Tx, role users.Role) ([]int64, error) {
	list, err := tx.Users().ListActiveByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list %s users: %w", role, err)
	}
	ids := make([]int64, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
