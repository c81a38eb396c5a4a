package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 12, 8, 0, 0, 0, time.UTC)

func TestInTxRollback(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(func() time.Time { return t0 })

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx workflow.Tx) error {
		m, err := tx.Materials().Create(ctx, materials.NewInput{Grade: "40X", Size: "⌀75"})
		require.NoError(t, err)
		require.NoError(t, tx.Receipts().Create(ctx, &receipts.Receipt{MaterialID: m.ID, ReceivedBy: 1, DocumentNumber: "1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, s.Counts()["materials"])
	assert.Zero(t, s.Counts()["receipts"])

	require.NoError(t, s.InTx(ctx, func(tx workflow.Tx) error {
		_, err := tx.Materials().Create(ctx, materials.NewInput{Grade: "40X", Size: "⌀75"})
		return err
	}))
	assert.Equal(t, 1, s.Counts()["materials"])
}

func TestReceiptConstraints(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.InTx(ctx, func(tx workflow.Tx) error {
		m, _ := tx.Materials().Create(ctx, materials.NewInput{Grade: "40X", Size: "⌀75"})
		rc := &receipts.Receipt{MaterialID: m.ID, ReceivedBy: 1, DocumentNumber: "1"}
		require.NoError(t, tx.Receipts().Create(ctx, rc))
		assert.ErrorIs(t, tx.Receipts().Create(ctx, &receipts.Receipt{MaterialID: m.ID}), ErrConflict)

		err := tx.Receipts().UpdateStatus(ctx, receipts.Transition{ReceiptID: rc.ID, From: receipts.StatusInQC, To: receipts.StatusApproved})
		assert.ErrorIs(t, err, receipts.ErrInvalidTransition, "stale from-status")

		require.NoError(t, tx.Materials().SoftDelete(ctx, m.ID))
		locked, err := tx.Materials().LockByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Nil(t, locked)
		got, _ := tx.Materials().GetByID(ctx, m.ID)
		assert.True(t, got.Deleted)
		return nil
	})
	require.NoError(t, err)
}

func TestOutboxClaim(t *testing.T) {
	ctx := context.Background()
	s := New()

	normal := notifications.NewMessage(1, notifications.StatusChanged{New: receipts.StatusApproved}, t0)
	urgent := notifications.NewMessage(2, notifications.StatusChanged{New: receipts.StatusRejected}, t0.Add(time.Second))
	later := notifications.NewMessage(3, notifications.StatusChanged{New: receipts.StatusApproved}, t0.Add(time.Hour))
	require.NoError(t, s.InTx(ctx, func(tx workflow.Tx) error {
		for _, m := range []notifications.Message{normal, urgent, later} {
			if err := tx.Outbox().Enqueue(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := s.ClaimDue(ctx, t0.Add(time.Minute), time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, urgent.ID, got[0].ID, "urgent first")

	again, err := s.ClaimDue(ctx, t0.Add(90*time.Second), time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "leased rows are skipped")

	require.NoError(t, s.MarkSent(ctx, got[0], t0))
	require.NoError(t, s.MarkRetry(ctx, got[1], t0.Add(time.Hour), "timeout"))
	require.NoError(t, s.MarkFailed(ctx, got[0], "late"), "sent row is not downgraded")

	msgs := s.Messages()
	byID := map[string]notifications.Message{}
	for _, m := range msgs {
		byID[m.ID.String()] = m
	}
	assert.Equal(t, notifications.StatusSent, byID[urgent.ID.String()].Status)
	assert.Equal(t, notifications.StatusRetry, byID[normal.ID.String()].Status)
	assert.Equal(t, 1, byID[normal.ID.String()].Attempts)
}

func TestOutboxListByStatus(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := notifications.NewMessage(1, notifications.StatusChanged{New: receipts.StatusApproved}, t0)
	b := notifications.NewMessage(2, notifications.StatusChanged{New: receipts.StatusApproved}, t0.Add(time.Second))
	require.NoError(t, s.InTx(ctx, func(tx workflow.Tx) error {
		if err := tx.Outbox().Enqueue(ctx, a); err != nil {
			return err
		}
		return tx.Outbox().Enqueue(ctx, b)
	}))
	require.NoError(t, s.MarkFailed(ctx, a, "blocked"))

	failed, err := s.ListByStatus(ctx, notifications.StatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)
	assert.Equal(t, "blocked", failed[0].LastError)

	pending, err := s.ListByStatus(ctx, notifications.StatusPending, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestMaterialUpdateGrade(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InTx(ctx, func(tx workflow.Tx) error {
		m, err := tx.Materials().Create(ctx, materials.NewInput{Grade: "12X18H10T", Size: "⌀150"})
		require.NoError(t, err)
		require.NoError(t, tx.Materials().UpdateGrade(ctx, m.ID, "Ст3"))
		got, err := tx.Materials().GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ст3", got.Grade)

		require.NoError(t, tx.Materials().SoftDelete(ctx, m.ID))
		require.NoError(t, tx.Materials().UpdateGrade(ctx, m.ID, "40X"))
		got, err = tx.Materials().GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ст3", got.Grade, "deleted material keeps its grade")
		return nil
	}))
}
