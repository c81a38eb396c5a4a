package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/storage/memory"
	"github.com/Spok95/metalqms/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 3, 11, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	svc       *workflow.Service
	receiver  users.User
	inspector users.User
	keeper    users.User
	lab       users.User
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return t0 }
	f := &fixture{store: memory.New().WithClock(clock)}
	f.svc = workflow.NewService(f.store, requirements.MustDefault(), discard(), nil).WithClock(clock)

	ctx := context.Background()
	require.NoError(t, f.store.InTx(ctx, func(tx workflow.Tx) error {
		mk := func(tgID int64, name string, role users.Role) users.User {
			u, err := tx.Users().UpsertFromTelegram(ctx, users.Telegram{ID: tgID, Username: name}, role)
			require.NoError(t, err)
			require.NoError(t, tx.Users().SetActive(ctx, u.ID, true))
			u.Active = true
			return *u
		}
		f.receiver = mk(1001, "receiver", users.RoleWarehouse)
		f.inspector = mk(1002, "inspector", users.RoleQC)
		f.keeper = mk(1003, "keeper", users.RoleWarehouse)
		f.lab = mk(1004, "lab", users.RoleLab)
		return nil
	}))
	return f
}

func (f *fixture) material(t *testing.T, grade, size string) *materials.Material {
	t.Helper()
	m, err := f.svc.CreateMaterial(context.Background(), materials.NewInput{Grade: grade, Size: size, Quantity: 100})
	require.NoError(t, err)
	return m
}

func (f *fixture) checklist(t *testing.T, grade string, critical ...bool) {
	t.Helper()
	c := quality.Checklist{Name: "ОТК " + grade, Grade: grade, Active: true}
	for i, crit := range critical {
		c.Items = append(c.Items, quality.ChecklistItem{Order: i + 1, Description: "пункт", Critical: crit})
	}
	require.NoError(t, f.svc.ImportChecklists(context.Background(), []quality.Checklist{c}))
}

func (f *fixture) receive(t *testing.T, materialID int64) *workflow.ReceiptOutcome {
	t.Helper()
	out, err := f.svc.ProcessReceipt(context.Background(), workflow.ReceiptRequest{
		MaterialID: materialID, ReceivedBy: f.receiver.ID, DocumentNumber: "ПН-1", AutoCreateQC: true,
	})
	require.NoError(t, err)
	return out
}

func TestProcessReceipt_CreatesInspection(t *testing.T) {
	f := newFixture(t)
	f.checklist(t, "", true, false)
	m := f.material(t, "12X18H10T", "⌀150")

	out := f.receive(t, m.ID)

	assert.True(t, out.ReceiptCreated)
	assert.True(t, out.InspectionCreated)
	assert.False(t, out.Duplicate)
	assert.Equal(t, receipts.StatusPendingQC, out.Receipt.Status)

	in := out.Inspection
	require.NotNil(t, in)
	assert.True(t, in.RequiresUltrasonic)
	assert.True(t, in.RequiresPpsd)
	assert.Equal(t, f.inspector.ID, in.InspectorID)
	assert.Len(t, in.Results, 2, "items seeded from the universal checklist")
	assert.NotZero(t, in.ChecklistID)

	// правила и замороженные флаги совпадают
	rules := requirements.MustDefault()
	assert.Equal(t, rules.EvaluateUltrasonic(m.Grade, m.Size).Required, in.RequiresUltrasonic)
	assert.Equal(t, rules.EvaluatePpsd(m.Grade, m.Size).Required, in.RequiresPpsd)
	assert.Len(t, out.Warnings, 2, "requirement reasons are surfaced as warnings")
}

func TestProcessReceipt_Idempotent(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "40X", "⌀75")

	first := f.receive(t, m.ID)
	second := f.receive(t, m.ID)

	assert.True(t, second.Duplicate)
	assert.False(t, second.ReceiptCreated)
	assert.False(t, second.InspectionCreated)
	assert.Equal(t, first.Receipt.ID, second.Receipt.ID)
	assert.Equal(t, first.Inspection.ID, second.Inspection.ID)
	assert.Equal(t, first.Ultrasonic.Required, second.Ultrasonic.Required)
	assert.Equal(t, 1, f.store.Counts()["inspections"])
	assert.Equal(t, 1, f.store.Counts()["receipts"])
}

func TestProcessReceipt_WithoutQC(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "40X", "⌀75")

	out, err := f.svc.ProcessReceipt(context.Background(), workflow.ReceiptRequest{
		MaterialID: m.ID, ReceivedBy: f.receiver.ID, DocumentNumber: "ПН-2",
	})
	require.NoError(t, err)
	assert.True(t, out.ReceiptCreated)
	assert.Nil(t, out.Inspection)
	assert.Zero(t, f.store.Counts()["inspections"])
}

func TestProcessReceipt_MaterialNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProcessReceipt(ctx, workflow.ReceiptRequest{MaterialID: 999, ReceivedBy: f.receiver.ID, DocumentNumber: "x", AutoCreateQC: true})
	assert.ErrorIs(t, err, workflow.ErrMaterialNotFound)

	m := f.material(t, "40X", "⌀75")
	require.NoError(t, f.store.InTx(ctx, func(tx workflow.Tx) error { return tx.Materials().SoftDelete(ctx, m.ID) }))
	_, err = f.svc.ProcessReceipt(ctx, workflow.ReceiptRequest{MaterialID: m.ID, ReceivedBy: f.receiver.ID, DocumentNumber: "x", AutoCreateQC: true})
	assert.ErrorIs(t, err, workflow.ErrMaterialNotFound)
	assert.True(t, workflow.IsNotFound(err))

	assert.Zero(t, f.store.Counts()["receipts"])
	assert.Zero(t, f.store.Counts()["inspections"])
}

func TestProcessReceipt_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ProcessReceipt(context.Background(), workflow.ReceiptRequest{MaterialID: 1, DocumentNumber: " "})
	assert.ErrorIs(t, err, workflow.ErrInvalidRequest)
}

func TestProcessReceipt_Warnings(t *testing.T) {
	clock := func() time.Time { return t0 }
	store := memory.New().WithClock(clock)
	svc := workflow.NewService(store, requirements.MustDefault(), discard(), nil).WithClock(clock)
	ctx := context.Background()

	var receiver *users.User
	require.NoError(t, store.InTx(ctx, func(tx workflow.Tx) error {
		var err error
		receiver, err = tx.Users().Create(ctx, "r", "Приёмщик", users.RoleWarehouse)
		return err
	}))
	m, err := svc.CreateMaterial(ctx, materials.NewInput{Grade: "Ст3", Size: "шестигранник 24"})
	require.NoError(t, err)

	out, err := svc.ProcessReceipt(ctx, workflow.ReceiptRequest{MaterialID: m.ID, ReceivedBy: receiver.ID, DocumentNumber: "1", AutoCreateQC: true})
	require.NoError(t, err)
	require.NotNil(t, out.Inspection)
	assert.Zero(t, out.Inspection.InspectorID)
	assert.Zero(t, out.Inspection.ChecklistID)
	assert.Empty(t, out.Inspection.Results)
	assert.False(t, out.Inspection.RequiresUltrasonic)
	assert.True(t, out.Ultrasonic.Unclassified)
	assert.Len(t, out.Warnings, 3, "unclassified size, no inspector, no checklist")
}

func TestProcessReceipt_ChecklistSelection(t *testing.T) {
	f := newFixture(t)
	f.checklist(t, "", false)
	f.checklist(t, "40Х", true, true, true)

	exact := f.receive(t, f.material(t, "40X", "⌀75").ID)
	assert.Len(t, exact.Inspection.Results, 3, "grade-exact checklist wins")

	fallback := f.receive(t, f.material(t, "09Г2С", "⌀75").ID)
	assert.Len(t, fallback.Inspection.Results, 1, "universal fallback")
}

// failingStore роняет создание инспекции, чтобы проверить откат.
type failingStore struct{ inner workflow.Store }

type failingTx struct{ workflow.Tx }

type failingInspections struct{ workflow.InspectionRepo }

func (failingInspections) Create(context.Context, *quality.Inspection) error {
	return errors.New("disk full")
}

func (t failingTx) Inspections() workflow.InspectionRepo {
	return failingInspections{t.Tx.Inspections()}
}

func (s failingStore) InTx(ctx context.Context, fn func(workflow.Tx) error) error {
	return s.inner.InTx(ctx, func(tx workflow.Tx) error { return fn(failingTx{tx}) })
}

func TestProcessReceipt_RollbackOnError(t *testing.T) {
	f := newFixture(t)
	m := f.material(t, "40X", "⌀75")

	svc := workflow.NewService(failingStore{f.store}, requirements.MustDefault(), discard(), nil)
	_, err := svc.ProcessReceipt(context.Background(), workflow.ReceiptRequest{
		MaterialID: m.ID, ReceivedBy: f.receiver.ID, DocumentNumber: "1", AutoCreateQC: true,
	})
	require.Error(t, err)
	assert.Zero(t, f.store.Counts()["receipts"], "receipt created in the same tx is rolled back")
	assert.Zero(t, f.store.Counts()["inspections"])
}

func TestProcessReceipt_FlagsFrozenAfterGradeChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "12X18H10T", "⌀150")
	first := f.receive(t, m.ID)
	require.True(t, first.InspectionCreated)
	frozen := *first.Inspection

	upd, err := f.svc.UpdateMaterialGrade(ctx, m.ID, "Ст3")
	require.NoError(t, err)
	assert.Equal(t, "Ст3", upd.Grade)
	now := f.svc.Check(upd.Descriptor())
	require.False(t, now.Ultrasonic.Required, "new grade would not need УЗК")
	require.False(t, now.Ppsd.Required)

	got, err := f.svc.GetInspection(ctx, frozen.ID)
	require.NoError(t, err)
	assert.True(t, got.RequiresUltrasonic)
	assert.True(t, got.RequiresPpsd)
	assert.Equal(t, frozen.UltrasonicReasons, got.UltrasonicReasons)
	assert.Equal(t, frozen.PpsdReasons, got.PpsdReasons)

	second := f.receive(t, m.ID)
	assert.True(t, second.Duplicate)
	assert.True(t, second.Ultrasonic.Required)
	assert.True(t, second.Ppsd.Required)
	assert.Equal(t, frozen.UltrasonicReasons, second.Ultrasonic.Reasons)
	assert.Equal(t, frozen.PpsdReasons, second.Ppsd.Reasons)
	assert.True(t, second.Inspection.RequiresUltrasonic)
}

func TestUpdateMaterialGrade_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "40X", "⌀75")

	_, err := f.svc.UpdateMaterialGrade(ctx, m.ID, "  ")
	assert.ErrorIs(t, err, workflow.ErrInvalidRequest)
	_, err = f.svc.UpdateMaterialGrade(ctx, 9999, "Ст3")
	assert.ErrorIs(t, err, workflow.ErrMaterialNotFound)
}

func TestProcessReceipt_TerminalReceiptSkipsInspection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.material(t, "40X", "⌀75")

	out, err := f.svc.ProcessReceipt(ctx, workflow.ReceiptRequest{
		MaterialID: m.ID, ReceivedBy: f.receiver.ID, DocumentNumber: "ПН-3",
	})
	require.NoError(t, err)
	id := out.Receipt.ID
	_, err = f.svc.ApplyTransition(ctx, id, receipts.StatusInQC, f.inspector.ID)
	require.NoError(t, err)
	_, err = f.svc.ApplyTransition(ctx, id, receipts.StatusRejected, f.inspector.ID)
	require.NoError(t, err)

	again := f.receive(t, m.ID)
	assert.False(t, again.ReceiptCreated)
	assert.False(t, again.InspectionCreated)
	assert.False(t, again.Duplicate)
	assert.Nil(t, again.Inspection)
	assert.Equal(t, receipts.StatusRejected, again.Receipt.Status)
	require.Len(t, again.Warnings, 1)
	assert.Contains(t, again.Warnings[0], "инспекция не создаётся")
	assert.Zero(t, f.store.Counts()["inspections"])
}

func TestListReceipts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.receive(t, f.material(t, "40X", "⌀75").ID)
	b := f.receive(t, f.material(t, "Ст3", "⌀30").ID)
	_, err := f.svc.ApplyTransition(ctx, b.Receipt.ID, receipts.StatusInQC, f.inspector.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListReceipts(ctx, receipts.StatusPendingQC, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.Receipt.ID, pending[0].ID)

	inQC, err := f.svc.ListReceipts(ctx, receipts.StatusInQC, 10)
	require.NoError(t, err)
	require.Len(t, inQC, 1)
	assert.Equal(t, b.Receipt.ID, inQC[0].ID)

	_, err = f.svc.ListReceipts(ctx, "lost", 10)
	assert.ErrorIs(t, err, workflow.ErrInvalidRequest)
}

func TestApplyTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.receive(t, f.material(t, "40X", "⌀75").ID)
	id := out.Receipt.ID

	_, err := f.svc.ApplyTransition(ctx, id, receipts.StatusApproved, f.inspector.ID)
	require.ErrorIs(t, err, receipts.ErrInvalidTransition, "skip-ahead")
	rc, err := f.svc.GetReceipt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, receipts.StatusPendingQC, rc.Status, "state unchanged on refusal")
	assert.Empty(t, f.store.Messages())

	rc, err = f.svc.ApplyTransition(ctx, id, receipts.StatusInQC, f.inspector.ID)
	require.NoError(t, err)
	assert.Equal(t, receipts.StatusInQC, rc.Status)
	assert.Equal(t, f.inspector.ID, rc.UpdatedBy)

	rc, err = f.svc.ApplyTransition(ctx, id, receipts.StatusRejected, f.inspector.ID)
	require.NoError(t, err)
	assert.Equal(t, receipts.StatusRejected, rc.Status)

	_, err = f.svc.ApplyTransition(ctx, id, receipts.StatusApproved, f.inspector.ID)
	assert.ErrorIs(t, err, receipts.ErrInvalidTransition, "terminal")

	_, err = f.svc.ApplyTransition(ctx, 12345, receipts.StatusInQC, 0)
	assert.ErrorIs(t, err, workflow.ErrReceiptNotFound)
}

func TestApplyTransition_EnqueuesNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.receive(t, f.material(t, "40X", "⌀75").ID)
	id := out.Receipt.ID

	_, err := f.svc.ApplyTransition(ctx, id, receipts.StatusInQC, f.inspector.ID)
	require.NoError(t, err)
	msgs := f.store.Messages()
	assert.ElementsMatch(t, []int64{f.receiver.ID, f.inspector.ID}, recipients(msgs))

	_, err = f.svc.ApplyTransition(ctx, id, receipts.StatusRejected, f.inspector.ID)
	require.NoError(t, err)
	msgs = nil
	for _, m := range f.store.Messages() {
		if m.Payload.New == receipts.StatusRejected {
			msgs = append(msgs, m)
		}
	}
	assert.ElementsMatch(t, []int64{f.receiver.ID, f.inspector.ID, f.keeper.ID}, recipients(msgs),
		"rejection goes to receiver, inspector and the warehouse")
	for _, m := range msgs {
		assert.True(t, m.Urgent)
		assert.Equal(t, receipts.StatusInQC, m.Payload.Old)
		assert.Equal(t, receipts.StatusRejected, m.Payload.New)
		assert.Equal(t, "40X", m.Payload.Material.Grade)
		assert.Equal(t, notifications.StatusPending, m.Status)
	}
}

func recipients(msgs []notifications.Message) []int64 {
	var ids []int64
	for _, m := range msgs {
		ids = append(ids, m.UserID)
	}
	return ids
}

func TestInspectionLifecycle_Approved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.checklist(t, "", true, false)
	out := f.receive(t, f.material(t, "12X18H10T", "⌀150").ID)
	in := out.Inspection

	_, err := f.svc.RecordResult(ctx, in.ID, in.Results[0].ID, quality.ResultInput{Result: quality.ResultPassed})
	assert.ErrorIs(t, err, quality.ErrInvalidInspectionStatus, "not started")

	started, err := f.svc.StartInspection(ctx, in.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, quality.InspectionInProgress, started.Status)
	rc, _ := f.svc.GetReceipt(ctx, out.Receipt.ID)
	assert.Equal(t, receipts.StatusInQC, rc.Status)

	_, err = f.svc.RecordResult(ctx, in.ID, in.Results[0].ID, quality.ResultInput{Result: quality.ResultNA})
	assert.ErrorIs(t, err, quality.ErrInvalidResult, "critical item cannot be na")

	_, err = f.svc.RecordResult(ctx, in.ID, in.Results[0].ID, quality.ResultInput{Result: quality.ResultPassed})
	require.NoError(t, err)

	done, err := f.svc.CompleteInspection(ctx, in.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, receipts.StatusApproved, done.Receipt.Status)
	assert.Equal(t, quality.InspectionCompleted, done.Inspection.Status)
	assert.Len(t, done.Warnings, 1, "one item left unchecked")

	var types []laboratory.TestType
	for _, r := range done.LabRequests {
		types = append(types, r.TestType)
	}
	assert.Equal(t, []laboratory.TestType{laboratory.TestChemical, laboratory.TestMechanical, laboratory.TestUltrasonic}, types)

	// флаги не пересчитываются
	got, err := f.svc.GetInspection(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.RequiresUltrasonic, got.RequiresUltrasonic)
	assert.Equal(t, in.UltrasonicReasons, got.UltrasonicReasons)

	// одобрение с требованиями уходит и в лабораторию
	var approvals []int64
	for _, m := range f.store.Messages() {
		if m.Payload.New == receipts.StatusApproved {
			approvals = append(approvals, m.UserID)
		}
	}
	assert.ElementsMatch(t, []int64{f.receiver.ID, f.inspector.ID, f.keeper.ID, f.lab.ID}, approvals)

	report, err := f.svc.Report(ctx, in.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, report)
}

func TestInspectionLifecycle_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.checklist(t, "", true)
	out := f.receive(t, f.material(t, "40X", "⌀75").ID)
	in := out.Inspection

	_, err := f.svc.StartInspection(ctx, in.ID, f.inspector.ID)
	require.NoError(t, err)
	_, err = f.svc.RecordResult(ctx, in.ID, in.Results[0].ID, quality.ResultInput{Result: quality.ResultFailed})
	assert.ErrorIs(t, err, quality.ErrInvalidResult, "failed requires notes")
	_, err = f.svc.RecordResult(ctx, in.ID, in.Results[0].ID, quality.ResultInput{Result: quality.ResultFailed, Notes: "трещина"})
	require.NoError(t, err)

	done, err := f.svc.CompleteInspection(ctx, in.ID, f.inspector.ID)
	require.NoError(t, err)
	assert.Equal(t, receipts.StatusRejected, done.Receipt.Status)
	assert.Len(t, done.CriticalFailures, 1)
	assert.Empty(t, done.LabRequests)
	assert.Empty(t, done.Warnings)

	_, err = f.svc.CompleteInspection(ctx, in.ID, f.inspector.ID)
	assert.ErrorIs(t, err, quality.ErrInvalidInspectionStatus)

	_, err = f.svc.StartInspection(ctx, 9999, 0)
	assert.ErrorIs(t, err, workflow.ErrInspectionNotFound)
}

type countingNotifier struct{ calls map[int64]int }

func (n *countingNotifier) Notify(_ context.Context, userID int64, _ notifications.StatusChanged) error {
	n.calls[userID]++
	return nil
}

func TestDispatchAfterTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	out := f.receive(t, f.material(t, "40X", "⌀75").ID)
	_, err := f.svc.ApplyTransition(ctx, out.Receipt.ID, receipts.StatusInQC, f.inspector.ID)
	require.NoError(t, err)

	n := &countingNotifier{calls: map[int64]int{}}
	d := notifications.NewDispatcher(f.store, n, notifications.DispatcherConfig{}, discard(), nil).
		WithClock(func() time.Time { return t0 })

	sent, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, map[int64]int{f.receiver.ID: 1, f.inspector.ID: 1}, n.calls, "each message delivered once")
	for _, m := range f.store.Messages() {
		assert.Equal(t, notifications.StatusSent, m.Status)
	}
}
