package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/google/uuid"
)

type materialRepo struct{ t *tx }

func (r materialRepo) Create(_ context.Context, in materials.NewInput) (*materials.Material, error) {
	if in.Unit == "" {
		in.Unit = materials.UnitKg
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must be >= 0")
	}
	m := materials.Material{
		ID:                r.t.st.nextID(),
		ExternalID:        uuid.New(),
		Grade:             in.Grade,
		Size:              in.Size,
		Supplier:          in.Supplier,
		OrderNumber:       in.OrderNumber,
		CertificateNumber: in.CertificateNumber,
		HeatNumber:        in.HeatNumber,
		Quantity:          in.Quantity,
		Unit:              in.Unit,
		Location:          in.Location,
		CreatedAt:         r.t.now(),
	}
	r.t.st.materials[m.ID] = m
	return &m, nil
}

func (r materialRepo) GetByID(_ context.Context, id int64) (*materials.Material, error) {
	m, ok := r.t.st.materials[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r materialRepo) LockByID(ctx context.Context, id int64) (*materials.Material, error) {
	m, err := r.GetByID(ctx, id)
	if m == nil || m.Deleted {
		return nil, err
	}
	return m, nil
}

func (r materialRepo) UpdateGrade(_ context.Context, id int64, grade string) error {
	m, ok := r.t.st.materials[id]
	if !ok || m.Deleted {
		return nil
	}
	m.Grade = grade
	r.t.st.materials[id] = m
	return nil
}

// SoftDelete — как в Postgres: строка остаётся, помечается удалённой.
func (r materialRepo) SoftDelete(_ context.Context, id int64) error {
	m, ok := r.t.st.materials[id]
	if !ok || m.Deleted {
		return nil
	}
	now := r.t.now()
	m.Deleted, m.DeletedAt = true, &now
	r.t.st.materials[id] = m
	return nil
}

type receiptRepo struct{ t *tx }

func (r receiptRepo) Create(_ context.Context, rc *receipts.Receipt) error {
	for _, x := range r.t.st.receipts {
		if x.MaterialID == rc.MaterialID {
			return fmt.Errorf("%w: receipts.material_id %d", ErrConflict, rc.MaterialID)
		}
	}
	if rc.Status == "" {
		rc.Status = receipts.StatusPendingQC
	}
	now := r.t.now()
	rc.ID = r.t.st.nextID()
	rc.ReceivedAt, rc.CreatedAt, rc.UpdatedAt = now, now, now
	rc.UpdatedBy = rc.ReceivedBy
	r.t.st.receipts[rc.ID] = *rc
	return nil
}

func (r receiptRepo) GetByID(_ context.Context, id int64) (*receipts.Receipt, error) {
	rc, ok := r.t.st.receipts[id]
	if !ok {
		return nil, nil
	}
	return &rc, nil
}

func (r receiptRepo) LockByID(ctx context.Context, id int64) (*receipts.Receipt, error) {
	return r.GetByID(ctx, id)
}

func (r receiptRepo) FindByMaterial(_ context.Context, materialID int64) (*receipts.Receipt, error) {
	for _, rc := range r.t.st.receipts {
		if rc.MaterialID == materialID {
			return &rc, nil
		}
	}
	return nil, nil
}

func (r receiptRepo) UpdateStatus(_ context.Context, tr receipts.Transition) error {
	rc, ok := r.t.st.receipts[tr.ReceiptID]
	if !ok || rc.Status != tr.From {
		return &receipts.TransitionError{From: tr.From, To: tr.To}
	}
	rc.Status, rc.UpdatedBy, rc.UpdatedAt = tr.To, tr.Actor, tr.At
	r.t.st.receipts[rc.ID] = rc
	return nil
}

func (r receiptRepo) ListByStatus(_ context.Context, status receipts.Status, limit int) ([]receipts.Receipt, error) {
	var out []receipts.Receipt
	for _, rc := range r.t.st.receipts {
		if rc.Status == status {
			out = append(out, rc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type inspectionRepo struct{ t *tx }

func (r inspectionRepo) Create(_ context.Context, in *quality.Inspection) error {
	for _, x := range r.t.st.inspections {
		if x.ReceiptID == in.ReceiptID {
			return fmt.Errorf("%w: inspections.receipt_id %d", ErrConflict, in.ReceiptID)
		}
	}
	if in.Status == "" {
		in.Status = quality.InspectionPending
	}
	in.ID = r.t.st.nextID()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = r.t.now()
	}
	for i := range in.Results {
		in.Results[i].ID = r.t.st.nextID()
		in.Results[i].InspectionID = in.ID
	}
	r.t.st.inspections[in.ID] = cloneInspection(*in)
	return nil
}

func (r inspectionRepo) GetByID(_ context.Context, id int64) (*quality.Inspection, error) {
	in, ok := r.t.st.inspections[id]
	if !ok {
		return nil, nil
	}
	in = cloneInspection(in)
	return &in, nil
}

func (r inspectionRepo) LockByID(ctx context.Context, id int64) (*quality.Inspection, error) {
	return r.GetByID(ctx, id)
}

func (r inspectionRepo) FindByReceipt(ctx context.Context, receiptID int64) (*quality.Inspection, error) {
	for id, in := range r.t.st.inspections {
		if in.ReceiptID == receiptID {
			return r.GetByID(ctx, id)
		}
	}
	return nil, nil
}

// UpdateState не трогает флаги требований и строки результатов.
func (r inspectionRepo) UpdateState(_ context.Context, in quality.Inspection) error {
	cur, ok := r.t.st.inspections[in.ID]
	if !ok {
		return nil
	}
	cur.Status, cur.InspectorID = in.Status, in.InspectorID
	cur.StartedAt, cur.CompletedAt, cur.Comments = in.StartedAt, in.CompletedAt, in.Comments
	r.t.st.inspections[in.ID] = cur
	return nil
}

func (r inspectionRepo) UpdateResult(_ context.Context, it quality.ResultItem) error {
	cur, ok := r.t.st.inspections[it.InspectionID]
	if !ok {
		return nil
	}
	for i := range cur.Results {
		if cur.Results[i].ID == it.ID {
			cur.Results[i].Result, cur.Results[i].Notes, cur.Results[i].MeasuredValue = it.Result, it.Notes, it.MeasuredValue
		}
	}
	r.t.st.inspections[cur.ID] = cur
	return nil
}

type checklistRepo struct{ t *tx }

func (r checklistRepo) ListActive(_ context.Context) ([]quality.Checklist, error) {
	var out []quality.Checklist
	for _, id := range sortedIDs(r.t.st.checklists) {
		if c := r.t.st.checklists[id]; c.Active {
			out = append(out, cloneChecklist(c))
		}
	}
	return out, nil
}

func (r checklistRepo) Create(_ context.Context, c *quality.Checklist) error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	for _, x := range r.t.st.checklists {
		if x.Name == c.Name && x.Version == c.Version {
			return fmt.Errorf("%w: checklists %q %s", ErrConflict, c.Name, c.Version)
		}
	}
	c.ID = r.t.st.nextID()
	for i := range c.Items {
		c.Items[i].ID = r.t.st.nextID()
		c.Items[i].ChecklistID = c.ID
	}
	r.t.st.checklists[c.ID] = cloneChecklist(*c)
	return nil
}

type labRepo struct{ t *tx }

func (r labRepo) Create(_ context.Context, req *laboratory.Request) (bool, error) {
	for _, x := range r.t.st.lab {
		if x.InspectionID == req.InspectionID && x.TestType == req.TestType {
			return false, nil
		}
	}
	req.ID = r.t.st.nextID()
	req.CreatedAt = r.t.now()
	r.t.st.lab[req.ID] = *req
	return true, nil
}

func (r labRepo) ListByInspection(_ context.Context, inspectionID int64) ([]laboratory.Request, error) {
	var out []laboratory.Request
	for _, id := range sortedIDs(r.t.st.lab) {
		if q := r.t.st.lab[id]; q.InspectionID == inspectionID {
			out = append(out, q)
		}
	}
	return out, nil
}

type outboxRepo struct{ t *tx }

func (r outboxRepo) Enqueue(_ context.Context, m notifications.Message) error {
	if _, ok := r.t.st.outbox[m.ID]; ok {
		return fmt.Errorf("%w: notification_outbox.id %s", ErrConflict, m.ID)
	}
	r.t.st.outbox[m.ID] = m
	return nil
}

type userRepo struct{ t *tx }

func (r userRepo) Create(_ context.Context, username, fullName string, role users.Role) (*users.User, error) {
	now := r.t.now()
	u := users.User{
		ID: r.t.st.nextID(), Username: username, FullName: fullName, Role: role,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}
	r.t.st.users[u.ID] = u
	return &u, nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*users.User, error) {
	u, ok := r.t.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r userRepo) GetByTelegramID(_ context.Context, tgID int64) (*users.User, error) {
	for _, u := range r.t.st.users {
		if tgID != 0 && u.TelegramID == tgID {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) UpsertFromTelegram(ctx context.Context, tg users.Telegram, role users.Role) (*users.User, error) {
	fullName := strings.TrimSpace(tg.FirstName + " " + tg.LastName)
	u, _ := r.GetByTelegramID(ctx, tg.ID)
	if u == nil {
		u = &users.User{ID: r.t.st.nextID(), TelegramID: tg.ID, Role: role, CreatedAt: r.t.now()}
	}
	u.Username = tg.Username
	if u.FullName == "" {
		u.FullName = fullName
	}
	u.TelegramEnabled = true
	u.UpdatedAt = r.t.now()
	r.t.st.users[u.ID] = *u
	return u, nil
}

func (r userRepo) ListActiveByRole(_ context.Context, role users.Role) ([]users.User, error) {
	var out []users.User
	for _, id := range sortedIDs(r.t.st.users) {
		if u := r.t.st.users[id]; u.Role == role && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r userRepo) FirstActiveByRole(ctx context.Context, role users.Role) (*users.User, error) {
	list, _ := r.ListActiveByRole(ctx, role)
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (r userRepo) SetTelegramEnabled(_ context.Context, id int64, enabled bool) error {
	if u, ok := r.t.st.users[id]; ok {
		u.TelegramEnabled = enabled
		r.t.st.users[id] = u
	}
	return nil
}

func (r userRepo) SetActive(_ context.Context, id int64, active bool) error {
	if u, ok := r.t.st.users[id]; ok {
		u.Active = active
		r.t.st.users[id] = u
	}
	return nil
}

func (r userRepo) SetRole(_ context.Context, id int64, role users.Role) error {
	if u, ok := r.t.st.users[id]; ok {
		u.Role, u.Active = role, true
		r.t.st.users[id] = u
	}
	return nil
}
