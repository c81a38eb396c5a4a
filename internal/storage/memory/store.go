// Package memory — хранилище в памяти для тестов и локального запуска без Postgres.
// Транзакция работает над копией состояния и подменяет его только при успехе.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/workflow"
	"github.com/google/uuid"
)

// ErrConflict — аналог нарушения уникального индекса.
var ErrConflict = workflow.ErrConflict

type state struct {
	seq         int64
	materials   map[int64]materials.Material
	receipts    map[int64]receipts.Receipt
	inspections map[int64]quality.Inspection
	checklists  map[int64]quality.Checklist
	lab         map[int64]laboratory.Request
	users       map[int64]users.User
	outbox      map[uuid.UUID]notifications.Message
}

func newState() *state {
	return &state{
		materials:   map[int64]materials.Material{},
		receipts:    map[int64]receipts.Receipt{},
		inspections: map[int64]quality.Inspection{},
		checklists:  map[int64]quality.Checklist{},
		lab:         map[int64]laboratory.Request{},
		users:       map[int64]users.User{},
		outbox:      map[uuid.UUID]notifications.Message{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func cloneInspection(in quality.Inspection) quality.Inspection {
	in.UltrasonicReasons = append([]string(nil), in.UltrasonicReasons...)
	in.PpsdReasons = append([]string(nil), in.PpsdReasons...)
	in.Results = append([]quality.ResultItem(nil), in.Results...)
	return in
}

func cloneChecklist(c quality.Checklist) quality.Checklist {
	c.Items = append([]quality.ChecklistItem(nil), c.Items...)
	return c
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.materials {
		c.materials[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	for k, v := range s.inspections {
		c.inspections[k] = cloneInspection(v)
	}
	for k, v := range s.checklists {
		c.checklists[k] = cloneChecklist(v)
	}
	for k, v := range s.lab {
		c.lab[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store { return &Store{st: newState(), now: time.Now} }

// WithClock задаёт часы для отметок времени, которые в Postgres ставит now().
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

var _ workflow.Store = (*Store)(nil)

// InTx выполняет fn над копией состояния. Транзакции сериализованы.
func (s *Store) InTx(ctx context.Context, fn func(workflow.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Materials() workflow.MaterialRepo     { return materialRepo{t} }
func (t *tx) Receipts() workflow.ReceiptRepo       { return receiptRepo{t} }
func (t *tx) Inspections() workflow.InspectionRepo { return inspectionRepo{t} }
func (t *tx) Checklists() workflow.ChecklistRepo   { return checklistRepo{t} }
func (t *tx) Lab() workflow.LabRepo                { return labRepo{t} }
func (t *tx) Outbox() workflow.OutboxRepo          { return outboxRepo{t} }
func (t *tx) Users() workflow.UserRepo             { return userRepo{t} }

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Messages — содержимое outbox по времени создания.
func (s *Store) Messages() []notifications.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]notifications.Message, 0, len(s.st.outbox))
	for _, m := range s.st.outbox {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Counts — число записей по таблицам.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"materials":   len(s.st.materials),
		"receipts":    len(s.st.receipts),
		"inspections": len(s.st.inspections),
		"checklists":  len(s.st.checklists),
		"lab":         len(s.st.lab),
		"users":       len(s.st.users),
		"outbox":      len(s.st.outbox),
	}
}
