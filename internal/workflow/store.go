package workflow

import (
	"context"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/users"
)

// Store открывает транзакцию. Ошибка из fn откатывает всё, что сделано через Tx.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx — репозитории, работающие в одной транзакции.
// Поиск по ID возвращает (nil, nil), если записи нет.
type Tx interface {
	Materials() MaterialRepo
	Receipts() ReceiptRepo
	Inspections() InspectionRepo
	Checklists() ChecklistRepo
	Lab() LabRepo
	Outbox() OutboxRepo
	Users() UserRepo
}

type MaterialRepo interface {
	Create(ctx context.Context, in materials.NewInput) (*materials.Material, error)
	GetByID(ctx context.Context, id int64) (*materials.Material, error)
	// LockByID не возвращает удалённые партии.
	LockByID(ctx context.Context, id int64) (*materials.Material, error)
	UpdateGrade(ctx context.Context, id int64, grade string) error
	SoftDelete(ctx context.Context, id int64) error
}

type ReceiptRepo interface {
	Create(ctx context.Context, r *receipts.Receipt) error
	GetByID(ctx context.Context, id int64) (*receipts.Receipt, error)
	LockByID(ctx context.Context, id int64) (*receipts.Receipt, error)
	FindByMaterial(ctx context.Context, materialID int64) (*receipts.Receipt, error)
	UpdateStatus(ctx context.Context, tr receipts.Transition) error
	ListByStatus(ctx context.Context, status receipts.Status, limit int) ([]receipts.Receipt, error)
}

type InspectionRepo interface {
	Create(ctx context.Context, in *quality.Inspection) error
	GetByID(ctx context.Context, id int64) (*quality.Inspection, error)
	LockByID(ctx context.Context, id int64) (*quality.Inspection, error)
	FindByReceipt(ctx context.Context, receiptID int64) (*quality.Inspection, error)
	UpdateState(ctx context.Context, in quality.Inspection) error
	UpdateResult(ctx context.Context, it quality.ResultItem) error
}

type ChecklistRepo interface {
	ListActive(ctx context.Context) ([]quality.Checklist, error)
	Create(ctx context.Context, c *quality.Checklist) error
}

type LabRepo interface {
	Create(ctx context.Context, r *laboratory.Request) (bool, error)
	ListByInspection(ctx context.Context, inspectionID int64) ([]laboratory.Request, error)
}

type OutboxRepo interface {
	Enqueue(ctx context.Context, m notifications.Message) error
}

type UserRepo interface {
	Create(ctx context.Context, username, fullName string, role users.Role) (*users.User, error)
	GetByID(ctx context.Context, id int64) (*users.User, error)
	GetByTelegramID(ctx context.Context, tgID int64) (*users.User, error)
	UpsertFromTelegram(ctx context.Context, tg users.Telegram, role users.Role) (*users.User, error)
	FirstActiveByRole(ctx context.Context, role users.Role) (*users.User, error)
	ListActiveByRole(ctx context.Context, role users.Role) ([]users.User, error)
	SetTelegramEnabled(ctx context.Context, id int64, enabled bool) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetRole(ctx context.Context, id int64, role users.Role) error
}
