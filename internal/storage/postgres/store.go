// Package postgres — хранилище на pgx: репозитории доменных пакетов поверх одной pgx.Tx.
package postgres

import (
	"context"
	"fmt"

	"github.com/Spok95/metalqms/internal/domain/laboratory"
	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/quality"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/workflow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

var _ workflow.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(workflow.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(repos{tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Outbox — outbox вне транзакций, для диспетчера.
func (s *Store) Outbox() *notifications.Repo { return notifications.NewRepo(s.pool) }

type repos struct{ tx pgx.Tx }

func (r repos) Materials() workflow.MaterialRepo     { return materials.NewRepo(r.tx) }
func (r repos) Receipts() workflow.ReceiptRepo       { return receipts.NewRepo(r.tx) }
func (r repos) Inspections() workflow.InspectionRepo { return quality.NewRepo(r.tx) }
func (r repos) Checklists() workflow.ChecklistRepo   { return quality.NewChecklistRepo(r.tx) }
func (r repos) Lab() workflow.LabRepo                { return laboratory.NewRepo(r.tx) }
func (r repos) Outbox() workflow.OutboxRepo          { return notifications.NewRepo(r.tx) }
func (r repos) Users() workflow.UserRepo             { return users.NewRepo(r.tx) }
