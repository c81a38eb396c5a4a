package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Spok95/metalqms/internal/config"
	"github.com/Spok95/metalqms/internal/dialog"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/requirements"
	"github.com/Spok95/metalqms/internal/infra/db"
	"github.com/Spok95/metalqms/internal/infra/logger"
	"github.com/Spok95/metalqms/internal/infra/metrics"
	"github.com/Spok95/metalqms/internal/storage/memory"
	"github.com/Spok95/metalqms/internal/storage/postgres"
	"github.com/Spok95/metalqms/internal/workflow"
)

// outboxStore — outbox для диспетчера и просмотра из CLI.
type outboxStore interface {
	notifications.Outbox
	ListByStatus(ctx context.Context, status notifications.Status, limit int) ([]notifications.Message, error)
}

// app — собранные зависимости одной команды.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    workflow.Store
	outbox   outboxStore
	states   dialog.States
	svc      *workflow.Service
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	pool     *pgxpool.Pool
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logger.NewWithFormat(w, cfg.App.Env, cfg.App.LogFormat)
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	table, err := cfg.RuleTable()
	if err != nil {
		return nil, err
	}
	rules, err := requirements.New(table)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	switch cfg.App.Storage {
	case "memory":
		st := memory.New()
		a.store, a.outbox, a.states = st, st, dialog.NewMemory()
		log.Warn("using in-memory storage, data is lost on exit")
	default:
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		st := postgres.New(pool)
		a.pool = pool
		a.store, a.outbox, a.states = st, st.Outbox(), dialog.NewRepo(pool)
		log.Info("db connected")
	}

	a.svc = workflow.NewService(a.store, rules, log, a.metrics)
	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
