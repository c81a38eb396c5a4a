package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Spok95/metalqms/internal/bot"
	"github.com/Spok95/metalqms/internal/config"
	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/infra/db"
	httpx "github.com/Spok95/metalqms/internal/infra/http"
	"github.com/Spok95/metalqms/internal/infra/telegram"
)

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTP API, Telegram-бот и рассылка уведомлений",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before start (postgres)")
	return cmd
}

func runServe(cmd *cobra.Command, migrate bool) error {
	cfg := getConfig(cmd)
	log := newLogger(cfg, cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrate && cfg.App.Storage == "postgres" {
		if err := db.Migrate(ctx, cfg.Postgres.DSN, "up", log); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
	}
	h := httpx.NewHandler(a.svc, log)
	h.AutoCreateQC = cfg.QC.AutoCreate
	srv := httpx.New(cfg.HTTP.Addr, httpx.Router(h, log, metricsHandler))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	var runErr error
	if cfg.Telegram.Token == "" {
		log.Warn("telegram token is empty, bot and notifications are disabled")
	} else if err := startTelegram(ctx, cfg, a, log, &wg); err != nil {
		// HTTP уже поднят: останавливаемся штатно, ошибку возвращаем после.
		log.Error("telegram init failed", "err", err)
		runErr = fmt.Errorf("telegram: %w", err)
		stop()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	wg.Wait()
	log.Info("graceful shutdown complete")
	return runErr
}

// newBotAPI подменяется в тестах.
var newBotAPI = tgbotapi.NewBotAPI

func startTelegram(ctx context.Context, cfg *config.Config, a *app, log *slog.Logger, wg *sync.WaitGroup) error {
	api, err := newBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	log.Info("telegram authorized", "username", api.Self.UserName)

	b := bot.New(api, log, a.svc, a.states, cfg.Telegram.AdminChatID)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx, cfg.Telegram.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("bot stopped", "err", err)
		}
		api.StopReceivingUpdates()
	}()

	if cfg.Notifications.Enabled {
		n := telegram.NewNotifier(api, a.store, log, cfg.Location())
		d := notifications.NewDispatcher(a.outbox, n, cfg.Dispatcher(), log, a.metrics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("dispatcher stopped", "err", err)
			}
		}()
		log.Info("notification dispatcher started")
	}
	return nil
}
