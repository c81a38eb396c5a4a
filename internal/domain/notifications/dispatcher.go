package notifications

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Spok95/metalqms/internal/infra/metrics"
	"github.com/sethvargo/go-retry"
)

// Notifier доставляет одно уведомление одному пользователю.
type Notifier interface {
	Notify(ctx context.Context, userID int64, ev StatusChanged) error
}

// Outbox — то, что диспетчеру нужно от хранилища.
type Outbox interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]Message, error)
	MarkSent(ctx context.Context, m Message, now time.Time) error
	MarkRetry(ctx context.Context, m Message, next time.Time, cause string) error
	MarkFailed(ctx context.Context, m Message, cause string) error
}

// PermanentError — повтор бессмысленен (пользователь заблокировал бота, нет чата).
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return "permanent: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

type DispatcherConfig struct {
	Interval    time.Duration
	Lease       time.Duration
	BatchSize   int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 10 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Hour
	}
	return c
}

// Backoff — задержка перед попыткой номер attempt (с единицы): base, 2·base, 4·base… не больше max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	b := retry.WithCappedDuration(max, retry.NewExponential(base))
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = b.Next()
	}
	return d
}

type Dispatcher struct {
	outbox   Outbox
	notifier Notifier
	cfg      DispatcherConfig
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewDispatcher(outbox Outbox, notifier Notifier, cfg DispatcherConfig, log *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		outbox:   outbox,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock подменяет часы (для тестов).
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Run крутит RunOnce с интервалом до отмены ctx.
func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.cfg.Interval)
	defer t.Stop()
	for {
		if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
			d.log.Error("outbox dispatch failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// RunOnce обрабатывает одну пачку, возвращает число доставленных.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	started := d.now()
	defer func() { d.metrics.ObserveDispatch(time.Since(started).Seconds()) }()

	batch, err := d.outbox.ClaimDue(ctx, started, d.cfg.Lease, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var (
		sent int
		errs []error
	)
	for _, m := range batch {
		if ctx.Err() != nil {
			break
		}
		if d.deliver(ctx, m, &errs) {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, m Message, errs *[]error) bool {
	log := d.log.With("outbox_id", m.ID, "user_id", m.UserID, "receipt_id", m.Payload.ReceiptID)

	err := d.notifier.Notify(ctx, m.UserID, m.Payload)
	if err == nil {
		if err := d.outbox.MarkSent(ctx, m, d.now()); err != nil {
			*errs = append(*errs, err)
			return false
		}
		d.metrics.Delivered("sent")
		log.Debug("notification sent")
		return true
	}

	attempt := m.Attempts + 1
	if IsPermanent(err) || attempt >= d.cfg.MaxAttempts {
		if mErr := d.outbox.MarkFailed(ctx, m, err.Error()); mErr != nil {
			*errs = append(*errs, mErr)
		}
		d.metrics.Delivered("failed")
		log.Warn("notification failed", "attempt", attempt, "err", err)
		return false
	}

	next := d.now().Add(Backoff(attempt, d.cfg.BaseBackoff, d.cfg.MaxBackoff))
	if mErr := d.outbox.MarkRetry(ctx, m, next, err.Error()); mErr != nil {
		*errs = append(*errs, mErr)
	}
	d.metrics.Delivered("retry")
	log.Info("notification rescheduled", "attempt", attempt, "next_attempt_at", next, "err", err)
	return false
}
