package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Spok95/metalqms/internal/domain/notifications"
	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/workflow"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"
)

var ErrUnreachable = errors.New("user is not reachable in telegram")

// Notifier доставляет уведомления личным сообщением в Telegram.
type Notifier struct {
	api     *tgbotapi.BotAPI
	store   workflow.Store
	log     *slog.Logger
	loc     *time.Location
	retries uint64
	base    time.Duration
}

func NewNotifier(api *tgbotapi.BotAPI, store workflow.Store, log *slog.Logger, loc *time.Location) *Notifier {
	return &Notifier{api: api, store: store, log: log, loc: loc, retries: 2, base: 500 * time.Millisecond}
}

// WithRetry — число повторов внутри одной попытки и начальная пауза.
func (n *Notifier) WithRetry(retries uint64, base time.Duration) *Notifier {
	n.retries, n.base = retries, base
	return n
}

var _ notifications.Notifier = (*Notifier)(nil)

func (n *Notifier) user(ctx context.Context, id int64) (*users.User, error) {
	var u *users.User
	err := n.store.InTx(ctx, func(tx workflow.Tx) error {
		var err error
		u, err = tx.Users().GetByID(ctx, id)
		return err
	})
	return u, err
}

// Notify: сетевые ошибки и 5xx повторяются на месте, 403 выключает
// Telegram у пользователя и возвращает постоянную ошибку.
func (n *Notifier) Notify(ctx context.Context, userID int64, ev notifications.StatusChanged) error {
	u, err := n.user(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil || !u.Reachable() {
		return notifications.Permanent(fmt.Errorf("%w: %d", ErrUnreachable, userID))
	}

	msg := tgbotapi.NewMessage(u.TelegramID, notifications.Format(ev, n.loc))
	b := retry.WithMaxRetries(n.retries, retry.NewExponential(n.base))
	err = retry.Do(ctx, b, func(context.Context) error {
		_, err := n.api.Send(msg)
		if err == nil {
			return nil
		}
		if apiErr, ok := apiError(err); ok && !transient(apiErr.Code) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return nil
	}

	if apiErr, ok := apiError(err); ok {
		switch apiErr.Code {
		case http.StatusForbidden:
			n.disable(ctx, u)
			return notifications.Permanent(err)
		case http.StatusBadRequest:
			return notifications.Permanent(err)
		}
	}
	return err
}

func (n *Notifier) disable(ctx context.Context, u *users.User) {
	err := n.store.InTx(ctx, func(tx workflow.Tx) error {
		return tx.Users().SetTelegramEnabled(ctx, u.ID, false)
	})
	if err != nil {
		n.log.Error("disable telegram failed", "user_id", u.ID, "err", err)
		return
	}
	n.log.Warn("telegram disabled for user: bot is blocked", "user_id", u.ID)
}

func transient(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// apiError достаёт ошибку Bot API; библиотека отдаёт её указателем.
func apiError(err error) (tgbotapi.Error, bool) {
	var p *tgbotapi.Error
	if errors.As(err, &p) {
		return *p, true
	}
	var v tgbotapi.Error
	if errors.As(err, &v) {
		return v, true
	}
	return tgbotapi.Error{}, false
}
