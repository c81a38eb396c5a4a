package workflow

import (
	"context"
	"fmt"

	"github.com/Spok95/metalqms/internal/domain/users"
)

// Registration — итог /start.
type Registration struct {
	User *users.User
	// PendingApproval — пользователь новый или ещё не подтверждён.
	PendingApproval bool
}

// RegisterTelegram привязывает Telegram-профиль. asAdmin — чат администратора
// из конфигурации: такой пользователь сразу становится активным админом.
func (s *Service) RegisterTelegram(ctx context.Context, tg users.Telegram, asAdmin bool) (*Registration, error) {
	var out Registration
	err := s.store.InTx(ctx, func(tx Tx) error {
		u, err := tx.Users().UpsertFromTelegram(ctx, tg, users.RoleWarehouse)
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		if asAdmin && (u.Role != users.RoleAdmin || !u.Active) {
			if err := tx.Users().SetRole(ctx, u.ID, users.RoleAdmin); err != nil {
				return fmt.Errorf("set admin role: %w", err)
			}
			u.Role, u.Active = users.RoleAdmin, true
		}
		out.User = u
		out.PendingApproval = !u.Active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) UserByTelegram(ctx context.Context, tgID int64) (*users.User, error) {
	var u *users.User
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if u, err = tx.Users().GetByTelegramID(ctx, tgID); err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("%w: telegram %d", ErrUserNotFound, tgID)
		}
		return nil
	})
	return u, err
}

// ApproveUser назначает роль и активирует пользователя.
func (s *Service) ApproveUser(ctx context.Context, id int64, role users.Role) (*users.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidRequest, role)
	}
	var u *users.User
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if u, err = tx.Users().GetByID(ctx, id); err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		if err := tx.Users().SetRole(ctx, id, role); err != nil {
			return err
		}
		u.Role, u.Active = role, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user approved", "user_id", id, "role", role)
	return u, nil
}

func (s *Service) DeactivateUser(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		u, err := tx.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return tx.Users().SetActive(ctx, id, false)
	})
}

// SetNotifications включает или выключает доставку уведомлений в Telegram.
func (s *Service) SetNotifications(ctx context.Context, userID int64, enabled bool) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		return tx.Users().SetTelegramEnabled(ctx, userID, enabled)
	})
}
