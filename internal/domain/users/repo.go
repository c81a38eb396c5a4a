package users

import (
	"context"
	"errors"
	"strings"

	"github.com/Spok95/metalqms/internal/infra/db"
	"github.com/jackc/pgx/v5"
)

type Repo struct {
	db db.DBTX
}

func NewRepo(conn db.DBTX) *Repo { return &Repo{db: conn} }

const userCols = `id, COALESCE(telegram_id, 0), username, full_name, role, active, telegram_enabled, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.Role, &u.Active, &u.TelegramEnabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, username, fullName string, role Role) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (username, full_name, role)
		VALUES ($1,$2,$3)
		RETURNING `+userCols, username, fullName, role))
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE telegram_id = $1`, tgID))
}

// UpsertFromTelegram привязывает Telegram-профиль. Роль существующего пользователя не меняется,
// новый получает роль по умолчанию и неактивен до подтверждения администратором.
func (r *Repo) UpsertFromTelegram(ctx context.Context, tg Telegram, role Role) (*User, error) {
	fullName := strings.TrimSpace(tg.FirstName + " " + tg.LastName)
	return scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, full_name, role, active, telegram_enabled)
		VALUES ($1,$2,$3,$4,FALSE,TRUE)
		ON CONFLICT (telegram_id)
		DO UPDATE SET
			username         = EXCLUDED.username,
			full_name        = CASE WHEN users.full_name = '' THEN EXCLUDED.full_name ELSE users.full_name END,
			telegram_enabled = TRUE,
			updated_at       = now()
		RETURNING `+userCols, tg.ID, tg.Username, fullName, role))
}

// ListActiveByRole — активные пользователи роли в порядке регистрации.
func (r *Repo) ListActiveByRole(ctx context.Context, role Role) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userCols+` FROM users WHERE role = $1 AND active = TRUE ORDER BY id`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *Repo) FirstActiveByRole(ctx context.Context, role Role) (*User, error) {
	return scanUser(r.db.QueryRow(ctx, `
		SELECT `+userCols+` FROM users WHERE role = $1 AND active = TRUE ORDER BY id LIMIT 1`, role))
}

func (r *Repo) SetTelegramEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET telegram_enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	return err
}

func (r *Repo) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	return err
}

// SetRole назначает роль и активирует пользователя (подтверждение администратором).
func (r *Repo) SetRole(ctx context.Context, id int64, role Role) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET role = $2, active = TRUE, updated_at = now() WHERE id = $1`, id, role)
	return err
}
