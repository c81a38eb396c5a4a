package users

import "time"

type Role string

const (
	RoleWarehouse Role = "warehouse" // склад
	RoleQC        Role = "qc"        // ОТК
	RoleLab       Role = "lab"       // лаборатория
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleWarehouse, RoleQC, RoleLab, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID              int64
	TelegramID      int64 // он же chat_id личного чата с ботом, 0 — не привязан
	Username        string
	FullName        string
	Role            Role
	Active          bool
	TelegramEnabled bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Reachable — пользователю можно доставить уведомление в Telegram.
func (u User) Reachable() bool {
	return u.Active && u.TelegramEnabled && u.TelegramID != 0
}

// DisplayName — ФИО, а если его нет, то username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "пользователь"
}

type Telegram struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}
