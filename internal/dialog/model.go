// Package dialog хранит шаг диалога бота по chat_id между сообщениями.
package dialog

import "context"

type State string

const (
	StateIdle State = "idle"

	// ожидание «марка размер» для проверки требований
	StateAwaitCheck State = "await_check"
	// ожидание номера инспекции
	StateAwaitInspection State = "await_inspection"
	// ожидание комментария к несоответствию; payload: inspection_id, item_id
	StateAwaitFailNote State = "await_fail_note"
	// ожидание .xlsx с чек-листами (админ)
	StateAwaitChecklistFile State = "await_checklist_file"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// States — хранилище шагов. Отсутствие записи — StateIdle без ошибки.
type States interface {
	Get(ctx context.Context, chatID int64) (*Item, error)
	Set(ctx context.Context, chatID int64, state State, payload Payload) error
	Reset(ctx context.Context, chatID int64) error
}

// GetInt64 читает число из payload. После JSON числа приходят как float64.
func GetInt64(p Payload, key string) (int64, bool) {
	switch v := p[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// GetString Helper для безопасного чтения строк из payload
func GetString(p Payload, key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
