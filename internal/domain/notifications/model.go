// Package notifications — исходящие уведомления о смене статуса поступления:
// строка outbox пишется в одной транзакции со сменой статуса, доставка асинхронная.
package notifications

import (
	"time"

	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/google/uuid"
)

const KindStatusChanged = "status_changed"

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusRetry   Status = "retry"
	StatusFailed  Status = "failed"
)

// MaterialInfo — снимок материала на момент события.
type MaterialInfo struct {
	ID          int64   `json:"id"`
	Grade       string  `json:"grade"`
	Size        string  `json:"size"`
	Supplier    string  `json:"supplier,omitempty"`
	Certificate string  `json:"certificate,omitempty"`
	Heat        string  `json:"heat,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

type StatusChanged struct {
	ReceiptID      int64           `json:"receipt_id"`
	DocumentNumber string          `json:"document_number"`
	Old            receipts.Status `json:"old"`
	New            receipts.Status `json:"new"`
	Material       MaterialInfo    `json:"material"`
	ActorID        int64           `json:"actor_id,omitempty"`
	At             time.Time       `json:"at"`
}

// Urgent — отклонение доставляется с пометкой срочности.
func (e StatusChanged) Urgent() bool { return e.New == receipts.StatusRejected }

// Message — строка outbox, одна на получателя.
type Message struct {
	ID            uuid.UUID
	UserID        int64
	Kind          string
	Payload       StatusChanged
	Urgent        bool
	Status        Status
	Attempts      int
	NextAttemptAt time.Time
	LockedUntil   *time.Time
	LastError     string
	CreatedAt     time.Time
	SentAt        *time.Time
}

func NewMessage(userID int64, ev StatusChanged, now time.Time) Message {
	return Message{
		ID:            uuid.New(),
		UserID:        userID,
		Kind:          KindStatusChanged,
		Payload:       ev,
		Urgent:        ev.Urgent(),
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

// Audience — кто может получить уведомление о поступлении.
type Audience struct {
	ReceivedBy  int64
	InspectorID int64
	Warehouse   []int64
	Lab         []int64
	NeedsLab    bool // у инспекции есть требование УЗК или ППСД
}

// Recipients: приёмщик и инспектор всегда; склад — при
// одобрении и отклонении; лаборатория — при одобрении с требованиями.
// Нули и повторы отбрасываются, порядок сохраняется.
func Recipients(to receipts.Status, a Audience) []int64 {
	seen := map[int64]bool{}
	var out []int64
	add := func(ids ...int64) {
		for _, id := range ids {
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}

	add(a.ReceivedBy, a.InspectorID)
	if to == receipts.StatusApproved || to == receipts.StatusRejected {
		add(a.Warehouse...)
	}
	if to == receipts.StatusApproved && a.NeedsLab {
		add(a.Lab...)
	}
	return out
}
