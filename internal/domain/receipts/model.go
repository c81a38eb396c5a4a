package receipts

import "time"

type Status string

const (
	StatusPendingQC Status = "pending_qc"
	StatusInQC      Status = "in_qc"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingQC, StatusInQC, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal — из статуса нет переходов.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

func (s Status) Title() string {
	switch s {
	case StatusPendingQC:
		return "Ожидает ОТК"
	case StatusInQC:
		return "В ОТК"
	case StatusApproved:
		return "Одобрено"
	case StatusRejected:
		return "Отклонено"
	}
	return string(s)
}

func (s Status) Emoji() string {
	switch s {
	case StatusPendingQC:
		return "⏳"
	case StatusInQC:
		return "🔍"
	case StatusApproved:
		return "✅"
	case StatusRejected:
		return "❌"
	}
	return "📋"
}

// Receipt — поступление партии на склад.
type Receipt struct {
	ID             int64
	MaterialID     int64
	ReceivedBy     int64
	DocumentNumber string
	Status         Status
	Notes          string
	ReceivedAt     time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	UpdatedBy      int64
}
