// Package quality — инспекции ОТК: чек-листы, результаты по пунктам и
// замороженные на момент создания требования УЗК/ППСД.
package quality

import (
	"strings"
	"time"
)

type InspectionStatus string

const (
	InspectionPending    InspectionStatus = "pending"
	InspectionInProgress InspectionStatus = "in_progress"
	InspectionCompleted  InspectionStatus = "completed"
)

func (s InspectionStatus) Title() string {
	switch s {
	case InspectionPending:
		return "Ожидает"
	case InspectionInProgress:
		return "В процессе"
	case InspectionCompleted:
		return "Завершено"
	}
	return string(s)
}

// Result — отметка по пункту чек-листа.
type Result string

const (
	ResultPending Result = "pending"
	ResultPassed  Result = "passed"
	ResultFailed  Result = "failed"
	ResultNA      Result = "na"
)

func (r Result) Valid() bool {
	switch r {
	case ResultPending, ResultPassed, ResultFailed, ResultNA:
		return true
	}
	return false
}

func (r Result) Title() string {
	switch r {
	case ResultPassed:
		return "Пройдено"
	case ResultFailed:
		return "Не пройдено"
	case ResultNA:
		return "Не применимо"
	}
	return "Не проверено"
}

type Checklist struct {
	ID          int64
	Name        string
	Grade       string // пусто — универсальный чек-лист
	Version     string
	Description string
	Active      bool
	Items       []ChecklistItem
}

func (c Checklist) Universal() bool { return strings.TrimSpace(c.Grade) == "" }

type ChecklistItem struct {
	ID                 int64
	ChecklistID        int64
	Order              int
	Description        string
	Critical           bool // критический пункт нельзя отметить «Н/П»
	AcceptanceCriteria string
}

type Inspection struct {
	ID          int64
	ReceiptID   int64
	InspectorID int64 // 0 — инспектор не назначен
	ChecklistID int64 // 0 — чек-листа не нашлось
	Status      InspectionStatus

	// Флаги считаются один раз при создании и дальше не пересчитываются.
	RequiresUltrasonic bool
	RequiresPpsd       bool
	UltrasonicReasons  []string
	PpsdReasons        []string

	Comments    string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	Results []ResultItem
}

// ResultItem — строка результата, копия пункта чек-листа на момент создания инспекции.
type ResultItem struct {
	ID              int64
	InspectionID    int64
	ChecklistItemID int64
	Order           int
	Description     string
	Critical        bool
	Result          Result
	Notes           string
	MeasuredValue   string
}
