package quality

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidResult           = errors.New("invalid inspection result")
	ErrInvalidInspectionStatus = errors.New("invalid inspection status")
	ErrItemNotFound            = errors.New("inspection item not found")
)

type ResultInput struct {
	Result        Result
	Notes         string
	MeasuredValue string
}

// Start переводит инспекцию pending -> in_progress. Инспектор опционален:
// 0 оставляет прежнего.
func (in *Inspection) Start(inspectorID int64, now time.Time) error {
	if in.Status != InspectionPending {
		return fmt.Errorf("%w: start from %s", ErrInvalidInspectionStatus, in.Status)
	}
	in.Status = InspectionInProgress
	if inspectorID != 0 {
		in.InspectorID = inspectorID
	}
	in.StartedAt = &now
	return nil
}

// ApplyResult отмечает пункт. Правила: только в статусе in_progress,
// критический пункт нельзя отметить «Н/П», «не пройдено» требует примечания.
func (in *Inspection) ApplyResult(itemID int64, input ResultInput) (ResultItem, error) {
	if in.Status != InspectionInProgress {
		return ResultItem{}, fmt.Errorf("%w: record result in %s", ErrInvalidInspectionStatus, in.Status)
	}
	if !input.Result.Valid() || input.Result == ResultPending {
		return ResultItem{}, fmt.Errorf("%w: unknown value %q", ErrInvalidResult, input.Result)
	}

	idx := -1
	for i := range in.Results {
		if in.Results[i].ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ResultItem{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}

	item := in.Results[idx]
	if item.Critical && input.Result == ResultNA {
		return ResultItem{}, fmt.Errorf("%w: critical item %d cannot be na", ErrInvalidResult, item.Order)
	}
	notes := strings.TrimSpace(input.Notes)
	if input.Result == ResultFailed && notes == "" {
		return ResultItem{}, fmt.Errorf("%w: failed item %d requires notes", ErrInvalidResult, item.Order)
	}

	item.Result = input.Result
	item.Notes = notes
	item.MeasuredValue = strings.TrimSpace(input.MeasuredValue)
	in.Results[idx] = item
	return item, nil
}

// Complete закрывает инспекцию. Неотмеченные пункты не мешают,
// вызывающий сам решает, предупреждать ли о неполной проверке.
func (in *Inspection) Complete(now time.Time) error {
	if in.Status != InspectionInProgress {
		return fmt.Errorf("%w: complete from %s", ErrInvalidInspectionStatus, in.Status)
	}
	in.Status = InspectionCompleted
	in.CompletedAt = &now
	return nil
}

func (in Inspection) PendingCount() int {
	n := 0
	for _, r := range in.Results {
		if r.Result == ResultPending {
			n++
		}
	}
	return n
}

// CompletionPercentage — доля отмеченных пунктов, с точностью до десятых.
func (in Inspection) CompletionPercentage() float64 {
	if len(in.Results) == 0 {
		return 0
	}
	done := len(in.Results) - in.PendingCount()
	return math.Round(float64(done)*1000/float64(len(in.Results))) / 10
}

func (in Inspection) CriticalFailures() []ResultItem {
	var out []ResultItem
	for _, r := range in.Results {
		if r.Critical && r.Result == ResultFailed {
			out = append(out, r)
		}
	}
	return out
}

// Passed — критических несоответствий нет.
func (in Inspection) Passed() bool { return len(in.CriticalFailures()) == 0 }
