package receipts

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTransition = errors.New("invalid receipt status transition")

// TransitionError — отказ перехода; errors.Is(err, ErrInvalidTransition) == true.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid receipt status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Next — статусы, в которые можно перейти из s. Порядок фиксирован:
// pending_qc -> in_qc -> {approved, rejected}.
func Next(s Status) []Status {
	switch s {
	case StatusPendingQC:
		return []Status{StatusInQC}
	case StatusInQC:
		return []Status{StatusApproved, StatusRejected}
	}
	return nil
}

func CanTransition(current, target Status) bool {
	for _, s := range Next(current) {
		if s == target {
			return true
		}
	}
	return false
}

// Transition — факт смены статуса.
type Transition struct {
	ReceiptID int64
	From      Status
	To        Status
	Actor     int64
	At        time.Time
}

// Apply возвращает копию поступления в новом статусе, исходное значение не меняется.
func Apply(r Receipt, target Status, actor int64, now time.Time) (Receipt, Transition, error) {
	if !CanTransition(r.Status, target) {
		return r, Transition{}, &TransitionError{From: r.Status, To: target}
	}
	tr := Transition{ReceiptID: r.ID, From: r.Status, To: target, Actor: actor, At: now}
	r.Status = target
	r.UpdatedAt = now
	r.UpdatedBy = actor
	return r, tr, nil
}
