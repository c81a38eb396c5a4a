package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/infra/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func event(to receipts.Status) StatusChanged {
	return StatusChanged{
		ReceiptID:      5,
		DocumentNumber: "ПН-17",
		Old:            receipts.StatusInQC,
		New:            to,
		Material:       MaterialInfo{ID: 2, Grade: "12X18H10T", Size: "⌀150", Supplier: "ММК", Quantity: 1250.5, Unit: "kg"},
		At:             t0,
	}
}

func TestRecipients(t *testing.T) {
	a := Audience{ReceivedBy: 1, InspectorID: 2, Warehouse: []int64{1, 3}, Lab: []int64{4, 2}}

	assert.Equal(t, []int64{1, 2}, Recipients(receipts.StatusInQC, a))
	assert.Equal(t, []int64{1, 2, 3}, Recipients(receipts.StatusRejected, a))
	assert.Equal(t, []int64{1, 2, 3}, Recipients(receipts.StatusApproved, a))

	a.NeedsLab = true
	assert.Equal(t, []int64{1, 2, 3, 4}, Recipients(receipts.StatusApproved, a))
	assert.Equal(t, []int64{1, 2, 3}, Recipients(receipts.StatusRejected, a), "lab only on approval")

	assert.Equal(t, []int64{7}, Recipients(receipts.StatusInQC, Audience{ReceivedBy: 7}), "no inspector")
}

func TestFormat(t *testing.T) {
	txt := Format(event(receipts.StatusApproved), nil)
	assert.Contains(t, txt, "12X18H10T")
	assert.Contains(t, txt, "1250.5 кг")
	assert.Contains(t, txt, "🔍 В ОТК → ✅ Одобрено")
	assert.Contains(t, txt, "01.04.2026 09:30")
	assert.NotContains(t, txt, "СРОЧНО")

	txt = Format(event(receipts.StatusRejected), nil)
	assert.Contains(t, txt, "🚨 СРОЧНО!")
}

func TestNewMessage(t *testing.T) {
	m := NewMessage(3, event(receipts.StatusRejected), t0)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.True(t, m.Urgent)
	assert.Equal(t, StatusPending, m.Status)
	assert.Equal(t, t0, m.NextAttemptAt)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, Backoff(1, 10*time.Second, time.Minute))
	assert.Equal(t, 20*time.Second, Backoff(2, 10*time.Second, time.Minute))
	assert.Equal(t, 40*time.Second, Backoff(3, 10*time.Second, time.Minute))
	assert.Equal(t, time.Minute, Backoff(6, 10*time.Second, time.Minute))
}

type fakeOutbox struct {
	due    []Message
	sent   map[uuid.UUID]int
	retry  map[uuid.UUID]time.Time
	failed map[uuid.UUID]string
}

func newFakeOutbox(msgs ...Message) *fakeOutbox {
	return &fakeOutbox{
		due:    msgs,
		sent:   map[uuid.UUID]int{},
		retry:  map[uuid.UUID]time.Time{},
		failed: map[uuid.UUID]string{},
	}
}

func (f *fakeOutbox) ClaimDue(_ context.Context, _ time.Time, _ time.Duration, limit int) ([]Message, error) {
	if len(f.due) > limit {
		out := f.due[:limit]
		f.due = f.due[limit:]
		return out, nil
	}
	out := f.due
	f.due = nil
	return out, nil
}

func (f *fakeOutbox) MarkSent(_ context.Context, m Message, _ time.Time) error {
	f.sent[m.ID]++
	return nil
}

func (f *fakeOutbox) MarkRetry(_ context.Context, m Message, next time.Time, _ string) error {
	f.retry[m.ID] = next
	return nil
}

func (f *fakeOutbox) MarkFailed(_ context.Context, m Message, cause string) error {
	f.failed[m.ID] = cause
	return nil
}

type fakeNotifier struct {
	errs  map[int64]error
	calls []int64
}

func (n *fakeNotifier) Notify(_ context.Context, userID int64, _ StatusChanged) error {
	n.calls = append(n.calls, userID)
	return n.errs[userID]
}

func TestDispatcherRunOnce(t *testing.T) {
	ok := NewMessage(1, event(receipts.StatusApproved), t0)
	flaky := NewMessage(2, event(receipts.StatusApproved), t0)
	flaky.Attempts = 1
	blocked := NewMessage(3, event(receipts.StatusApproved), t0)
	exhausted := NewMessage(4, event(receipts.StatusApproved), t0)
	exhausted.Attempts = 4

	out := newFakeOutbox(ok, flaky, blocked, exhausted)
	n := &fakeNotifier{errs: map[int64]error{
		2: errors.New("connection reset"),
		3: Permanent(errors.New("forbidden: bot was blocked by the user")),
		4: errors.New("timeout"),
	}}
	m := metrics.New(prometheus.NewRegistry())

	d := NewDispatcher(out, n, DispatcherConfig{MaxAttempts: 5, BaseBackoff: time.Minute, MaxBackoff: time.Hour},
		slog.New(slog.NewTextHandler(io.Discard, nil)), m).
		WithClock(func() time.Time { return t0 })

	sent, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{1, 2, 3, 4}, n.calls)

	assert.Equal(t, 1, out.sent[ok.ID])
	assert.Equal(t, t0.Add(2*time.Minute), out.retry[flaky.ID], "second attempt doubles the delay")
	assert.Contains(t, out.failed[blocked.ID], "blocked")
	assert.Contains(t, out.failed[exhausted.ID], "timeout")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("retry")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))

	// повторный проход ничего не отправляет повторно
	sent, err = d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, out.sent[ok.ID])
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	base := errors.New("x")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
}
