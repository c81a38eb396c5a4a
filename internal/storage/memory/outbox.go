package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Spok95/metalqms/internal/domain/notifications"
)

var _ notifications.Outbox = (*Store)(nil)

func (s *Store) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]notifications.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []notifications.Message
	for _, m := range s.st.outbox {
		if m.Status != notifications.StatusPending && m.Status != notifications.StatusRetry {
			continue
		}
		if m.NextAttemptAt.After(now) || (m.LockedUntil != nil && m.LockedUntil.After(now)) {
			continue
		}
		due = append(due, m)
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Urgent != due[j].Urgent {
			return due[i].Urgent
		}
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	until := now.Add(lease)
	for i := range due {
		due[i].LockedUntil = &until
		s.st.outbox[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *Store) ListByStatus(_ context.Context, status notifications.Status, limit int) ([]notifications.Message, error) {
	var out []notifications.Message
	for _, m := range s.Messages() {
		if m.Status == status {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) mark(m notifications.Message, fn func(*notifications.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.st.outbox[m.ID]
	if !ok || cur.Status == notifications.StatusSent {
		return
	}
	cur.Attempts++
	cur.LockedUntil = nil
	fn(&cur)
	s.st.outbox[m.ID] = cur
}

func (s *Store) MarkSent(_ context.Context, m notifications.Message, now time.Time) error {
	s.mark(m, func(c *notifications.Message) {
		c.Status, c.SentAt, c.LastError = notifications.StatusSent, &now, ""
	})
	return nil
}

func (s *Store) MarkRetry(_ context.Context, m notifications.Message, next time.Time, cause string) error {
	s.mark(m, func(c *notifications.Message) {
		c.Status, c.NextAttemptAt, c.LastError = notifications.StatusRetry, next, cause
	})
	return nil
}

func (s *Store) MarkFailed(_ context.Context, m notifications.Message, cause string) error {
	s.mark(m, func(c *notifications.Message) {
		c.Status, c.LastError = notifications.StatusFailed, cause
	})
	return nil
}
