package dialog

import (
	"context"
	"maps"
	"sync"
)

// Memory — States в памяти, для режима без Postgres и тестов. Переживает
// только время жизни процесса.
type Memory struct {
	mu    sync.Mutex
	items map[int64]Item
}

func NewMemory() *Memory { return &Memory{items: map[int64]Item{}} }

var _ States = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, chatID int64) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[chatID]
	if !ok {
		return &Item{ChatID: chatID, State: StateIdle, Payload: Payload{}}, nil
	}
	it.Payload = maps.Clone(it.Payload)
	return &it, nil
}

func (m *Memory) Set(_ context.Context, chatID int64, state State, payload Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := maps.Clone(payload)
	if p == nil {
		p = Payload{}
	}
	m.items[chatID] = Item{ChatID: chatID, State: state, Payload: p}
	return nil
}

func (m *Memory) Reset(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, chatID)
	return nil
}
