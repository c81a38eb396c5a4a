package dialog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	it, err := m.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, it.State)
	assert.NotNil(t, it.Payload)

	p := Payload{"inspection_id": int64(5)}
	require.NoError(t, m.Set(ctx, 10, StateAwaitFailNote, p))
	p["inspection_id"] = int64(6)

	it, err = m.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitFailNote, it.State)
	id, ok := GetInt64(it.Payload, "inspection_id")
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)

	require.NoError(t, m.Reset(ctx, 10))
	it, _ = m.Get(ctx, 10)
	assert.Equal(t, StateIdle, it.State)
}

func TestPayloadHelpers(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"item_id": 42, "name": "x"}`), &p))

	id, ok := GetInt64(p, "item_id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = GetInt64(p, "name")
	assert.False(t, ok)

	s, ok := GetString(p, "name")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
}
