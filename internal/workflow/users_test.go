package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/metalqms/internal/domain/users"
	"github.com/Spok95/metalqms/internal/workflow"
)

func TestRegisterTelegram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.svc.RegisterTelegram(ctx, users.Telegram{ID: 777, FirstName: "Анна", LastName: "Петрова"}, false)
	require.NoError(t, err)
	assert.True(t, reg.PendingApproval)
	assert.Equal(t, users.RoleWarehouse, reg.User.Role)
	assert.Equal(t, "Анна Петрова", reg.User.FullName)

	u, err := f.svc.ApproveUser(ctx, reg.User.ID, users.RoleQC)
	require.NoError(t, err)
	assert.True(t, u.Active)

	// повторный /start роль не сбрасывает
	reg, err = f.svc.RegisterTelegram(ctx, users.Telegram{ID: 777}, false)
	require.NoError(t, err)
	assert.False(t, reg.PendingApproval)
	assert.Equal(t, users.RoleQC, reg.User.Role)

	require.NoError(t, f.svc.DeactivateUser(ctx, reg.User.ID))
	u, err = f.svc.UserByTelegram(ctx, 777)
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestRegisterTelegram_Admin(t *testing.T) {
	f := newFixture(t)
	reg, err := f.svc.RegisterTelegram(context.Background(), users.Telegram{ID: 1}, true)
	require.NoError(t, err)
	assert.False(t, reg.PendingApproval)
	assert.Equal(t, users.RoleAdmin, reg.User.Role)
}

func TestApproveUser_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ApproveUser(ctx, f.receiver.ID, "boss")
	assert.ErrorIs(t, err, workflow.ErrInvalidRequest)

	_, err = f.svc.ApproveUser(ctx, 9999, users.RoleQC)
	assert.ErrorIs(t, err, workflow.ErrUserNotFound)

	_, err = f.svc.UserByTelegram(ctx, 4242)
	assert.True(t, workflow.IsNotFound(err))
}

func TestSetNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SetNotifications(ctx, f.inspector.ID, false))
	u, err := f.svc.UserByTelegram(ctx, f.inspector.TelegramID)
	require.NoError(t, err)
	assert.False(t, u.Reachable())
}
