package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

func TestMemoryAdapter_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.Items().CreateItem(ctx, domain.InventoryItem{ID: "a", Quantity: 5}))

	boom := errors.New("boom")
	err := m.WithinTx(ctx, func(tx port.Repositories) error {
		item, err := tx.Items().GetItemForUpdate(ctx, "a")
		require.NoError(t, err)
		item.Quantity = 1
		require.NoError(t, tx.Items().UpdateInventory(ctx, *item))
		require.NoError(t, tx.Schedules().CreateSchedule(ctx, domain.ScheduledMaintenance{ID: "s1", ItemID: "a"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	item, err := m.Items().GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, 0, item.Version)

	s, err := m.Schedules().GetSchedule(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestMemoryAdapter_UpdateInventoryOptimisticLock(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.Items().CreateItem(ctx, domain.InventoryItem{ID: "a", Quantity: 5, MinimumStock: 2}))

	stale, err := m.Items().GetItem(ctx, "a")
	require.NoError(t, err)

	fresh := *stale
	fresh.Quantity = 4
	fresh.Refresh()
	require.NoError(t, m.Items().UpdateInventory(ctx, fresh))

	stale.Quantity = 3
	assert.ErrorIs(t, m.Items().UpdateInventory(ctx, *stale), ErrOptimisticLock)

	item, err := m.Items().GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, 1, item.Version)
}

func TestMemoryAdapter_CreateItemDerivesStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.Items().CreateItem(ctx, domain.InventoryItem{ID: "a", Quantity: 0}))
	assert.Error(t, m.Items().CreateItem(ctx, domain.InventoryItem{ID: "a"}))

	item, err := m.Items().GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusOutOfStock, item.Status)

	missing, err := m.Items().GetItem(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryAdapter_ListAndEarliest(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, s := range []domain.ScheduledMaintenance{
		{ID: "late", ItemID: "a", ScheduledDate: date(6, 1), CreatedAt: created},
		{ID: "second", ItemID: "a", ScheduledDate: date(5, 1), CreatedAt: created.Add(time.Second)},
		{ID: "first", ItemID: "a", ScheduledDate: date(5, 1), CreatedAt: created},
		{ID: "done", ItemID: "a", ScheduledDate: date(4, 1), IsCompleted: true, CreatedAt: created},
		{ID: "other", ItemID: "b", ScheduledDate: date(3, 1), CreatedAt: created},
	} {
		require.NoError(t, m.Schedules().CreateSchedule(ctx, s))
	}

	itemID := "a"
	pending := false
	list, err := m.Schedules().ListSchedules(ctx, domain.ScheduleFilter{ItemID: &itemID, IsCompleted: &pending})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"first", "second", "late"}, ids)

	n, err := m.Schedules().CountSchedules(ctx, domain.ScheduleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	earliest, err := m.Schedules().EarliestPendingDate(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, earliest)
	assert.True(t, date(5, 1).Equal(*earliest))

	none, err := m.Schedules().EarliestPendingDate(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryAdapter_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	assert.ErrorIs(t, m.Schedules().UpdateSchedule(ctx, domain.ScheduledMaintenance{ID: "x"}), domain.ErrNotFound)
	assert.ErrorIs(t, m.Tickets().UpdateTicket(ctx, domain.MaintenanceTicket{ID: "x"}), domain.ErrNotFound)
}

func TestMemoryAdapter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewMemoryAdapter().WithinTx(ctx, func(port.Repositories) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
