package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

func scheduleIDs(list []domain.ScheduledMaintenance) []string {
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestQueryWindows(t *testing.T) {
	env := newTestEnv(t, PromotionAtomic)
	env.addItem(t, "scale", 10, 1)
	ctx := context.Background()

	yesterday := env.addSchedule(t, "scale", day(2024, 4, 14), domain.InventoryActionNone, 1)
	today := env.addSchedule(t, "scale", day(2024, 4, 15), domain.InventoryActionNone, 1)
	edge := env.addSchedule(t, "scale", day(2024, 5, 15), domain.InventoryActionNone, 1)
	env.addSchedule(t, "scale", day(2024, 5, 16), domain.InventoryActionNone, 1)
	done := env.addSchedule(t, "scale", day(2024, 4, 20), domain.InventoryActionNone, 1)
	_, err := env.engine.MarkCompleted(ctx, done.ID, "tech-1")
	require.NoError(t, err)

	upcoming, err := env.queries.GetUpcoming(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{today.ID, edge.ID}, scheduleIDs(upcoming))

	overdue, err := env.queries.GetOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{yesterday.ID, today.ID}, scheduleIDs(overdue))

	stats, err := env.queries.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleStats{Total: 5, Upcoming: 2, Overdue: 2, CompletedThisMonth: 1}, stats)
}

func TestGetSchedules_FilterAndOrder(t *testing.T) {
	env := newTestEnv(t, PromotionAtomic)
	env.addItem(t, "a", 10, 1)
	env.addItem(t, "b", 10, 1)
	ctx := context.Background()

	late := env.addSchedule(t, "a", day(2024, 6, 1), domain.InventoryActionNone, 1)
	early := env.addSchedule(t, "a", day(2024, 5, 1), domain.InventoryActionNone, 1)
	env.addSchedule(t, "b", day(2024, 4, 20), domain.InventoryActionNone, 1)

	itemID := "a"
	list, err := env.queries.GetSchedules(ctx, domain.ScheduleFilter{ItemID: &itemID})
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID, late.ID}, scheduleIDs(list))

	from, to := day(2024, 5, 1), day(2024, 5, 31)
	list, err = env.queries.GetSchedules(ctx, domain.ScheduleFilter{FromDate: &from, ToDate: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{early.ID}, scheduleIDs(list))

	kind := domain.MaintenanceTypeReplacement
	list, err = env.queries.GetSchedules(ctx, domain.ScheduleFilter{MaintenanceType: &kind})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetSchedulesNeedingReminders(t *testing.T) {
	env := newTestEnv(t, PromotionAtomic)
	env.addItem(t, "scale", 10, 1)
	ctx := context.Background()

	soon := env.addSchedule(t, "scale", day(2024, 4, 25), domain.InventoryActionNone, 1)
	env.addSchedule(t, "scale", day(2024, 5, 10), domain.InventoryActionNone, 1)
	env.addSchedule(t, "scale", day(2024, 4, 10), domain.InventoryActionNone, 1)

	for _, days := range []int{14, 7} {
		list, err := env.queries.GetSchedulesNeedingReminders(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{soon.ID}, scheduleIDs(list))

		_, err = env.engine.MarkReminderSent(ctx, soon.ID, days)
		require.NoError(t, err)
	}

	list, err := env.queries.GetSchedulesNeedingReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{soon.ID}, scheduleIDs(list))

	_, err = env.engine.MarkReminderSent(ctx, soon.ID, 1)
	require.NoError(t, err)
	list, err = env.queries.GetSchedulesNeedingReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetStats_ServedFromCache(t *testing.T) {
	env := newTestEnv(t, PromotionAtomic)
	ctx := context.Background()

	env.cache.stats = &domain.ScheduleStats{Total: 42}
	stats, err := env.queries.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, stats.Total)
}

func TestGetLookups_NotFound(t *testing.T) {
	env := newTestEnv(t, PromotionAtomic)
	ctx := context.Background()

	_, err := env.queries.GetItem(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.queries.GetSchedule(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.queries.GetTicket(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetSchedules_DateBoundsInClockLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	env := newTestEnv(t, PromotionAtomic)
	env.clock.Location = berlin
	env.build(env.db, PromotionAtomic)
	env.addItem(t, "scale", 10, 1)
	ctx := context.Background()

	s := env.addSchedule(t, "scale", day(2024, 5, 1), domain.InventoryActionNone, 1)
	require.Equal(t, berlin, s.ScheduledDate.Location())

	// bounds arrive as UTC midnight from the HTTP layer
	from, to := day(2024, 5, 1), day(2024, 5, 1)
	list, err := env.queries.GetSchedules(ctx, domain.ScheduleFilter{FromDate: &from, ToDate: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, scheduleIDs(list))

	after := day(2024, 5, 2)
	list, err = env.queries.GetSchedules(ctx, domain.ScheduleFilter{FromDate: &after})
	require.NoError(t, err)
	assert.Empty(t, list)

	before := day(2024, 4, 30)
	list, err = env.queries.GetSchedules(ctx, domain.ScheduleFilter{ToDate: &before})
	require.NoError(t, err)
	assert.Empty(t, list)
}

// countHook runs hook once, right after the first schedule count.
type countHook struct {
	port.DatabaseRepository
	once sync.Once
	hook func()
}

func (c *countHook) Schedules() port.ScheduleRepository {
	return hookedSchedules{ScheduleRepository: c.DatabaseRepository.Schedules(), h: c}
}

type hookedSchedules struct {
	port.ScheduleRepository
	h *countHook
}

func (s hookedSchedules) CountSchedules(ctx context.Context, filter domain.ScheduleFilter) (int, error) {
	n, err := s.ScheduleRepository.CountSchedules(ctx, filter)
	s.h.once.Do(s.h.hook)
	return n, err
}

func TestGetStats_MutationDuringCountNotCached(t *testing.T) {
	env := newTestEnv(t, PromotionAtomic)
	env.addItem(t, "scale", 10, 1)
	ctx := context.Background()

	hooked := &countHook{DatabaseRepository: env.db, hook: func() {
		env.addSchedule(t, "scale", day(2024, 5, 1), domain.InventoryActionNone, 1)
	}}
	queries := NewQueryService(hooked, env.cache, env.clock, env.log)

	stats, err := queries.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Nil(t, env.cache.stats)

	stats, err = queries.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	require.NotNil(t, env.cache.stats)
	assert.Equal(t, 1, env.cache.stats.Total)
}
