package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

const (
	upcomingWindowDays = 30
	reminderWindowDays = 14
)

// QueryService is the read side: schedule lists, time windows and stats.
type QueryService struct {
	db    port.DatabaseRepository
	cache port.CacheRepository
	clock Clock
	log   *slog.Logger
}

func NewQueryService(db port.DatabaseRepository, cache port.CacheRepository, clock Clock, log *slog.Logger) *QueryService {
	if log == nil {
		log = slog.Default()
	}
	return &QueryService{db: db, cache: cache, clock: clock, log: log}
}

func (q *QueryService) GetItem(ctx context.Context, id string) (*domain.InventoryItem, error) {
	item, err := q.db.Items().GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return item, nil
}

func (q *QueryService) GetTicket(ctx context.Context, id string) (*domain.MaintenanceTicket, error) {
	ticket, err := q.db.Tickets().GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	return ticket, nil
}

func (q *QueryService) GetSchedule(ctx context.Context, id string) (*domain.ScheduledMaintenance, error) {
	schedule, err := q.db.Schedules().GetSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}
	return schedule, nil
}

// GetSchedules lists schedules matching filter, earliest first. Date bounds
// are calendar days in the clock's location, like stored schedule dates.
func (q *QueryService) GetSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.ScheduledMaintenance, error) {
	if filter.FromDate != nil {
		from := q.clock.day(*filter.FromDate)
		filter.FromDate = &from
	}
	if filter.ToDate != nil {
		to := q.clock.day(*filter.ToDate)
		filter.ToDate = &to
	}
	schedules, err := q.db.Schedules().ListSchedules(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}

func (q *QueryService) GetUpcoming(ctx context.Context) ([]domain.ScheduledMaintenance, error) {
	return q.GetSchedules(ctx, q.upcomingFilter())
}

func (q *QueryService) GetOverdue(ctx context.Context) ([]domain.ScheduledMaintenance, error) {
	return q.GetSchedules(ctx, q.overdueFilter())
}

// GetSchedulesNeedingReminders returns pending schedules due within the next
// 14 days with any reminder flag unset. Callers decide per schedule which
// thresholds have been crossed.
func (q *QueryService) GetSchedulesNeedingReminders(ctx context.Context) ([]domain.ScheduledMaintenance, error) {
	today := q.clock.today()
	until := today.AddDate(0, 0, reminderWindowDays)
	return q.GetSchedules(ctx, domain.ScheduleFilter{
		IsCompleted:   boolPtr(false),
		FromDate:      &today,
		ToDate:        &until,
		NeedsReminder: true,
	})
}

func (q *QueryService) GetStats(ctx context.Context) (domain.ScheduleStats, error) {
	cacheOK := false
	var gen int64
	if q.cache != nil {
		cached, g, err := q.cache.GetStats(ctx)
		switch {
		case err != nil:
			q.log.Warn("read stats cache failed", "err", err)
		case cached != nil:
			return *cached, nil
		default:
			cacheOK, gen = true, g
		}
	}

	monthStart := domain.StartOfMonth(q.clock.now(), q.clock.loc())
	var stats domain.ScheduleStats
	counts := []struct {
		filter domain.ScheduleFilter
		dst    *int
	}{
		{domain.ScheduleFilter{}, &stats.Total},
		{q.upcomingFilter(), &stats.Upcoming},
		{q.overdueFilter(), &stats.Overdue},
		{domain.ScheduleFilter{IsCompleted: boolPtr(true), CompletedSince: &monthStart}, &stats.CompletedThisMonth},
	}
	for _, c := range counts {
		n, err := q.db.Schedules().CountSchedules(ctx, c.filter)
		if err != nil {
			return domain.ScheduleStats{}, fmt.Errorf("count schedules: %w", err)
		}
		*c.dst = n
	}

	// A mutation committed while counting bumps the generation, so these
	// counts are not cached over its invalidation.
	if cacheOK {
		if err := q.cache.SetStats(ctx, gen, stats); err != nil {
			q.log.Warn("write stats cache failed", "err", err)
		}
	}
	return stats, nil
}

func (q *QueryService) upcomingFilter() domain.ScheduleFilter {
	today := q.clock.today()
	until := today.AddDate(0, 0, upcomingWindowDays)
	return domain.ScheduleFilter{IsCompleted: boolPtr(false), FromDate: &today, ToDate: &until}
}

func (q *QueryService) overdueFilter() domain.ScheduleFilter {
	today := q.clock.today()
	return domain.ScheduleFilter{IsCompleted: boolPtr(false), ToDate: &today}
}

func boolPtr(b bool) *bool { return &b }
