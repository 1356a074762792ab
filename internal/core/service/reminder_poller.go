package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

var ErrPollerRunning = errors.New("reminder poller already running")

// ReminderPoller periodically looks for schedules whose reminder thresholds
// have been crossed and emits reminder.due events for them. Running state
// lives on the value; Start and Stop may be called from any goroutine.
type ReminderPoller struct {
	queries  *QueryService
	engine   *MaintenanceService
	cache    port.CacheRepository
	events   port.EventPublisher
	clock    Clock
	interval time.Duration
	log      *slog.Logger
	metrics  port.MetricsRecorder

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type PollerConfig struct {
	Interval time.Duration
	Clock    Clock
	Logger   *slog.Logger
	Metrics  port.MetricsRecorder
}

func NewReminderPoller(queries *QueryService, engine *MaintenanceService, cache port.CacheRepository, events port.EventPublisher, cfg PollerConfig) *ReminderPoller {
	p := &ReminderPoller{
		queries:  queries,
		engine:   engine,
		cache:    cache,
		events:   events,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
	if p.interval <= 0 {
		p.interval = time.Hour
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = noopRecorder{}
	}
	return p
}

// Start launches the polling loop. The first pass runs immediately.
func (p *ReminderPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrPollerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go func() {
		defer close(done)
		p.loop(ctx)
	}()
	p.log.Info("reminder poller started", "interval", p.interval)
	return nil
}

// Stop cancels the loop and waits for the in-flight pass to return.
func (p *ReminderPoller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.log.Info("reminder poller stopped")
}

func (p *ReminderPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *ReminderPoller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if n, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("reminder pass failed", "err", err)
		} else if n > 0 {
			p.log.Info("reminders dispatched", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DueThresholds returns the thresholds crossed for schedule as of today
// whose flags are still unset, largest first.
func DueThresholds(schedule domain.ScheduledMaintenance, today time.Time, loc *time.Location) []int {
	daysLeft := domain.DaysUntil(today, schedule.ScheduledDate, loc)
	var due []int
	for _, threshold := range domain.ReminderThresholds {
		if daysLeft > threshold {
			continue
		}
		if sent, _ := schedule.ReminderSent(threshold); !sent {
			due = append(due, threshold)
		}
	}
	return due
}

// RunOnce performs one polling pass and returns how many reminders were
// dispatched. Only the tightest crossed threshold is announced; every
// crossed flag is then marked so stale reminders are not sent late.
func (p *ReminderPoller) RunOnce(ctx context.Context) (int, error) {
	schedules, err := p.queries.GetSchedulesNeedingReminders(ctx)
	if err != nil {
		return 0, err
	}

	today := p.clock.today()
	dispatched := 0
	for _, schedule := range schedules {
		if ctx.Err() != nil {
			return dispatched, ctx.Err()
		}
		due := DueThresholds(schedule, today, p.clock.loc())
		if len(due) == 0 {
			continue
		}
		threshold := due[len(due)-1]

		ok, err := p.dispatch(ctx, schedule, today, threshold)
		if err != nil {
			p.log.Error("dispatch reminder failed", "scheduleId", schedule.ID, "days", threshold, "err", err)
			continue
		}
		if !ok {
			continue
		}
		for _, days := range due {
			if _, err := p.engine.MarkReminderSent(ctx, schedule.ID, days); err != nil {
				p.log.Error("mark reminder sent failed", "scheduleId", schedule.ID, "days", days, "err", err)
			}
		}
		p.metrics.ReminderDispatched(threshold)
		dispatched++
	}
	return dispatched, nil
}

// dispatch claims the reminder so concurrent pollers do not emit it twice,
// then publishes it. The claim is dropped again if publishing fails.
func (p *ReminderPoller) dispatch(ctx context.Context, schedule domain.ScheduledMaintenance, today time.Time, threshold int) (bool, error) {
	key := fmt.Sprintf("reminder:%s:%d", schedule.ID, threshold)
	if p.cache != nil {
		ok, err := p.cache.SetIdempotency(ctx, key)
		if err != nil {
			return false, fmt.Errorf("claim reminder: %w", err)
		}
		if !ok {
			return false, nil
		}
	}

	if p.events == nil {
		return true, nil
	}
	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventReminderDue,
		ItemID:     schedule.ItemID,
		ScheduleID: schedule.ID,
		TicketID:   ptrValue(schedule.TicketID),
		Data: map[string]any{
			"thresholdDays":   threshold,
			"daysRemaining":   domain.DaysUntil(today, schedule.ScheduledDate, p.clock.loc()),
			"maintenanceType": string(schedule.MaintenanceType),
			"scheduledDate":   schedule.ScheduledDate.Format(time.DateOnly),
		},
		OccurredAt: p.clock.now().UTC(),
	}
	if err := p.events.Publish(ctx, event); err != nil {
		if p.cache != nil {
			if relErr := p.cache.ReleaseIdempotency(ctx, key); relErr != nil {
				p.log.Error("release reminder claim failed", "key", key, "err", relErr)
			}
		}
		return false, fmt.Errorf("publish reminder: %w", err)
	}
	return true, nil
}
