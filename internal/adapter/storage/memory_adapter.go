package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

// MemoryAdapter keeps all records in process. A unit of work holds the
// adapter lock for its whole duration and works on a copy of the state that
// replaces the live state only when fn succeeds.
type MemoryAdapter struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	items     map[string]domain.InventoryItem
	schedules map[string]domain.ScheduledMaintenance
	tickets   map[string]domain.MaintenanceTicket
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{state: &memoryState{
		items:     make(map[string]domain.InventoryItem),
		schedules: make(map[string]domain.ScheduledMaintenance),
		tickets:   make(map[string]domain.MaintenanceTicket),
	}}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		items:     make(map[string]domain.InventoryItem, len(s.items)),
		schedules: make(map[string]domain.ScheduledMaintenance, len(s.schedules)),
		tickets:   make(map[string]domain.MaintenanceTicket, len(s.tickets)),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	return c
}

func (m *MemoryAdapter) WithinTx(ctx context.Context, fn func(tx port.Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(memoryRepos{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// Reads outside a unit of work see the last committed state.

func (m *MemoryAdapter) Items() port.ItemRepository         { return m.committed() }
func (m *MemoryAdapter) Schedules() port.ScheduleRepository { return m.committed() }
func (m *MemoryAdapter) Tickets() port.TicketRepository     { return m.committed() }

func (m *MemoryAdapter) committed() lockedRepos {
	return lockedRepos{m: m}
}

type memoryRepos struct {
	state *memoryState
}

func (r memoryRepos) Items() port.ItemRepository         { return r }
func (r memoryRepos) Schedules() port.ScheduleRepository { return r }
func (r memoryRepos) Tickets() port.TicketRepository     { return r }

func (r memoryRepos) CreateItem(_ context.Context, item domain.InventoryItem) error {
	if _, ok := r.state.items[item.ID]; ok {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	item.Refresh()
	r.state.items[item.ID] = item
	return nil
}

func (r memoryRepos) GetItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	item, ok := r.state.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r memoryRepos) GetItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return r.GetItem(ctx, id)
}

func (r memoryRepos) UpdateInventory(_ context.Context, item domain.InventoryItem) error {
	current, ok := r.state.items[item.ID]
	if !ok || current.Version != item.Version {
		return ErrOptimisticLock
	}
	current.Quantity = item.Quantity
	current.MinimumStock = item.MinimumStock
	current.InMaintenanceQuantity = item.InMaintenanceQuantity
	current.Status = item.Status
	current.Version++
	current.UpdatedAt = time.Now()
	r.state.items[item.ID] = current
	return nil
}

func (r memoryRepos) SetNextMaintenanceDate(_ context.Context, itemID string, date *time.Time) error {
	item, ok := r.state.items[itemID]
	if !ok {
		return nil
	}
	item.NextMaintenanceDate = copyTime(date)
	r.state.items[itemID] = item
	return nil
}

func (r memoryRepos) CreateSchedule(_ context.Context, schedule domain.ScheduledMaintenance) error {
	if _, ok := r.state.schedules[schedule.ID]; ok {
		return fmt.Errorf("schedule %s already exists", schedule.ID)
	}
	r.state.schedules[schedule.ID] = schedule
	return nil
}

func (r memoryRepos) GetSchedule(_ context.Context, id string) (*domain.ScheduledMaintenance, error) {
	schedule, ok := r.state.schedules[id]
	if !ok {
		return nil, nil
	}
	return &schedule, nil
}

func (r memoryRepos) GetScheduleForUpdate(ctx context.Context, id string) (*domain.ScheduledMaintenance, error) {
	return r.GetSchedule(ctx, id)
}

func (r memoryRepos) UpdateSchedule(_ context.Context, schedule domain.ScheduledMaintenance) error {
	if _, ok := r.state.schedules[schedule.ID]; !ok {
		return fmt.Errorf("schedule %s: %w", schedule.ID, domain.ErrNotFound)
	}
	r.state.schedules[schedule.ID] = schedule
	return nil
}

func (r memoryRepos) DeleteSchedule(_ context.Context, id string) error {
	delete(r.state.schedules, id)
	return nil
}

func (r memoryRepos) ListSchedules(_ context.Context, filter domain.ScheduleFilter) ([]domain.ScheduledMaintenance, error) {
	out := make([]domain.ScheduledMaintenance, 0)
	for _, s := range r.state.schedules {
		if filter.Matches(&s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}

func (r memoryRepos) CountSchedules(ctx context.Context, filter domain.ScheduleFilter) (int, error) {
	list, err := r.ListSchedules(ctx, filter)
	return len(list), err
}

func (r memoryRepos) EarliestPendingDate(_ context.Context, itemID string) (*time.Time, error) {
	var earliest *time.Time
	for _, s := range r.state.schedules {
		if s.ItemID != itemID || s.IsCompleted {
			continue
		}
		if earliest == nil || s.ScheduledDate.Before(*earliest) {
			d := s.ScheduledDate
			earliest = &d
		}
	}
	return earliest, nil
}

func (r memoryRepos) CreateTicket(_ context.Context, ticket domain.MaintenanceTicket) error {
	if _, ok := r.state.tickets[ticket.ID]; ok {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	r.state.tickets[ticket.ID] = ticket
	return nil
}

func (r memoryRepos) GetTicket(_ context.Context, id string) (*domain.MaintenanceTicket, error) {
	ticket, ok := r.state.tickets[id]
	if !ok {
		return nil, nil
	}
	return &ticket, nil
}

func (r memoryRepos) GetTicketForUpdate(ctx context.Context, id string) (*domain.MaintenanceTicket, error) {
	return r.GetTicket(ctx, id)
}

func (r memoryRepos) UpdateTicket(_ context.Context, ticket domain.MaintenanceTicket) error {
	if _, ok := r.state.tickets[ticket.ID]; !ok {
		return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrNotFound)
	}
	r.state.tickets[ticket.ID] = ticket
	return nil
}

// lockedRepos serves one-off operations outside WithinTx by wrapping each in
// its own unit of work.
type lockedRepos struct {
	m *MemoryAdapter
}

func (l lockedRepos) run(ctx context.Context, fn func(r memoryRepos) error) error {
	return l.m.WithinTx(ctx, func(tx port.Repositories) error {
		return fn(tx.(memoryRepos))
	})
}

func (l lockedRepos) CreateItem(ctx context.Context, item domain.InventoryItem) error {
	return l.run(ctx, func(r memoryRepos) error { return r.CreateItem(ctx, item) })
}

func (l lockedRepos) GetItem(ctx context.Context, id string) (out *domain.InventoryItem, err error) {
	err = l.run(ctx, func(r memoryRepos) error { out, err = r.GetItem(ctx, id); return err })
	return out, err
}

func (l lockedRepos) GetItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return l.GetItem(ctx, id)
}

func (l lockedRepos) UpdateInventory(ctx context.Context, item domain.InventoryItem) error {
	return l.run(ctx, func(r memoryRepos) error { return r.UpdateInventory(ctx, item) })
}

func (l lockedRepos) SetNextMaintenanceDate(ctx context.Context, itemID string, date *time.Time) error {
	return l.run(ctx, func(r memoryRepos) error { return r.SetNextMaintenanceDate(ctx, itemID, date) })
}

func (l lockedRepos) CreateSchedule(ctx context.Context, schedule domain.ScheduledMaintenance) error {
	return l.run(ctx, func(r memoryRepos) error { return r.CreateSchedule(ctx, schedule) })
}

func (l lockedRepos) GetSchedule(ctx context.Context, id string) (out *domain.ScheduledMaintenance, err error) {
	err = l.run(ctx, func(r memoryRepos) error { out, err = r.GetSchedule(ctx, id); return err })
	return out, err
}

func (l lockedRepos) GetScheduleForUpdate(ctx context.Context, id string) (*domain.ScheduledMaintenance, error) {
	return l.GetSchedule(ctx, id)
}

func (l lockedRepos) UpdateSchedule(ctx context.Context, schedule domain.ScheduledMaintenance) error {
	return l.run(ctx, func(r memoryRepos) error { return r.UpdateSchedule(ctx, schedule) })
}

func (l lockedRepos) DeleteSchedule(ctx context.Context, id string) error {
	return l.run(ctx, func(r memoryRepos) error { return r.DeleteSchedule(ctx, id) })
}

func (l lockedRepos) ListSchedules(ctx context.Context, filter domain.ScheduleFilter) (out []domain.ScheduledMaintenance, err error) {
	err = l.run(ctx, func(r memoryRepos) error { out, err = r.ListSchedules(ctx, filter); return err })
	return out, err
}

func (l lockedRepos) CountSchedules(ctx context.Context, filter domain.ScheduleFilter) (n int, err error) {
	err = l.run(ctx, func(r memoryRepos) error { n, err = r.CountSchedules(ctx, filter); return err })
	return n, err
}

func (l lockedRepos) EarliestPendingDate(ctx context.Context, itemID string) (out *time.Time, err error) {
	err = l.run(ctx, func(r memoryRepos) error { out, err = r.EarliestPendingDate(ctx, itemID); return err })
	return out, err
}

func (l lockedRepos) CreateTicket(ctx context.Context, ticket domain.MaintenanceTicket) error {
	return l.run(ctx, func(r memoryRepos) error { return r.CreateTicket(ctx, ticket) })
}

func (l lockedRepos) GetTicket(ctx context.Context, id string) (out *domain.MaintenanceTicket, err error) {
	err = l.run(ctx, func(r memoryRepos) error { out, err = r.GetTicket(ctx, id); return err })
	return out, err
}

func (l lockedRepos) GetTicketForUpdate(ctx context.Context, id string) (*domain.MaintenanceTicket, error) {
	return l.GetTicket(ctx, id)
}

func (l lockedRepos) UpdateTicket(ctx context.Context, ticket domain.MaintenanceTicket) error {
	return l.run(ctx, func(r memoryRepos) error { return r.UpdateTicket(ctx, ticket) })
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
