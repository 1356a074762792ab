package port

import (
	"context"
	"time"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

// Lookups return (nil, nil) when the record does not exist.

type ItemRepository interface {
	CreateItem(ctx context.Context, item domain.InventoryItem) error

	GetItem(ctx context.Context, id string) (*domain.InventoryItem, error)

	// GetItemForUpdate reads the item and holds its row lock until the
	// surrounding transaction ends
	GetItemForUpdate(ctx context.Context, id string) (*domain.InventoryItem, error)

	// UpdateInventory writes stock counters and status with version check for optimistic locking
	UpdateInventory(ctx context.Context, item domain.InventoryItem) error

	SetNextMaintenanceDate(ctx context.Context, itemID string, date *time.Time) error
}

type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule domain.ScheduledMaintenance) error

	GetSchedule(ctx context.Context, id string) (*domain.ScheduledMaintenance, error)

	GetScheduleForUpdate(ctx context.Context, id string) (*domain.ScheduledMaintenance, error)

	UpdateSchedule(ctx context.Context, schedule domain.ScheduledMaintenance) error

	DeleteSchedule(ctx context.Context, id string) error

	// ListSchedules returns matches ordered by scheduled date ascending
	ListSchedules(ctx context.Context, filter domain.ScheduleFilter) ([]domain.ScheduledMaintenance, error)

	CountSchedules(ctx context.Context, filter domain.ScheduleFilter) (int, error)

	// EarliestPendingDate returns the minimum scheduled date among the
	// item's non-completed schedules, or nil
	EarliestPendingDate(ctx context.Context, itemID string) (*time.Time, error)
}

type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket domain.MaintenanceTicket) error

	GetTicket(ctx context.Context, id string) (*domain.MaintenanceTicket, error)

	GetTicketForUpdate(ctx context.Context, id string) (*domain.MaintenanceTicket, error)

	UpdateTicket(ctx context.Context, ticket domain.MaintenanceTicket) error
}

type Repositories interface {
	Items() ItemRepository
	Schedules() ScheduleRepository
	Tickets() TicketRepository
}

type DatabaseRepository interface {
	Repositories

	// WithinTx runs fn as one unit of work. Returning an error from fn
	// discards every write fn made.
	WithinTx(ctx context.Context, fn func(tx Repositories) error) error
}
