package domain

import "time"

type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

type MaintenanceTicket struct {
	ID                     string
	ItemID                 string
	ScheduledMaintenanceID *string
	Title                  string
	Description            string
	Status                 TicketStatus
	Priority               TicketPriority
	Category               string
	ReportedBy             string
	InventoryAction        InventoryAction
	// QuantityDeducted is the amount applied at apply time, for STATUS_ONLY
	// as well as DEDUCT. Restore always reverses this value.
	QuantityDeducted  int
	InventoryRestored bool
	// ApplyPending marks a promoted ticket whose inventory action has not
	// been applied yet.
	ApplyPending bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
