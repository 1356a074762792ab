package domain

import "time"

type EventType string

const (
	EventTicketPromoted    EventType = "ticket.promoted"
	EventInventoryApplied  EventType = "inventory.applied"
	EventInventoryRestored EventType = "inventory.restored"
	EventScheduleCompleted EventType = "schedule.completed"
	EventReminderDue       EventType = "reminder.due"
)

// Event is published after the unit of work that produced it commits.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	ItemID     string         `json:"itemId"`
	ScheduleID string         `json:"scheduleId,omitempty"`
	TicketID   string         `json:"ticketId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
