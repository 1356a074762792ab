package messaging

import (
	"context"
	"log/slog"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...domain.Event) error {
	for _, e := range events {
		p.log.InfoContext(ctx, "domain event", "eventId", e.ID, "type", e.Type,
			"itemId", e.ItemID, "scheduleId", e.ScheduleID, "ticketId", e.TicketID)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
