package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/port"
)

// PromotionPolicy decides what happens to a freshly promoted ticket when its
// inventory action cannot be applied.
type PromotionPolicy string

const (
	// PromotionAtomic rolls back the ticket and the schedule link.
	PromotionAtomic PromotionPolicy = "atomic"
	// PromotionKeepPending commits the ticket with ApplyPending set so the
	// action can be applied later through ApplyInventoryAction.
	PromotionKeepPending PromotionPolicy = "keep_pending"
)

func ParsePromotionPolicy(s string) (PromotionPolicy, error) {
	switch PromotionPolicy(strings.ToLower(s)) {
	case "", PromotionAtomic:
		return PromotionAtomic, nil
	case PromotionKeepPending:
		return PromotionKeepPending, nil
	}
	return "", fmt.Errorf("unknown promotion policy %q", s)
}

type PromotionOutcome string

const (
	OutcomePromoted     PromotionOutcome = "promoted"
	OutcomePendingApply PromotionOutcome = "pending_apply"
	OutcomeFailed       PromotionOutcome = "failed"
)

// PromotionResult is either Promoted with the ticket, PendingApply with the
// ticket and the reason the action was not applied, or Failed with a reason.
type PromotionResult struct {
	Outcome PromotionOutcome
	Ticket  *domain.MaintenanceTicket
	Reason  error
}

type CreateScheduleInput struct {
	ItemID           string
	MaintenanceType  domain.MaintenanceType
	Description      *string
	ScheduledDate    time.Time
	InventoryAction  domain.InventoryAction
	QuantityAffected int
	CreatedBy        *string
}

type Options struct {
	Clock           Clock
	PromotionPolicy PromotionPolicy
	Logger          *slog.Logger
	Metrics         port.MetricsRecorder
}

type MaintenanceService struct {
	db      port.DatabaseRepository
	cache   port.CacheRepository
	events  port.EventPublisher
	clock   Clock
	policy  PromotionPolicy
	log     *slog.Logger
	metrics port.MetricsRecorder
}

func NewMaintenanceService(db port.DatabaseRepository, cache port.CacheRepository, events port.EventPublisher, opts Options) *MaintenanceService {
	s := &MaintenanceService{
		db:      db,
		cache:   cache,
		events:  events,
		clock:   opts.Clock,
		policy:  opts.PromotionPolicy,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if s.policy == "" {
		s.policy = PromotionAtomic
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	return s
}

func (s *MaintenanceService) CreateSchedule(ctx context.Context, in CreateScheduleInput) (*domain.ScheduledMaintenance, error) {
	if in.InventoryAction == "" {
		in.InventoryAction = domain.InventoryActionNone
	}
	if in.QuantityAffected == 0 {
		in.QuantityAffected = 1
	}
	if err := validateScheduleInput(in); err != nil {
		return nil, err
	}

	now := s.clock.now()
	schedule := domain.ScheduledMaintenance{
		ID:               uuid.NewString(),
		ItemID:           in.ItemID,
		MaintenanceType:  in.MaintenanceType,
		Description:      in.Description,
		ScheduledDate:    s.clock.day(in.ScheduledDate),
		InventoryAction:  in.InventoryAction,
		QuantityAffected: in.QuantityAffected,
		CreatedBy:        in.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		if err := lockItems(ctx, tx, in.ItemID); err != nil {
			return err
		}
		if err := tx.Schedules().CreateSchedule(ctx, schedule); err != nil {
			return fmt.Errorf("insert schedule: %w", err)
		}
		return s.refreshNextMaintenanceDate(ctx, tx, in.ItemID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.log.Info("schedule created", "scheduleId", schedule.ID, "itemId", schedule.ItemID,
		"type", schedule.MaintenanceType, "date", schedule.ScheduledDate.Format(time.DateOnly))
	return &schedule, nil
}

func (s *MaintenanceService) UpdateSchedule(ctx context.Context, id string, patch domain.SchedulePatch) (*domain.ScheduledMaintenance, error) {
	var updated domain.ScheduledMaintenance
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		schedule, err := s.lockSchedule(ctx, tx, id)
		if err != nil {
			return err
		}
		if schedule.IsCompleted {
			return fmt.Errorf("schedule %s is completed: %w", id, domain.ErrInvalidState)
		}

		if schedule.Promoted() && patch.ChangesInventoryTerms(schedule) {
			return fmt.Errorf("schedule %s is promoted, its item and inventory action are fixed: %w", id, domain.ErrInvalidState)
		}

		previousItemID := schedule.ItemID
		if err := patch.Apply(schedule); err != nil {
			return err
		}
		schedule.ScheduledDate = s.clock.day(schedule.ScheduledDate)
		schedule.UpdatedAt = s.clock.now()

		if err := lockItems(ctx, tx, previousItemID, schedule.ItemID); err != nil {
			return err
		}

		if err := tx.Schedules().UpdateSchedule(ctx, *schedule); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		if err := s.refreshNextMaintenanceDate(ctx, tx, schedule.ItemID); err != nil {
			return err
		}
		if schedule.ItemID != previousItemID {
			if err := s.refreshNextMaintenanceDate(ctx, tx, previousItemID); err != nil {
				return err
			}
		}
		updated = *schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.log.Info("schedule updated", "scheduleId", id, "itemId", updated.ItemID)
	return &updated, nil
}

func (s *MaintenanceService) DeleteSchedule(ctx context.Context, id string) error {
	var itemID string
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		schedule, err := s.lockSchedule(ctx, tx, id)
		if err != nil {
			return err
		}
		itemID = schedule.ItemID
		if err := lockItems(ctx, tx, itemID); err != nil {
			return err
		}
		if err := tx.Schedules().DeleteSchedule(ctx, id); err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}
		return s.refreshNextMaintenanceDate(ctx, tx, itemID)
	})
	if err != nil {
		return err
	}

	s.invalidateStats(ctx)
	s.log.Info("schedule deleted", "scheduleId", id, "itemId", itemID)
	return nil
}

// MarkReminderSent sets the flag for the given threshold. Setting a flag
// that is already set is a no-op.
func (s *MaintenanceService) MarkReminderSent(ctx context.Context, id string, days int) (*domain.ScheduledMaintenance, error) {
	var out domain.ScheduledMaintenance
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		schedule, err := s.lockSchedule(ctx, tx, id)
		if err != nil {
			return err
		}
		sent, err := schedule.ReminderSent(days)
		if err != nil {
			return err
		}
		if sent {
			out = *schedule
			return nil
		}
		if schedule.IsCompleted {
			return fmt.Errorf("schedule %s is completed: %w", id, domain.ErrInvalidState)
		}
		if err := schedule.SetReminderSent(days); err != nil {
			return err
		}
		schedule.UpdatedAt = s.clock.now()
		if err := tx.Schedules().UpdateSchedule(ctx, *schedule); err != nil {
			return fmt.Errorf("update schedule: %w", err)
		}
		out = *schedule
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MaintenanceService) MarkCompleted(ctx context.Context, id, userID string) (*domain.ScheduledMaintenance, error) {
	var out domain.ScheduledMaintenance
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		schedule, err := s.lockSchedule(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.completeSchedule(ctx, tx, schedule, userID); err != nil {
			return err
		}
		out = *schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	s.publish(ctx, s.event(domain.EventScheduleCompleted, out.ItemID, out.ID, ptrValue(out.TicketID), nil))
	s.log.Info("schedule completed", "scheduleId", id, "itemId", out.ItemID, "userId", userID)
	return &out, nil
}

// CreateTicketFromSchedule promotes a schedule into a ticket and applies the
// schedule's inventory action in the same unit of work.
func (s *MaintenanceService) CreateTicketFromSchedule(ctx context.Context, scheduleID, userID string) (PromotionResult, error) {
	var result PromotionResult
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		schedule, err := s.lockSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		if schedule.Promoted() {
			return fmt.Errorf("schedule %s: %w", scheduleID, domain.ErrAlreadyPromoted)
		}
		// Lock the item before the ticket insert takes a shared FK lock on it.
		item, err := tx.Items().GetItemForUpdate(ctx, schedule.ItemID)
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", schedule.ItemID, domain.ErrNotFound)
		}

		ticket := s.newTicket(schedule, item, userID)
		if err := tx.Tickets().CreateTicket(ctx, ticket); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		schedule.TicketID = &ticket.ID
		schedule.UpdatedAt = s.clock.now()
		if err := tx.Schedules().UpdateSchedule(ctx, *schedule); err != nil {
			return fmt.Errorf("link schedule: %w", err)
		}

		if !ticket.InventoryAction.Applies() {
			result = PromotionResult{Outcome: OutcomePromoted, Ticket: &ticket}
			return nil
		}

		if err := s.applyInventory(ctx, tx, &ticket); err != nil {
			if s.policy == PromotionKeepPending && isPrecheckFailure(err) {
				result = PromotionResult{Outcome: OutcomePendingApply, Ticket: &ticket, Reason: err}
				return nil
			}
			return err
		}
		if err := tx.Tickets().UpdateTicket(ctx, ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		result = PromotionResult{Outcome: OutcomePromoted, Ticket: &ticket}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyPromoted) {
			return PromotionResult{Outcome: OutcomeFailed, Reason: err}, err
		}
		s.metrics.PromotionOutcome(string(OutcomeFailed))
		s.log.Warn("promotion rolled back", "scheduleId", scheduleID, "err", err)
		return PromotionResult{Outcome: OutcomeFailed, Reason: err}, err
	}

	s.metrics.PromotionOutcome(string(result.Outcome))
	s.invalidateStats(ctx)

	t := result.Ticket
	events := []domain.Event{s.event(domain.EventTicketPromoted, t.ItemID, scheduleID, t.ID, map[string]any{
		"outcome":         string(result.Outcome),
		"inventoryAction": string(t.InventoryAction),
	})}
	if result.Outcome == OutcomePromoted && t.InventoryAction.Applies() {
		s.metrics.InventoryApplied(string(t.InventoryAction), t.QuantityDeducted)
		events = append(events, s.event(domain.EventInventoryApplied, t.ItemID, scheduleID, t.ID, map[string]any{
			"inventoryAction": string(t.InventoryAction),
			"quantity":        t.QuantityDeducted,
		}))
	}
	s.publish(ctx, events...)

	if result.Outcome == OutcomePendingApply {
		s.log.Warn("ticket promoted with inventory action pending", "scheduleId", scheduleID, "ticketId", t.ID, "reason", result.Reason)
	} else {
		s.log.Info("schedule promoted", "scheduleId", scheduleID, "ticketId", t.ID, "userId", userID)
	}
	return result, nil
}

// ApplyInventoryAction applies a ticket's inventory action. It refuses to
// apply the same ticket twice.
func (s *MaintenanceService) ApplyInventoryAction(ctx context.Context, ticketID string) (*domain.MaintenanceTicket, error) {
	var out domain.MaintenanceTicket
	var applied bool
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		ticket, err := tx.Tickets().GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("get ticket: %w", err)
		}
		if ticket == nil {
			return fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound)
		}
		if !ticket.InventoryAction.Applies() {
			out = *ticket
			return nil
		}
		if ticket.InventoryRestored || (ticket.QuantityDeducted > 0 && !ticket.ApplyPending) {
			return fmt.Errorf("ticket %s inventory already applied: %w", ticketID, domain.ErrInvalidState)
		}
		if err := s.applyInventory(ctx, tx, ticket); err != nil {
			return err
		}
		if err := tx.Tickets().UpdateTicket(ctx, *ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		out = *ticket
		applied = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.metrics.InventoryApplied(string(out.InventoryAction), out.QuantityDeducted)
		s.publish(ctx, s.event(domain.EventInventoryApplied, out.ItemID, ptrValue(out.ScheduledMaintenanceID), out.ID, map[string]any{
			"inventoryAction": string(out.InventoryAction),
			"quantity":        out.QuantityDeducted,
		}))
		s.log.Info("inventory action applied", "ticketId", out.ID, "itemId", out.ItemID,
			"action", out.InventoryAction, "quantity", out.QuantityDeducted)
	}
	return &out, nil
}

// RestoreInventory reverses the quantity captured at apply time. Missing
// tickets, tickets without an action and already restored tickets are no-ops.
func (s *MaintenanceService) RestoreInventory(ctx context.Context, ticketID string) error {
	var ticket *domain.MaintenanceTicket
	var restored bool
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		var err error
		ticket, err = tx.Tickets().GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("get ticket: %w", err)
		}
		if ticket == nil {
			return nil
		}
		restored, err = s.restoreInventory(ctx, tx, ticket)
		if err != nil {
			return err
		}
		if !restored {
			return nil
		}
		if err := tx.Tickets().UpdateTicket(ctx, *ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if restored {
		s.afterRestore(ctx, ticket)
	}
	return nil
}

// CompleteTicket resolves a ticket, completes its schedule and restores the
// inventory it held, as one unit of work.
func (s *MaintenanceService) CompleteTicket(ctx context.Context, ticketID, userID string) (*domain.MaintenanceTicket, error) {
	var out domain.MaintenanceTicket
	var restored bool
	var completed *domain.ScheduledMaintenance
	err := s.db.WithinTx(ctx, func(tx port.Repositories) error {
		ticket, err := tx.Tickets().GetTicketForUpdate(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("get ticket: %w", err)
		}
		if ticket == nil {
			return fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound)
		}
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			return fmt.Errorf("ticket %s is %s: %w", ticketID, ticket.Status, domain.ErrInvalidState)
		}

		if ticket.ScheduledMaintenanceID != nil {
			schedule, err := tx.Schedules().GetScheduleForUpdate(ctx, *ticket.ScheduledMaintenanceID)
			if err != nil {
				return fmt.Errorf("get schedule: %w", err)
			}
			if schedule != nil && !schedule.IsCompleted {
				if err := s.completeSchedule(ctx, tx, schedule, userID); err != nil {
					return err
				}
				completed = schedule
			}
		}

		restored, err = s.restoreInventory(ctx, tx, ticket)
		if err != nil {
			return err
		}
		ticket.Status = domain.TicketStatusResolved
		ticket.UpdatedAt = s.clock.now()
		if err := tx.Tickets().UpdateTicket(ctx, *ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		out = *ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStats(ctx)
	if completed != nil {
		s.publish(ctx, s.event(domain.EventScheduleCompleted, completed.ItemID, completed.ID, out.ID, nil))
	}
	if restored {
		s.afterRestore(ctx, &out)
	}
	s.log.Info("ticket completed", "ticketId", out.ID, "userId", userID, "inventoryRestored", restored)
	return &out, nil
}

func (s *MaintenanceService) afterRestore(ctx context.Context, ticket *domain.MaintenanceTicket) {
	s.metrics.InventoryRestored(string(ticket.InventoryAction), ticket.QuantityDeducted)
	s.publish(ctx, s.event(domain.EventInventoryRestored, ticket.ItemID, ptrValue(ticket.ScheduledMaintenanceID), ticket.ID, map[string]any{
		"inventoryAction": string(ticket.InventoryAction),
		"quantity":        ticket.QuantityDeducted,
	}))
	s.log.Info("inventory restored", "ticketId", ticket.ID, "itemId", ticket.ItemID,
		"action", ticket.InventoryAction, "quantity", ticket.QuantityDeducted)
}

// applyInventory mutates the locked item and records the applied quantity on
// ticket. The caller persists ticket. Failures before the item write leave
// the unit of work untouched.
func (s *MaintenanceService) applyInventory(ctx context.Context, tx port.Repositories, ticket *domain.MaintenanceTicket) error {
	item, err := tx.Items().GetItemForUpdate(ctx, ticket.ItemID)
	if err != nil {
		return fmt.Errorf("lock item: %w", err)
	}
	if item == nil {
		return fmt.Errorf("item %s: %w", ticket.ItemID, domain.ErrNotFound)
	}

	quantity := 1
	if ticket.ScheduledMaintenanceID != nil {
		schedule, err := tx.Schedules().GetSchedule(ctx, *ticket.ScheduledMaintenanceID)
		if err != nil {
			return fmt.Errorf("get schedule: %w", err)
		}
		if schedule != nil {
			quantity = schedule.QuantityAffected
		}
	}

	switch ticket.InventoryAction {
	case domain.InventoryActionDeduct:
		if item.Quantity < quantity {
			return fmt.Errorf("item %s has %d, need %d: %w", item.ID, item.Quantity, quantity, domain.ErrInsufficientQuantity)
		}
		item.Quantity -= quantity
	case domain.InventoryActionStatusOnly:
		item.InMaintenanceQuantity += quantity
	default:
		return nil
	}
	item.Refresh()

	if err := tx.Items().UpdateInventory(ctx, *item); err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	ticket.QuantityDeducted = quantity
	ticket.ApplyPending = false
	ticket.UpdatedAt = s.clock.now()
	return nil
}

// restoreInventory reverses ticket's applied quantity on the locked item and
// flips InventoryRestored. It reports false when there was nothing to do,
// including tickets whose action was never applied.
// The caller persists ticket.
func (s *MaintenanceService) restoreInventory(ctx context.Context, tx port.Repositories, ticket *domain.MaintenanceTicket) (bool, error) {
	if ticket.InventoryRestored || ticket.ApplyPending || !ticket.InventoryAction.Applies() {
		return false, nil
	}
	item, err := tx.Items().GetItemForUpdate(ctx, ticket.ItemID)
	if err != nil {
		return false, fmt.Errorf("lock item: %w", err)
	}
	if item == nil {
		return false, fmt.Errorf("item %s: %w", ticket.ItemID, domain.ErrNotFound)
	}

	quantity := ticket.QuantityDeducted
	switch ticket.InventoryAction {
	case domain.InventoryActionDeduct:
		item.Quantity += quantity
	case domain.InventoryActionStatusOnly:
		item.InMaintenanceQuantity = max(0, item.InMaintenanceQuantity-quantity)
	}
	item.Refresh()

	if err := tx.Items().UpdateInventory(ctx, *item); err != nil {
		return false, fmt.Errorf("update inventory: %w", err)
	}
	ticket.InventoryRestored = true
	ticket.ApplyPending = false
	ticket.UpdatedAt = s.clock.now()
	return true, nil
}

func (s *MaintenanceService) completeSchedule(ctx context.Context, tx port.Repositories, schedule *domain.ScheduledMaintenance, userID string) error {
	if schedule.IsCompleted {
		return fmt.Errorf("schedule %s already completed: %w", schedule.ID, domain.ErrInvalidState)
	}
	if err := lockItems(ctx, tx, schedule.ItemID); err != nil {
		return err
	}
	now := s.clock.now()
	schedule.IsCompleted = true
	schedule.CompletedDate = &now
	if userID != "" {
		schedule.CompletedBy = &userID
	}
	schedule.UpdatedAt = now
	if err := tx.Schedules().UpdateSchedule(ctx, *schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return s.refreshNextMaintenanceDate(ctx, tx, schedule.ItemID)
}

// refreshNextMaintenanceDate expects the item row to be locked already, so
// concurrent schedule writers for the item recompute one after another.
func (s *MaintenanceService) refreshNextMaintenanceDate(ctx context.Context, tx port.Repositories, itemID string) error {
	next, err := tx.Schedules().EarliestPendingDate(ctx, itemID)
	if err != nil {
		return fmt.Errorf("earliest pending date: %w", err)
	}
	if err := tx.Items().SetNextMaintenanceDate(ctx, itemID, next); err != nil {
		return fmt.Errorf("set next maintenance date: %w", err)
	}
	return nil
}

func (s *MaintenanceService) lockSchedule(ctx context.Context, tx port.Repositories, id string) (*domain.ScheduledMaintenance, error) {
	schedule, err := tx.Schedules().GetScheduleForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if schedule == nil {
		return nil, fmt.Errorf("schedule %s: %w", id, domain.ErrNotFound)
	}
	return schedule, nil
}

// lockItems takes the row locks of the given items in ID order. Every unit
// of work that touches an item's schedules locks the item first.
func lockItems(ctx context.Context, tx port.Repositories, ids ...string) error {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	for _, id := range slices.Compact(ids) {
		item, err := tx.Items().GetItemForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("lock item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
	}
	return nil
}

func (s *MaintenanceService) newTicket(schedule *domain.ScheduledMaintenance, item *domain.InventoryItem, userID string) domain.MaintenanceTicket {
	description := fmt.Sprintf("Scheduled %s maintenance", strings.ToLower(string(schedule.MaintenanceType)))
	if schedule.Description != nil && *schedule.Description != "" {
		description = *schedule.Description
	}
	scheduleID := schedule.ID
	now := s.clock.now()
	return domain.MaintenanceTicket{
		ID:                     uuid.NewString(),
		ItemID:                 schedule.ItemID,
		ScheduledMaintenanceID: &scheduleID,
		Title:                  fmt.Sprintf("%s - %s", schedule.MaintenanceType.Label(), item.Title),
		Description:            description,
		Status:                 domain.TicketStatusOpen,
		Priority:               domain.TicketPriorityMedium,
		Category:               string(schedule.MaintenanceType),
		ReportedBy:             userID,
		InventoryAction:        schedule.InventoryAction,
		ApplyPending:           schedule.InventoryAction.Applies(),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func (s *MaintenanceService) event(typ domain.EventType, itemID, scheduleID, ticketID string, data map[string]any) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		ItemID:     itemID,
		ScheduleID: scheduleID,
		TicketID:   ticketID,
		Data:       data,
		OccurredAt: s.clock.now().UTC(),
	}
}

// publish runs after commit; a broker failure never undoes a committed change.
func (s *MaintenanceService) publish(ctx context.Context, events ...domain.Event) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.log.Error("publish events failed", "count", len(events), "type", events[0].Type, "err", err)
	}
}

func (s *MaintenanceService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateStats(ctx); err != nil {
		s.log.Warn("invalidate stats cache failed", "err", err)
	}
}

// isPrecheckFailure matches the apply failures raised before any write.
func isPrecheckFailure(err error) bool {
	return errors.Is(err, domain.ErrInsufficientQuantity) || errors.Is(err, domain.ErrNotFound)
}

func validateScheduleInput(in CreateScheduleInput) error {
	switch {
	case in.ItemID == "":
		return fmt.Errorf("%w: item id is required", domain.ErrValidation)
	case !in.MaintenanceType.Valid():
		return fmt.Errorf("%w: unknown maintenance type %q", domain.ErrValidation, in.MaintenanceType)
	case !in.InventoryAction.Valid():
		return fmt.Errorf("%w: unknown inventory action %q", domain.ErrValidation, in.InventoryAction)
	case in.QuantityAffected < 1:
		return fmt.Errorf("%w: quantity affected must be >= 1", domain.ErrValidation)
	case in.ScheduledDate.IsZero():
		return fmt.Errorf("%w: scheduled date is required", domain.ErrValidation)
	}
	return nil
}

func ptrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
