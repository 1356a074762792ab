package domain

import (
	"fmt"
	"strings"
	"time"
)

type MaintenanceType string

const (
	MaintenanceTypeCalibration MaintenanceType = "CALIBRATION"
	MaintenanceTypeInspection  MaintenanceType = "INSPECTION"
	MaintenanceTypeServicing   MaintenanceType = "SERVICING"
	MaintenanceTypeReplacement MaintenanceType = "REPLACEMENT"
	MaintenanceTypeOther       MaintenanceType = "OTHER"
)

func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenanceTypeCalibration, MaintenanceTypeInspection, MaintenanceTypeServicing,
		MaintenanceTypeReplacement, MaintenanceTypeOther:
		return true
	}
	return false
}

// Label renders the type for ticket titles: "CALIBRATION" -> "Calibration".
func (t MaintenanceType) Label() string {
	s := strings.ToLower(string(t))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type InventoryAction string

const (
	InventoryActionDeduct     InventoryAction = "DEDUCT"
	InventoryActionStatusOnly InventoryAction = "STATUS_ONLY"
	InventoryActionNone       InventoryAction = "NONE"
)

func (a InventoryAction) Valid() bool {
	switch a {
	case InventoryActionDeduct, InventoryActionStatusOnly, InventoryActionNone:
		return true
	}
	return false
}

// Applies reports whether the action touches stock at all. An empty action
// is treated like NONE.
func (a InventoryAction) Applies() bool {
	return a == InventoryActionDeduct || a == InventoryActionStatusOnly
}

// Reminder thresholds in days before the scheduled date.
const (
	Reminder14Days = 14
	Reminder7Days  = 7
	Reminder1Day   = 1
)

var ReminderThresholds = []int{Reminder14Days, Reminder7Days, Reminder1Day}

type ScheduledMaintenance struct {
	ID               string
	ItemID           string
	MaintenanceType  MaintenanceType
	Description      *string
	ScheduledDate    time.Time
	IsCompleted      bool
	CompletedDate    *time.Time
	CompletedBy      *string
	TicketID         *string
	InventoryAction  InventoryAction
	QuantityAffected int
	Reminder14Sent   bool
	Reminder7Sent    bool
	Reminder1Sent    bool
	CreatedBy        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *ScheduledMaintenance) Promoted() bool {
	return s.TicketID != nil && *s.TicketID != ""
}

func (s *ScheduledMaintenance) NeedsReminder() bool {
	return !s.Reminder14Sent || !s.Reminder7Sent || !s.Reminder1Sent
}

func (s *ScheduledMaintenance) ReminderSent(days int) (bool, error) {
	switch days {
	case Reminder14Days:
		return s.Reminder14Sent, nil
	case Reminder7Days:
		return s.Reminder7Sent, nil
	case Reminder1Day:
		return s.Reminder1Sent, nil
	}
	return false, fmt.Errorf("%w: unsupported reminder threshold %d", ErrValidation, days)
}

func (s *ScheduledMaintenance) SetReminderSent(days int) error {
	switch days {
	case Reminder14Days:
		s.Reminder14Sent = true
	case Reminder7Days:
		s.Reminder7Sent = true
	case Reminder1Day:
		s.Reminder1Sent = true
	default:
		return fmt.Errorf("%w: unsupported reminder threshold %d", ErrValidation, days)
	}
	return nil
}

// SchedulePatch carries the fields an update may change; nil means keep.
type SchedulePatch struct {
	ItemID           *string
	MaintenanceType  *MaintenanceType
	Description      *string
	ScheduledDate    *time.Time
	InventoryAction  *InventoryAction
	QuantityAffected *int
}

// Apply merges the patch into s after validating it.
func (p SchedulePatch) Apply(s *ScheduledMaintenance) error {
	if p.MaintenanceType != nil && !p.MaintenanceType.Valid() {
		return fmt.Errorf("%w: unknown maintenance type %q", ErrValidation, *p.MaintenanceType)
	}
	if p.InventoryAction != nil && !p.InventoryAction.Valid() {
		return fmt.Errorf("%w: unknown inventory action %q", ErrValidation, *p.InventoryAction)
	}
	if p.QuantityAffected != nil && *p.QuantityAffected < 1 {
		return fmt.Errorf("%w: quantity affected must be >= 1", ErrValidation)
	}
	if p.ItemID != nil {
		s.ItemID = *p.ItemID
	}
	if p.MaintenanceType != nil {
		s.MaintenanceType = *p.MaintenanceType
	}
	if p.Description != nil {
		d := *p.Description
		s.Description = &d
	}
	if p.ScheduledDate != nil {
		s.ScheduledDate = *p.ScheduledDate
	}
	if p.InventoryAction != nil {
		s.InventoryAction = *p.InventoryAction
	}
	if p.QuantityAffected != nil {
		s.QuantityAffected = *p.QuantityAffected
	}
	return nil
}

// ChangesInventoryTerms reports whether applying p would move s to another
// item or alter the inventory action or quantity it carries.
func (p SchedulePatch) ChangesInventoryTerms(s *ScheduledMaintenance) bool {
	return (p.ItemID != nil && *p.ItemID != s.ItemID) ||
		(p.InventoryAction != nil && *p.InventoryAction != s.InventoryAction) ||
		(p.QuantityAffected != nil && *p.QuantityAffected != s.QuantityAffected)
}

type ScheduleFilter struct {
	ItemID          *string
	IsCompleted     *bool
	MaintenanceType *MaintenanceType
	FromDate        *time.Time
	ToDate          *time.Time
	CompletedSince  *time.Time
	// NeedsReminder restricts to schedules with at least one reminder flag unset.
	NeedsReminder bool
}

// Matches is the in-memory equivalent of the SQL filter.
func (f ScheduleFilter) Matches(s *ScheduledMaintenance) bool {
	if f.ItemID != nil && s.ItemID != *f.ItemID {
		return false
	}
	if f.IsCompleted != nil && s.IsCompleted != *f.IsCompleted {
		return false
	}
	if f.MaintenanceType != nil && s.MaintenanceType != *f.MaintenanceType {
		return false
	}
	if f.FromDate != nil && s.ScheduledDate.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && s.ScheduledDate.After(*f.ToDate) {
		return false
	}
	if f.CompletedSince != nil && (s.CompletedDate == nil || s.CompletedDate.Before(*f.CompletedSince)) {
		return false
	}
	if f.NeedsReminder && !s.NeedsReminder() {
		return false
	}
	return true
}

type ScheduleStats struct {
	Total              int `json:"total"`
	Upcoming           int `json:"upcoming"`
	Overdue            int `json:"overdue"`
	CompletedThisMonth int `json:"completedThisMonth"`
}
