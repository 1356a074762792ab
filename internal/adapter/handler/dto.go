package handler

import (
	"fmt"
	"time"

	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/core/service"
)

type CreateScheduleRequest struct {
	ItemID           string  `json:"itemId" validate:"required"`
	MaintenanceType  string  `json:"maintenanceType" validate:"required,oneof=CALIBRATION INSPECTION SERVICING REPLACEMENT OTHER"`
	Description      *string `json:"description"`
	ScheduledDate    string  `json:"scheduledDate" validate:"required"`
	InventoryAction  string  `json:"inventoryAction" validate:"omitempty,oneof=DEDUCT STATUS_ONLY NONE"`
	QuantityAffected int     `json:"quantityAffected" validate:"omitempty,min=1"`
}

type UpdateScheduleRequest struct {
	ItemID           *string `json:"itemId" validate:"omitempty,min=1"`
	MaintenanceType  *string `json:"maintenanceType" validate:"omitempty,oneof=CALIBRATION INSPECTION SERVICING REPLACEMENT OTHER"`
	Description      *string `json:"description"`
	ScheduledDate    *string `json:"scheduledDate"`
	InventoryAction  *string `json:"inventoryAction" validate:"omitempty,oneof=DEDUCT STATUS_ONLY NONE"`
	QuantityAffected *int    `json:"quantityAffected" validate:"omitempty,min=1"`
}

func (r UpdateScheduleRequest) toPatch() (domain.SchedulePatch, error) {
	patch := domain.SchedulePatch{
		ItemID:           r.ItemID,
		Description:      r.Description,
		QuantityAffected: r.QuantityAffected,
	}
	if r.MaintenanceType != nil {
		t := domain.MaintenanceType(*r.MaintenanceType)
		patch.MaintenanceType = &t
	}
	if r.InventoryAction != nil {
		a := domain.InventoryAction(*r.InventoryAction)
		patch.InventoryAction = &a
	}
	if r.ScheduledDate != nil {
		d, err := parseDate(*r.ScheduledDate)
		if err != nil {
			return patch, err
		}
		patch.ScheduledDate = &d
	}
	return patch, nil
}

func (r CreateScheduleRequest) toInput(createdBy string) (service.CreateScheduleInput, error) {
	date, err := parseDate(r.ScheduledDate)
	if err != nil {
		return service.CreateScheduleInput{}, err
	}
	in := service.CreateScheduleInput{
		ItemID:           r.ItemID,
		MaintenanceType:  domain.MaintenanceType(r.MaintenanceType),
		Description:      r.Description,
		ScheduledDate:    date,
		InventoryAction:  domain.InventoryAction(r.InventoryAction),
		QuantityAffected: r.QuantityAffected,
	}
	if createdBy != "" {
		in.CreatedBy = &createdBy
	}
	return in, nil
}

type ScheduleResponse struct {
	ID               string     `json:"id"`
	ItemID           string     `json:"itemId"`
	MaintenanceType  string     `json:"maintenanceType"`
	Description      *string    `json:"description,omitempty"`
	ScheduledDate    string     `json:"scheduledDate"`
	IsCompleted      bool       `json:"isCompleted"`
	CompletedDate    *time.Time `json:"completedDate,omitempty"`
	CompletedBy      *string    `json:"completedBy,omitempty"`
	TicketID         *string    `json:"ticketId,omitempty"`
	InventoryAction  string     `json:"inventoryAction"`
	QuantityAffected int        `json:"quantityAffected"`
	Reminder14Sent   bool       `json:"reminder14Sent"`
	Reminder7Sent    bool       `json:"reminder7Sent"`
	Reminder1Sent    bool       `json:"reminder1Sent"`
	CreatedBy        *string    `json:"createdBy,omitempty"`
}

func toScheduleResponse(s domain.ScheduledMaintenance) ScheduleResponse {
	return ScheduleResponse{
		ID:               s.ID,
		ItemID:           s.ItemID,
		MaintenanceType:  string(s.MaintenanceType),
		Description:      s.Description,
		ScheduledDate:    s.ScheduledDate.Format(time.DateOnly),
		IsCompleted:      s.IsCompleted,
		CompletedDate:    s.CompletedDate,
		CompletedBy:      s.CompletedBy,
		TicketID:         s.TicketID,
		InventoryAction:  string(s.InventoryAction),
		QuantityAffected: s.QuantityAffected,
		Reminder14Sent:   s.Reminder14Sent,
		Reminder7Sent:    s.Reminder7Sent,
		Reminder1Sent:    s.Reminder1Sent,
		CreatedBy:        s.CreatedBy,
	}
}

func toScheduleResponses(list []domain.ScheduledMaintenance) []ScheduleResponse {
	out := make([]ScheduleResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toScheduleResponse(s))
	}
	return out
}

type TicketResponse struct {
	ID                     string  `json:"id"`
	ItemID                 string  `json:"itemId"`
	ScheduledMaintenanceID *string `json:"scheduledMaintenanceId,omitempty"`
	Title                  string  `json:"title"`
	Description            string  `json:"description"`
	Status                 string  `json:"status"`
	Priority               string  `json:"priority"`
	Category               string  `json:"category"`
	ReportedBy             string  `json:"reportedBy"`
	InventoryAction        string  `json:"inventoryAction"`
	QuantityDeducted       int     `json:"quantityDeducted"`
	InventoryRestored      bool    `json:"inventoryRestored"`
	ApplyPending           bool    `json:"applyPending"`
}

func toTicketResponse(t *domain.MaintenanceTicket) *TicketResponse {
	if t == nil {
		return nil
	}
	return &TicketResponse{
		ID:                     t.ID,
		ItemID:                 t.ItemID,
		ScheduledMaintenanceID: t.ScheduledMaintenanceID,
		Title:                  t.Title,
		Description:            t.Description,
		Status:                 string(t.Status),
		Priority:               string(t.Priority),
		Category:               t.Category,
		ReportedBy:             t.ReportedBy,
		InventoryAction:        string(t.InventoryAction),
		QuantityDeducted:       t.QuantityDeducted,
		InventoryRestored:      t.InventoryRestored,
		ApplyPending:           t.ApplyPending,
	}
}

type ItemResponse struct {
	ID                    string  `json:"id"`
	Title                 string  `json:"title"`
	Quantity              int     `json:"quantity"`
	MinimumStock          int     `json:"minimumStock"`
	InMaintenanceQuantity int     `json:"inMaintenanceQuantity"`
	Status                string  `json:"status"`
	NextMaintenanceDate   *string `json:"nextMaintenanceDate"`
}

func toItemResponse(i *domain.InventoryItem) ItemResponse {
	resp := ItemResponse{
		ID:                    i.ID,
		Title:                 i.Title,
		Quantity:              i.Quantity,
		MinimumStock:          i.MinimumStock,
		InMaintenanceQuantity: i.InMaintenanceQuantity,
		Status:                string(i.Status),
	}
	if i.NextMaintenanceDate != nil {
		d := i.NextMaintenanceDate.Format(time.DateOnly)
		resp.NextMaintenanceDate = &d
	}
	return resp
}

type PromotionResponse struct {
	Outcome string          `json:"outcome"`
	Ticket  *TicketResponse `json:"ticket,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

func toPromotionResponse(r service.PromotionResult) PromotionResponse {
	resp := PromotionResponse{Outcome: string(r.Outcome), Ticket: toTicketResponse(r.Ticket)}
	if r.Reason != nil {
		resp.Reason = r.Reason.Error()
	}
	return resp
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrValidation, s)
	}
	return t, nil
}
