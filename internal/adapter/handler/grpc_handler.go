package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/maintenance-engine/internal/adapter/storage"
	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/core/service"
)

type GRPCHandler struct {
	engine  *service.MaintenanceService
	queries *service.QueryService
}

func NewGRPCHandler(engine *service.MaintenanceService, queries *service.QueryService) *GRPCHandler {
	return &GRPCHandler{engine: engine, queries: queries}
}

func (h *GRPCHandler) PromoteSchedule(ctx context.Context, req *PromoteRequest) (*PromotionResponse, error) {
	result, err := h.engine.CreateTicketFromSchedule(ctx, req.ScheduleID, req.UserID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := toPromotionResponse(result)
	return &resp, nil
}

func (h *GRPCHandler) MarkCompleted(ctx context.Context, req *CompleteScheduleRequest) (*ScheduleResponse, error) {
	schedule, err := h.engine.MarkCompleted(ctx, req.ScheduleID, req.UserID)
	if err != nil {
		return nil, grpcError(err)
	}
	resp := toScheduleResponse(*schedule)
	return &resp, nil
}

func (h *GRPCHandler) RestoreInventory(ctx context.Context, req *TicketRequest) (*RestoreResponse, error) {
	if err := h.engine.RestoreInventory(ctx, req.TicketID); err != nil {
		return nil, grpcError(err)
	}
	return &RestoreResponse{Success: true}, nil
}

func (h *GRPCHandler) CompleteTicket(ctx context.Context, req *TicketRequest) (*TicketResponse, error) {
	ticket, err := h.engine.CompleteTicket(ctx, req.TicketID, req.UserID)
	if err != nil {
		return nil, grpcError(err)
	}
	return toTicketResponse(ticket), nil
}

func (h *GRPCHandler) GetStats(ctx context.Context, _ *StatsRequest) (*StatsResponse, error) {
	stats, err := h.queries.GetStats(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return &StatsResponse{
		Total:              stats.Total,
		Upcoming:           stats.Upcoming,
		Overdue:            stats.Overdue,
		CompletedThisMonth: stats.CompletedThisMonth,
	}, nil
}

func grpcError(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, domain.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrAlreadyPromoted):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrInvalidState):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrInsufficientQuantity):
		code = codes.ResourceExhausted
	case errors.Is(err, storage.ErrOptimisticLock):
		code = codes.Aborted
	}
	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}
