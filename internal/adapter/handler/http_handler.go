package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/rl1809/maintenance-engine/internal/adapter/storage"
	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/core/service"
)

// UserHeader carries the caller identity set by the upstream auth layer.
const UserHeader = "X-User-ID"

type HTTPHandler struct {
	engine   *service.MaintenanceService
	queries  *service.QueryService
	validate *validator.Validate
	log      *slog.Logger
}

func NewHTTPHandler(engine *service.MaintenanceService, queries *service.QueryService, log *slog.Logger) *HTTPHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPHandler{
		engine:   engine,
		queries:  queries,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)

	api.HandleFunc("/schedules", h.ListSchedules).Methods(http.MethodGet)
	api.HandleFunc("/schedules", h.CreateSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/upcoming", h.Upcoming).Methods(http.MethodGet)
	api.HandleFunc("/schedules/overdue", h.Overdue).Methods(http.MethodGet)
	api.HandleFunc("/schedules/reminders", h.NeedingReminders).Methods(http.MethodGet)
	api.HandleFunc("/schedules/stats", h.Stats).Methods(http.MethodGet)
	api.HandleFunc("/schedules/{id}", h.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/schedules/{id}", h.UpdateSchedule).Methods(http.MethodPatch, http.MethodPut)
	api.HandleFunc("/schedules/{id}", h.DeleteSchedule).Methods(http.MethodDelete)
	api.HandleFunc("/schedules/{id}/promote", h.PromoteSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}/complete", h.CompleteSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}/reminders/{days:[0-9]+}", h.MarkReminderSent).Methods(http.MethodPost)

	api.HandleFunc("/tickets/{id}", h.GetTicket).Methods(http.MethodGet)
	api.HandleFunc("/tickets/{id}/apply", h.ApplyInventory).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id}/restore", h.RestoreInventory).Methods(http.MethodPost)
	api.HandleFunc("/tickets/{id}/complete", h.CompleteTicket).Methods(http.MethodPost)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.queries.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *HTTPHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	filter, err := parseScheduleFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.queries.GetSchedules(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponses(list))
}

func (h *HTTPHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput(r.Header.Get(UserHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	schedule, err := h.engine.CreateSchedule(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleResponse(*schedule))
}

func (h *HTTPHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.queries.GetSchedule(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(*schedule))
}

func (h *HTTPHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req UpdateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	schedule, err := h.engine.UpdateSchedule(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(*schedule))
}

func (h *HTTPHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteSchedule(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	list, err := h.queries.GetUpcoming(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponses(list))
}

func (h *HTTPHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	list, err := h.queries.GetOverdue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponses(list))
}

func (h *HTTPHandler) NeedingReminders(w http.ResponseWriter, r *http.Request) {
	list, err := h.queries.GetSchedulesNeedingReminders(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponses(list))
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queries.GetStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) PromoteSchedule(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.CreateTicketFromSchedule(r.Context(), mux.Vars(r)["id"], r.Header.Get(UserHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Outcome == service.OutcomePendingApply {
		status = http.StatusAccepted
	}
	writeJSON(w, status, toPromotionResponse(result))
}

func (h *HTTPHandler) CompleteSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.engine.MarkCompleted(r.Context(), mux.Vars(r)["id"], r.Header.Get(UserHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(*schedule))
}

func (h *HTTPHandler) MarkReminderSent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	days, err := strconv.Atoi(vars["days"])
	if err != nil {
		h.writeError(w, r, domain.ErrValidation)
		return
	}
	schedule, err := h.engine.MarkReminderSent(r.Context(), vars["id"], days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(*schedule))
}

func (h *HTTPHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.queries.GetTicket(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketResponse(ticket))
}

func (h *HTTPHandler) ApplyInventory(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.engine.ApplyInventoryAction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketResponse(ticket))
}

func (h *HTTPHandler) RestoreInventory(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RestoreInventory(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *HTTPHandler) CompleteTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.engine.CompleteTicket(r.Context(), mux.Vars(r)["id"], r.Header.Get(UserHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketResponse(ticket))
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		message = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyPromoted),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, storage.ErrOptimisticLock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func parseScheduleFilter(r *http.Request) (domain.ScheduleFilter, error) {
	var f domain.ScheduleFilter
	q := r.URL.Query()
	if v := q.Get("itemId"); v != "" {
		f.ItemID = &v
	}
	if v := q.Get("isCompleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, domain.ErrValidation
		}
		f.IsCompleted = &b
	}
	if v := q.Get("maintenanceType"); v != "" {
		t := domain.MaintenanceType(v)
		if !t.Valid() {
			return f, domain.ErrValidation
		}
		f.MaintenanceType = &t
	}
	if v := q.Get("fromDate"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.FromDate = &d
	}
	if v := q.Get("toDate"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.ToDate = &d
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
