package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/maintenance-engine/internal/adapter/storage"
	"github.com/rl1809/maintenance-engine/internal/core/domain"
	"github.com/rl1809/maintenance-engine/internal/core/service"
	"github.com/rl1809/maintenance-engine/internal/infra/metrics"
)

type testServer struct {
	db      *storage.MemoryAdapter
	engine  *service.MaintenanceService
	queries *service.QueryService
	metrics *metrics.Metrics
	router  *mux.Router
}

func newTestServer(t *testing.T, policy service.PromotionPolicy) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := service.Clock{
		Now:      func() time.Time { return time.Date(2024, 4, 15, 9, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	db := storage.NewMemoryAdapter()
	cache := storage.NewMemoryCache(time.Minute)
	m := metrics.New()
	engine := service.NewMaintenanceService(db, cache, nil, service.Options{
		Clock:           clock,
		PromotionPolicy: policy,
		Logger:          log,
		Metrics:         m,
	})
	queries := service.NewQueryService(db, cache, clock, log)

	router := mux.NewRouter()
	router.Use(Instrument(m, log))
	NewHTTPHandler(engine, queries, log).RegisterRoutes(router)

	for _, item := range []domain.InventoryItem{
		{ID: "scale", Title: "Bench Scale", Quantity: 10, MinimumStock: 5},
		{ID: "probe", Title: "Probe", Quantity: 2, MinimumStock: 1},
	} {
		require.NoError(t, db.Items().CreateItem(context.Background(), item))
	}
	return &testServer{db: db, engine: engine, queries: queries, metrics: m, router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(UserHeader, "user-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func (s *testServer) createSchedule(t *testing.T, body map[string]any) ScheduleResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/schedules", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[ScheduleResponse](t, rec)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSchedule(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)

	created := s.createSchedule(t, map[string]any{
		"itemId":          "scale",
		"maintenanceType": "CALIBRATION",
		"scheduledDate":   "2024-05-01",
	})
	assert.Equal(t, "2024-05-01", created.ScheduledDate)
	assert.Equal(t, "NONE", created.InventoryAction)
	assert.Equal(t, 1, created.QuantityAffected)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, "user-1", *created.CreatedBy)

	rec := s.do(t, http.MethodGet, "/api/items/scale", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	item := decodeBody[ItemResponse](t, rec)
	require.NotNil(t, item.NextMaintenanceDate)
	assert.Equal(t, "2024-05-01", *item.NextMaintenanceDate)
}

func TestCreateSchedule_Errors(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)

	tests := []struct {
		name string
		body map[string]any
		code int
	}{
		{"unknown type", map[string]any{"itemId": "scale", "maintenanceType": "PAINT", "scheduledDate": "2024-05-01"}, http.StatusBadRequest},
		{"bad date", map[string]any{"itemId": "scale", "maintenanceType": "OTHER", "scheduledDate": "May 1st"}, http.StatusBadRequest},
		{"zero quantity is default", map[string]any{"itemId": "scale", "maintenanceType": "OTHER", "scheduledDate": "2024-05-01", "quantityAffected": 0}, http.StatusCreated},
		{"negative quantity", map[string]any{"itemId": "scale", "maintenanceType": "OTHER", "scheduledDate": "2024-05-01", "quantityAffected": -2}, http.StatusBadRequest},
		{"missing item", map[string]any{"itemId": "nope", "maintenanceType": "OTHER", "scheduledDate": "2024-05-01"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/schedules", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/schedules", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromoteFlow(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)

	schedule := s.createSchedule(t, map[string]any{
		"itemId":           "scale",
		"maintenanceType":  "SERVICING",
		"scheduledDate":    "2024-05-01",
		"inventoryAction":  "DEDUCT",
		"quantityAffected": 6,
	})

	rec := s.do(t, http.MethodPost, "/api/schedules/"+schedule.ID+"/promote", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	promotion := decodeBody[PromotionResponse](t, rec)
	assert.Equal(t, "promoted", promotion.Outcome)
	require.NotNil(t, promotion.Ticket)
	assert.Equal(t, "Servicing - Bench Scale", promotion.Ticket.Title)
	assert.Equal(t, 6, promotion.Ticket.QuantityDeducted)

	rec = s.do(t, http.MethodPost, "/api/schedules/"+schedule.ID+"/promote", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/items/scale", nil)
	item := decodeBody[ItemResponse](t, rec)
	assert.Equal(t, 4, item.Quantity)
	assert.Equal(t, "LOW_STOCK", item.Status)

	rec = s.do(t, http.MethodPost, "/api/tickets/"+promotion.Ticket.ID+"/apply", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/tickets/"+promotion.Ticket.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ticket := decodeBody[TicketResponse](t, rec)
	assert.Equal(t, "RESOLVED", ticket.Status)
	assert.True(t, ticket.InventoryRestored)

	rec = s.do(t, http.MethodPost, "/api/tickets/"+promotion.Ticket.ID+"/restore", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/items/scale", nil)
	item = decodeBody[ItemResponse](t, rec)
	assert.Equal(t, 10, item.Quantity)
	assert.Equal(t, "AVAILABLE", item.Status)
}

func TestPromote_Insufficient(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)
	schedule := s.createSchedule(t, map[string]any{
		"itemId":           "probe",
		"maintenanceType":  "REPLACEMENT",
		"scheduledDate":    "2024-05-01",
		"inventoryAction":  "DEDUCT",
		"quantityAffected": 5,
	})

	rec := s.do(t, http.MethodPost, "/api/schedules/"+schedule.ID+"/promote", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Promotions.WithLabelValues("failed")))
}

func TestPromote_KeepPending(t *testing.T) {
	s := newTestServer(t, service.PromotionKeepPending)
	schedule := s.createSchedule(t, map[string]any{
		"itemId":           "probe",
		"maintenanceType":  "REPLACEMENT",
		"scheduledDate":    "2024-05-01",
		"inventoryAction":  "DEDUCT",
		"quantityAffected": 5,
	})

	rec := s.do(t, http.MethodPost, "/api/schedules/"+schedule.ID+"/promote", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	promotion := decodeBody[PromotionResponse](t, rec)
	assert.Equal(t, "pending_apply", promotion.Outcome)
	assert.NotEmpty(t, promotion.Reason)
	require.NotNil(t, promotion.Ticket)
	assert.True(t, promotion.Ticket.ApplyPending)

	rec = s.do(t, http.MethodPost, "/api/tickets/"+promotion.Ticket.ID+"/apply", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestScheduleLifecycle(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)
	schedule := s.createSchedule(t, map[string]any{
		"itemId":          "scale",
		"maintenanceType": "INSPECTION",
		"scheduledDate":   "2024-04-25",
	})
	base := "/api/schedules/" + schedule.ID

	rec := s.do(t, http.MethodPatch, base, map[string]any{"scheduledDate": "2024-04-28", "description": "check seals"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ScheduleResponse](t, rec)
	assert.Equal(t, "2024-04-28", updated.ScheduledDate)

	rec = s.do(t, http.MethodGet, "/api/schedules/reminders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScheduleResponse](t, rec), 1)

	rec = s.do(t, http.MethodPost, base+"/reminders/14", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[ScheduleResponse](t, rec).Reminder14Sent)

	rec = s.do(t, http.MethodPost, base+"/reminders/3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[ScheduleResponse](t, rec).IsCompleted)

	rec = s.do(t, http.MethodPost, base+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, base, map[string]any{"description": "too late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/schedules/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[domain.ScheduleStats](t, rec)
	assert.Equal(t, domain.ScheduleStats{Total: 1, CompletedThisMonth: 1}, stats)

	rec = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListSchedules(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)
	s.createSchedule(t, map[string]any{"itemId": "scale", "maintenanceType": "OTHER", "scheduledDate": "2024-06-01"})
	s.createSchedule(t, map[string]any{"itemId": "probe", "maintenanceType": "OTHER", "scheduledDate": "2024-04-10"})
	s.createSchedule(t, map[string]any{"itemId": "scale", "maintenanceType": "CALIBRATION", "scheduledDate": "2024-04-20"})

	rec := s.do(t, http.MethodGet, "/api/schedules?itemId=scale", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]ScheduleResponse](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-04-20", list[0].ScheduledDate)

	rec = s.do(t, http.MethodGet, "/api/schedules?maintenanceType=OTHER&fromDate=2024-05-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScheduleResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/schedules/overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScheduleResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/schedules/upcoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ScheduleResponse](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/api/schedules?isCompleted=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotFoundLookups(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)
	for _, path := range []string{"/api/items/nope", "/api/schedules/nope", "/api/tickets/nope"} {
		rec := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.False(t, decodeBody[ErrorResponse](t, rec).Success)
	}
}

func TestInstrumentUsesRouteTemplate(t *testing.T) {
	s := newTestServer(t, service.PromotionAtomic)
	s.do(t, http.MethodGet, "/api/items/scale", nil)
	s.do(t, http.MethodGet, "/api/items/probe", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.HTTPRequestsTotal.WithLabelValues("/api/items/{id}", http.MethodGet, "200")))
}
