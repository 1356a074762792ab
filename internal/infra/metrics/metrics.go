package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "maintenance"

type Metrics struct {
	registry *prometheus.Registry

	Promotions         *prometheus.CounterVec
	InventoryApplies   *prometheus.CounterVec
	InventoryRestores  *prometheus.CounterVec
	QuantityMoved      *prometheus.CounterVec
	RemindersSent      *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		Promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_total",
			Help:      "Schedule to ticket promotions by outcome.",
		}, []string{"outcome"}),
		InventoryApplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_applies_total",
			Help:      "Inventory actions applied by action.",
		}, []string{"action"}),
		InventoryRestores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_restores_total",
			Help:      "Inventory actions restored by action.",
		}, []string{"action"}),
		QuantityMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_quantity_moved_total",
			Help:      "Units moved by inventory actions.",
		}, []string{"action", "direction"}),
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_dispatched_total",
			Help:      "Reminders dispatched by threshold in days.",
		}, []string{"days"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	registry.MustRegister(
		m.Promotions, m.InventoryApplies, m.InventoryRestores, m.QuantityMoved,
		m.RemindersSent, m.HTTPRequestsTotal, m.HTTPRequestSeconds,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) PromotionOutcome(outcome string) {
	m.Promotions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) InventoryApplied(action string, quantity int) {
	m.InventoryApplies.WithLabelValues(action).Inc()
	m.QuantityMoved.WithLabelValues(action, "apply").Add(float64(quantity))
}

func (m *Metrics) InventoryRestored(action string, quantity int) {
	m.InventoryRestores.WithLabelValues(action).Inc()
	m.QuantityMoved.WithLabelValues(action, "restore").Add(float64(quantity))
}

func (m *Metrics) ReminderDispatched(days int) {
	m.RemindersSent.WithLabelValues(strconv.Itoa(days)).Inc()
}
