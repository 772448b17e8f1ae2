package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/coverage-engine/coverage"
)

// MetricsPath is where the Prometheus handler is mounted.
const MetricsPath = "/debug/prometheus"

// Metrics holds the service's collectors on a private registry, so handlers
// and tests can each own one.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.HistogramVec
	mutations   *prometheus.CounterVec
	cells       *prometheus.CounterVec
	gapWeeks    *prometheus.GaugeVec
	monitorRuns *prometheus.CounterVec
	rateLimited prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coverage",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "mutations_total",
			Help:      "Assignment mutations by operation and result.",
		}, []string{"op", "result"}),
		cells: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "cells_written_total",
			Help:      "Assignment cells written, by whether they set or cleared a project.",
		}, []string{"kind"}),
		gapWeeks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "coverage",
			Name:      "gap_weeks",
			Help:      "Weeks without sentinel coverage in the latest check of a schedule.",
		}, []string{"schedule_id"}),
		monitorRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "monitor_checks_total",
			Help:      "Coverage monitor schedule checks by result.",
		}, []string{"result"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "coverage",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeMutation(op string, items []coverage.BulkItem, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutations.WithLabelValues(op, result).Inc()
	if err != nil {
		return
	}
	for _, item := range items {
		kind := "set"
		if item.Project == coverage.NoProject {
			kind = "clear"
		}
		m.cells.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) observeReport(r coverage.Report) {
	m.gapWeeks.WithLabelValues(strconv.FormatInt(int64(r.ScheduleID), 10)).Set(float64(len(r.GapWeeks)))
}

func (m *Metrics) forgetSchedule(id coverage.ScheduleID) {
	m.gapWeeks.DeleteLabelValues(strconv.FormatInt(int64(id), 10))
}
