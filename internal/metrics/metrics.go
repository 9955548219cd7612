// Package metrics holds the prometheus collectors of the dispatch service.
package metrics

import (
	"dispatch/internal/core/application/dispatch"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dispatch"

// Dispatch records assignment outcomes. It implements dispatch.Recorder.
type Dispatch struct {
	assignments         *prometheus.CounterVec
	noDriver            prometheus.Counter
	acceptConflicts     prometheus.Counter
	notificationFailure prometheus.Counter
	overdue             prometheus.Gauge
}

var _ dispatch.Recorder = (*Dispatch)(nil)

// NewDispatch creates the collectors and registers them with reg.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	d := &Dispatch{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Total number of drivers bound to deliveries, by mode",
		}, []string{"mode"}),
		noDriver: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_driver_available_total",
			Help:      "Total number of assignment attempts that found no eligible driver",
		}),
		acceptConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_conflicts_total",
			Help:      "Total number of acceptances lost to a concurrent claim",
		}),
		notificationFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Total number of driver notifications that could not be published",
		}),
		overdue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_deliveries",
			Help:      "Number of moving deliveries past their estimated completion at the last sweep",
		}),
	}

	reg.MustRegister(d.assignments, d.noDriver, d.acceptConflicts, d.notificationFailure, d.overdue)
	return d
}

func (d *Dispatch) Assigned(mode dispatch.Mode) {
	d.assignments.WithLabelValues(string(mode)).Inc()
}

func (d *Dispatch) NoDriverAvailable() {
	d.noDriver.Inc()
}

func (d *Dispatch) AcceptConflict() {
	d.acceptConflicts.Inc()
}

func (d *Dispatch) NotificationFailed() {
	d.notificationFailure.Inc()
}

func (d *Dispatch) Overdue(count int) {
	d.overdue.Set(float64(count))
}

// HTTP counts and times requests by route pattern.
type HTTP struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(h.Requests, h.Duration)
	return h
}
