package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the front desk service.
type Metrics struct {
	CheckIns          prometheus.Counter
	CheckInFailures   prometheus.Counter
	CheckOuts         prometheus.Counter
	TodayAttendance   prometheus.Gauge
	Enrollments       prometheus.Counter
	EnrollmentFailures prometheus.Counter
	// OrphanedEnrollments counts members created whose initial payment
	// write failed. These need manual reconciliation.
	OrphanedEnrollments prometheus.Counter
	StoreRequestLatency *prometheus.HistogramVec
}

// New creates all metrics and registers them against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CheckIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_checkins_total",
			Help: "Total number of confirmed member check-ins",
		}),
		CheckInFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_checkin_failures_total",
			Help: "Total number of check-in attempts rejected or failed remotely",
		}),
		CheckOuts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_checkouts_total",
			Help: "Total number of confirmed check-in removals",
		}),
		TodayAttendance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gymdesk_today_attendance",
			Help: "Current number of members checked in today",
		}),
		Enrollments: factory.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_enrollments_total",
			Help: "Total number of members registered",
		}),
		EnrollmentFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_enrollment_failures_total",
			Help: "Total number of registrations aborted before the member was created",
		}),
		OrphanedEnrollments: factory.NewCounter(prometheus.CounterOpts{
			Name: "gymdesk_orphaned_enrollments_total",
			Help: "Members created whose initial payment insert failed",
		}),
		StoreRequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gymdesk_store_request_seconds",
			Help:    "Latency of remote record store requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection", "operation"}),
	}
}
