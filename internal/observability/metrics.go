package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetup_http_requests_total",
			Help: "Total number of HTTP requests processed by the meetup service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetup_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	meetupTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetup_transitions_total",
			Help: "Total number of meetup state transitions by resulting status.",
		},
		[]string{"status"},
	)
	sweepRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetup_sweep_runs_total",
			Help: "Total number of expiry sweep runs.",
		},
	)
	sweepExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetup_sweep_expired_total",
			Help: "Total number of meetups moved to expired by the sweeper.",
		},
	)
	unreadAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetup_unread_alerts_total",
			Help: "Total number of unread-increase alerts emitted.",
		},
	)
	notifyDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetup_notify_dropped_total",
			Help: "Total number of change-feed events dropped on slow subscribers.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetup_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		meetupTransitionsTotal,
		sweepRunsTotal,
		sweepExpiredTotal,
		unreadAlertsTotal,
		notifyDroppedTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncMeetupTransition(status string) {
	meetupTransitionsTotal.WithLabelValues(status).Inc()
}

func IncSweepRun() {
	sweepRunsTotal.Inc()
}

func AddSweepExpired(n int) {
	sweepExpiredTotal.Add(float64(n))
}

func IncUnreadAlert() {
	unreadAlertsTotal.Inc()
}

func IncNotifyDropped() {
	notifyDroppedTotal.Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
