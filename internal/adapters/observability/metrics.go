package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "activitylog"

// Mutation results recorded on activity_mutations_total.
const (
	ResultOK      = "ok"
	ResultDenied  = "denied"
	ResultExpired = "expired"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var (
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "SQL call latency by database and operation.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"db", "op"})

	mutationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activity",
		Name:      "mutations_total",
		Help:      "Activity create/update/delete/comment attempts by outcome.",
	}, []string{"action", "result"})

	skippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "weekly_log",
		Name:      "skipped_records_total",
		Help:      "Activity records left out of weekly logs because they could not be grouped.",
	})

	outboxCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "deliveries_total",
		Help:      "Outbox delivery attempts by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(httpDuration, queryDuration, mutationCounter, skippedCounter, outboxCounter)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one HTTP request.
func ObserveRequest(method string, status int, d time.Duration) {
	httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveQuery records one SQL call against the named database.
func ObserveQuery(db, op string, d time.Duration) {
	queryDuration.WithLabelValues(db, op).Observe(d.Seconds())
}

// RecordMutation counts an activity mutation attempt.
func RecordMutation(action, result string) {
	mutationCounter.WithLabelValues(action, result).Inc()
}

// RecordSkipped counts records the weekly log grouper could not place.
func RecordSkipped(n int) {
	if n <= 0 {
		return
	}
	skippedCounter.Add(float64(n))
}

// RecordOutboxDelivery counts an outbox delivery attempt.
func RecordOutboxDelivery(result string) {
	outboxCounter.WithLabelValues(result).Inc()
}
