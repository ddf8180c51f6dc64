package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activities_service",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity written to the store.",
	})

	activitiesCreatedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "api",
		Name:      "activities_created_total",
		Help:      "Number of activities created, labeled by status and late flag.",
	}, []string{"status", "is_late"})

	listResultsHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activities_service",
		Subsystem: "api",
		Name:      "list_results",
		Help:      "Number of activities returned per list request.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activities_service",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route, method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})

	outboxDeliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Activity events published to Kafka, labeled by event type.",
	}, []string{"event_type"})

	outboxDeadLetteredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "outbox",
		Name:      "events_dead_lettered_total",
		Help:      "Activity events that failed to publish and were written to the DLQ.",
	}, []string{"event_type", "topic"})

	outboxBatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activities_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent delivering and marking one claimed outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqEntriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled, labeled by event type and outcome (requeued, retry_scheduled, quarantined).",
	}, []string{"event_type", "outcome"})

	dlqBacklogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activities_service",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "DLQ entries still waiting for a retry.",
	})

	eventsConsumedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "events_recorded_total",
		Help:      "Activity events written to the audit log, labeled by topic and event type.",
	}, []string{"topic", "event_type"})

	consumerErrorsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "errors_total",
		Help:      "Consumer failures, labeled by topic, event type and stage (decode or handle).",
	}, []string{"topic", "event_type", "stage"})

	lastEventGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "activities_service",
		Subsystem: "consumer",
		Name:      "last_event_timestamp_seconds",
		Help:      "Kafka timestamp of the most recent recorded event per topic.",
	}, []string{"topic"})
)

// DLQ outcomes.
const (
	DLQRequeued       = "requeued"
	DLQRetryScheduled = "retry_scheduled"
	DLQQuarantined    = "quarantined"
)

// Consumer failure stages.
const (
	StageDecode = "decode"
	StageHandle = "handle"
)

func init() {
	prometheus.MustRegister(
		activityPersistGauge, activitiesCreatedCounter, listResultsHistogram, requestDuration,
		outboxDeliveredCounter, outboxDeadLetteredCounter, outboxBatchDuration,
		dlqEntriesCounter, dlqBacklogGauge,
		eventsConsumedCounter, consumerErrorsCounter, lastEventGauge,
	)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordActivityCreated counts a created activity.
func RecordActivityCreated(status string, isLate bool) {
	activitiesCreatedCounter.WithLabelValues(status, strconv.FormatBool(isLate)).Inc()
}

// RecordListResults observes the size of a list response.
func RecordListResults(n int) {
	listResultsHistogram.Observe(float64(n))
}

// ObserveRequest records the latency of one HTTP request.
func ObserveRequest(route, method string, code int, elapsed time.Duration) {
	requestDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// RecordOutboxDelivered counts an event published to Kafka.
func RecordOutboxDelivered(eventType string) {
	outboxDeliveredCounter.WithLabelValues(eventType).Inc()
}

// RecordOutboxDeadLettered counts an event moved to the DLQ.
func RecordOutboxDeadLettered(eventType, topic string) {
	outboxDeadLetteredCounter.WithLabelValues(eventType, topic).Inc()
}

// ObserveOutboxBatch records how long one outbox batch took.
func ObserveOutboxBatch(elapsed time.Duration) {
	outboxBatchDuration.Observe(elapsed.Seconds())
}

// RecordDLQOutcome counts a handled DLQ entry.
func RecordDLQOutcome(eventType, outcome string) {
	dlqEntriesCounter.WithLabelValues(eventType, outcome).Inc()
}

// SetDLQBacklog publishes the number of entries awaiting retry.
func SetDLQBacklog(n int) {
	dlqBacklogGauge.Set(float64(n))
}

// RecordEventConsumed counts an audited event and moves the per-topic watermark.
func RecordEventConsumed(topic, eventType string, ts time.Time) {
	eventsConsumedCounter.WithLabelValues(topic, eventType).Inc()
	if !ts.IsZero() {
		lastEventGauge.WithLabelValues(topic).Set(float64(ts.Unix()))
	}
}

// RecordConsumerError counts a record that failed at stage.
func RecordConsumerError(topic, eventType, stage string) {
	consumerErrorsCounter.WithLabelValues(topic, eventType, stage).Inc()
}
