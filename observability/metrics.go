package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatcore_messages_sent_total",
			Help: "Total number of messages written to the store, by payload type.",
		},
		[]string{"type"},
	)
	projectorRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatcore_projector_rebuilds_total",
			Help: "Total number of full message-list recomputations, by view.",
		},
		[]string{"view"},
	)
	activeSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatcore_active_subscriptions",
			Help: "Number of live projector subscriptions.",
		},
	)
	mediaSagaTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatcore_media_saga_total",
			Help: "Total number of media-send sagas, by outcome.",
		},
		[]string{"outcome"},
	)
	directoryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatcore_directory_cache_total",
			Help: "Total number of directory cache lookups, by result.",
		},
		[]string{"result"},
	)
	eventPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatcore_event_publish_errors_total",
			Help: "Total number of domain-event publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		messagesSentTotal,
		projectorRebuildsTotal,
		activeSubscriptions,
		mediaSagaTotal,
		directoryCacheTotal,
		eventPublishErrorsTotal,
	)
}

func IncMessageSent(msgType string) {
	messagesSentTotal.WithLabelValues(msgType).Inc()
}

func IncProjectorRebuild(view string) {
	projectorRebuildsTotal.WithLabelValues(view).Inc()
}

func IncActiveSubscriptions() {
	activeSubscriptions.Inc()
}

func DecActiveSubscriptions() {
	activeSubscriptions.Dec()
}

func IncSagaOutcome(outcome string) {
	mediaSagaTotal.WithLabelValues(outcome).Inc()
}

func IncDirectoryCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	directoryCacheTotal.WithLabelValues(result).Inc()
}

func IncEventPublishError() {
	eventPublishErrorsTotal.Inc()
}
