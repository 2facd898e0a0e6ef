package services

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Name:      "messages_received_total",
			Help:      "Inbound messages handed to the router.",
		},
	)

	routedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Name:      "routed_total",
			Help:      "Inbound messages by the path that answered them.",
		},
		[]string{"route"},
	)

	mealsLoggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Name:      "meals_logged_total",
			Help:      "Meal entries persisted.",
		},
	)

	intakesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Name:      "intakes_completed_total",
			Help:      "Conversations that finished collecting the profile.",
		},
	)

	llmFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Name:      "llm_failures_total",
			Help:      "Language-model calls that failed and fell back.",
		},
		[]string{"operation"},
	)

	deliveryFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Name:      "delivery_failures_total",
			Help:      "Outbound message parts that could not be delivered.",
		},
	)

	replyQueueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zubi",
			Subsystem: "reply_worker",
			Name:      "queue_full_total",
			Help:      "Enqueue attempts rejected because the shard queue was full.",
		},
		[]string{"shard"},
	)

	replyQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "zubi",
			Subsystem: "reply_worker",
			Name:      "queue_depth",
			Help:      "Current depth of each shard queue.",
		},
		[]string{"shard"},
	)

	replyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zubi",
			Subsystem: "reply_worker",
			Name:      "run_duration_seconds",
			Help:      "Time to route and deliver one inbound message.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)
)

func shardLabel(i int) string { return strconv.Itoa(i) }
