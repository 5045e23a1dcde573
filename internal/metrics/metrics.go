package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversationsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablebot_conversations_started_total",
			Help: "Conversations started, by channel",
		},
		[]string{"channel"},
	)

	ConversationsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablebot_conversations_ended_total",
			Help: "Conversations that reached a terminal state, by outcome",
		},
		[]string{"outcome"},
	)

	Turns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablebot_turns_total",
			Help: "User utterances handled, by channel",
		},
		[]string{"channel"},
	)

	Reprompts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablebot_reprompts_total",
			Help: "Validation failures that re-entered the same step",
		},
		[]string{"state"},
	)

	SlotServiceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablebot_slot_service_requests_total",
			Help: "Requests made to the slot service",
		},
		[]string{"op", "result"},
	)

	SlotServiceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablebot_slot_service_request_duration_seconds",
			Help:    "Slot service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func RecordConversationStarted(channel string) {
	ConversationsStarted.WithLabelValues(channel).Inc()
}

func RecordConversationEnded(outcome string) {
	ConversationsEnded.WithLabelValues(outcome).Inc()
}

func RecordTurn(channel string) {
	Turns.WithLabelValues(channel).Inc()
}

func RecordReprompt(state string) {
	Reprompts.WithLabelValues(state).Inc()
}

func RecordSlotServiceCall(op, result string, seconds float64) {
	SlotServiceRequests.WithLabelValues(op, result).Inc()
	SlotServiceDuration.WithLabelValues(op).Observe(seconds)
}
