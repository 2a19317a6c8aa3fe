// Package metrics exposes the Prometheus counters the bot reports on. The
// collectors are registered on the default registry and served from the
// payment callback server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yadbot_dialogue_turns_total",
		Help: "Dialogue turns processed, by input kind.",
	}, []string{"kind"})

	ExtractionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yadbot_extraction_failures_total",
		Help: "LLM extraction failures, by class.",
	}, []string{"class"})

	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yadbot_notifications_sent_total",
		Help: "Reminder notifications delivered.",
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yadbot_notification_failures_total",
		Help: "Reminder notifications that failed to send.",
	})

	PaymentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yadbot_payments_settled_total",
		Help: "Payment attempts settled, by outcome.",
	}, []string{"status"})
)
