// Package metrics owns the Prometheus registry exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	Registry *prometheus.Registry

	Updates           *prometheus.CounterVec
	ReviewsSubmitted  prometheus.Counter
	ReviewsPublished  prometheus.Counter
	BroadcastChunks   prometheus.Counter
	BroadcastFailures prometheus.Counter
	OrdersCreated     prometheus.Counter
	AutoReplies       prometheus.Counter
	Welcomes          prometheus.Counter
	PermissionDenied  *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Telegram updates received, by kind",
		}, []string{"kind"}),
		ReviewsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_reviews_submitted_total",
			Help: "Reviews stored by customers",
		}),
		ReviewsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_reviews_published_total",
			Help: "Reviews published to the public channel",
		}),
		BroadcastChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_broadcast_chunks_total",
			Help: "Review broadcast messages sent",
		}),
		BroadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_broadcast_failures_total",
			Help: "Review broadcasts aborted by a send error",
		}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_orders_created_total",
			Help: "Orders created from the CRM panel",
		}),
		AutoReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_auto_replies_total",
			Help: "Keyword auto-responder replies",
		}),
		Welcomes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_welcome_messages_total",
			Help: "Welcome messages posted for new members",
		}),
		PermissionDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_permission_denied_total",
			Help: "Privileged commands rejected, by command",
		}, []string{"command"}),
	}

	registry.MustRegister(
		m.Updates,
		m.ReviewsSubmitted,
		m.ReviewsPublished,
		m.BroadcastChunks,
		m.BroadcastFailures,
		m.OrdersCreated,
		m.AutoReplies,
		m.Welcomes,
		m.PermissionDenied,
	)
	return m
}
