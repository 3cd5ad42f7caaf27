// Package metrics exposes the messaging core's Prometheus instrumentation.
package metrics

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backuo_ws_connections",
		Help: "Currently registered WebSocket connections.",
	})

	RoomJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backuo_ws_room_joins_total",
		Help: "Accepted conversation room joins.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backuo_ws_events_published_total",
		Help: "Live events published, by event type.",
	}, []string{"event"})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backuo_ws_delivery_failures_total",
		Help: "Live event writes that failed and were dropped.",
	})

	MessagesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backuo_messages_appended_total",
		Help: "Messages durably appended.",
	})
)

// Handler serves the Prometheus scrape endpoint through Fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
