// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Notifications written, by type",
		},
		[]string{"type"},
	)

	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_skipped_total",
			Help: "Notification requests dropped before writing, by reason",
		},
		[]string{"reason"},
	)

	CascadeDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_cascade_reply_deletes_total",
			Help: "Replies removed while deleting their message, by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docstore_subscriptions_active",
			Help: "Live document store queries currently open",
		},
		[]string{"collection"},
	)

	WebSocketConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"channel"},
	)
)

// Middleware records request counts and latencies per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HttpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			HttpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// TrackSubscription counts a live query as open until the returned func,
// which wraps unsubscribe, is first called.
func TrackSubscription(collection string, unsubscribe func()) func() {
	gauge := ActiveSubscriptions.WithLabelValues(collection)
	gauge.Inc()
	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			gauge.Dec()
		})
	}
}
