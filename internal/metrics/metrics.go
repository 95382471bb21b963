package metrics

import (
	"strconv"
	"time"

	"stok-takip/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "stok"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	StockMovements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_movements_total",
			Help: "Recorded stock movements by type",
		},
		[]string{"type"},
	)

	StockConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_stock_conflicts_total",
			Help: "Stock updates rejected because the stock changed concurrently",
		},
	)

	TenantsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_tenants_registered_total",
			Help: "Restaurants registered",
		},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := logger.StatusOf(c, err)
		route := c.Route().Path

		HTTPRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

func RecordLogin(result string) {
	AuthAttempts.WithLabelValues(result).Inc()
}

func RecordMovement(movementType string) {
	StockMovements.WithLabelValues(movementType).Inc()
}
