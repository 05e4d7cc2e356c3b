package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hotel"

var (
	// Payment metrics
	PaymentVerificationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verification_total",
			Help:      "Total number of payment verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	SubscriptionActivationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_activation_total",
			Help:      "Total number of subscription activations by plan",
		},
		[]string{"plan"},
	)

	// Lifecycle metrics
	SweepTransitionCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expiry_sweep_transitions_total",
		Help:      "Total number of tenants moved to trial_expired by the sweep",
	})

	ReapedTenantsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reaped_tenants_total",
		Help:      "Total number of tenants permanently deleted by the reaper",
	})

	DeletionSkippedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deletion_skipped_total",
		Help:      "Total number of deletion candidates skipped by the safety re-check",
	})

	// Credential recovery metrics
	OTPIssuedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "otp_issued_total",
		Help:      "Total number of OTP codes issued",
	})

	OTPVerificationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_verification_total",
			Help:      "Total number of OTP verification attempts by result",
		},
		[]string{"result"},
	)

	// Database operation metrics
	DBRetryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "db_lock_retries_total",
		Help:      "Total number of retried database operations after lock contention",
	})

	DBOperationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Request metrics
	RequestDurationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// TrackDBOperation returns a function to be deferred that records the
// duration of a database operation.
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationHistogram.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// GetPrometheusHandler returns the HTTP handler for the /metrics endpoint.
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware records duration and status for every request.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			RequestDurationHistogram.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
