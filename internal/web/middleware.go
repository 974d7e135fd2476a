package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MaraisMark/NotetakingMark/internal/store"
)

const (
	storeKey     = "todolist.store"
	pingAttempts = 3
)

// pingBackoff is multiplied by the attempt number between store pings.
var pingBackoff = 500 * time.Millisecond

// StoreMiddleware verifies the store answers a ping before the first request
// is served, retrying with a linear back-off, and exposes it to handlers via
// GetStore. Requests are rejected with 503 until a ping succeeds.
func StoreMiddleware(st store.Store) gin.HandlerFunc {
	tracer := otel.Tracer("store-middleware")
	var verified atomic.Bool

	ping := func(ctx context.Context) error {
		ctx, span := tracer.Start(ctx, "Ping Store")
		defer span.End()
		if err := st.Ping(ctx); err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}

	return func(c *gin.Context) {
		if !verified.Load() {
			ctx, span := tracer.Start(c.Request.Context(), "StoreMiddleware")
			var err error
			for i := 0; i < pingAttempts; i++ {
				time.Sleep(pingBackoff * time.Duration(i))
				if err = ping(ctx); err == nil {
					break
				}
			}
			span.End()

			if err != nil {
				slog.Error("store unreachable", "attempts", pingAttempts, "error", err)
				_ = c.Error(err)
				renderError(c, http.StatusServiceUnavailable, "The list store is not reachable right now.")
				c.Abort()
				return
			}
			verified.Store(true)
		}

		c.Set(storeKey, st)
		c.Next()
	}
}

// GetStore returns the store placed on the context by StoreMiddleware.
func GetStore(c *gin.Context) (store.Store, error) {
	v, ok := c.Get(storeKey)
	if !ok {
		return nil, errors.New("no store on request context")
	}
	st, ok := v.(store.Store)
	if !ok {
		return nil, errors.New("request context store is not a store.Store")
	}
	return st, nil
}

// MetricsMiddleware records request count and duration per route.
func MetricsMiddleware() gin.HandlerFunc {
	meter := otel.Meter("todolist-http")

	requestCounter, _ := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", c.FullPath()),
			attribute.Int("status_code", c.Writer.Status()),
		)
		requestCounter.Add(c.Request.Context(), 1, attrs)
		requestDuration.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}
}

// RequestLogger writes one structured log line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}
