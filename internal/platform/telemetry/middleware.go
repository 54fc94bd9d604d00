package telemetry

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotekeeper/internal/platform/telemetry"

	// HeaderTraceID carries the trace id back to the caller.
	HeaderTraceID = "X-Trace-ID"

	probePrefix = "/-/"
)

// httpMetrics are the server-side request instruments.
type httpMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

var (
	metricsOnce sync.Once
	sharedHTTP  *httpMetrics
)

// serverMetrics creates the instruments once per process. Instrument errors
// go to otel.Handle and leave the middleware without metrics.
func serverMetrics() *httpMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)

		duration, err := meter.Float64Histogram("http.server.request.duration",
			metric.WithDescription("HTTP request duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			otel.Handle(err)
			return
		}

		total, err := meter.Int64Counter("http.server.request.total",
			metric.WithDescription("Total number of HTTP requests"),
		)
		if err != nil {
			otel.Handle(err)
			return
		}

		active, err := meter.Int64UpDownCounter("http.server.active_requests",
			metric.WithDescription("Number of in-flight HTTP requests"),
		)
		if err != nil {
			otel.Handle(err)
			return
		}

		sharedHTTP = &httpMetrics{duration: duration, total: total, active: active}
	})

	return sharedHTTP
}

// Middleware returns the tracing and metrics handlers for the API. Probe
// endpoints under /-/ are neither traced nor measured. The trace id is added
// to the request logger and echoed in X-Trace-ID.
func Middleware(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{
		otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, probePrefix)
		})),
		measure(serverMetrics()),
	}
}

func measure(m *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, probePrefix) {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.HasTraceID() {
			traceID := sc.TraceID().String()
			c.Header(HeaderTraceID, traceID)
			c.Request = c.Request.WithContext(logging.WithTraceID(ctx, traceID))
		}

		if m == nil {
			c.Next()
			return
		}

		route := attribute.String("http.route", c.FullPath())
		method := attribute.String("http.method", c.Request.Method)
		start := time.Now()

		m.active.Add(ctx, 1, metric.WithAttributes(method, route))
		defer m.active.Add(ctx, -1, metric.WithAttributes(method, route))

		c.Next()

		attrs := metric.WithAttributes(method, route, attribute.Int("http.status_code", c.Writer.Status()))
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.total.Add(ctx, 1, attrs)
	}
}
