// Package middleware provides the Gin middleware chain of the quote API.
package middleware

import (
	"context"
	"log/slog"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotekeeper/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID identifies a chain of requests across services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID and ContextKeyCorrelationID are the gin.Context keys.
	ContextKeyRequestID     = "request_id"
	ContextKeyCorrelationID = "correlation_id"

	maxIDLength = 128
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	correlationIDKey
)

type idKind struct {
	header string
	ginKey string
	ctxKey ctxKey
	enrich func(context.Context, string) context.Context
}

var (
	requestIDKind = idKind{
		header: HeaderRequestID,
		ginKey: ContextKeyRequestID,
		ctxKey: requestIDKey,
		enrich: logging.WithRequestID,
	}
	correlationIDKind = idKind{
		header: HeaderCorrelationID,
		ginKey: ContextKeyCorrelationID,
		ctxKey: correlationIDKey,
		enrich: logging.WithCorrelationID,
	}
)

// Logger puts base into every request context so the id middleware and the
// handlers enrich the configured logger instead of the process default.
func Logger(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}

	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), base))
		c.Next()
	}
}

// RequestID takes X-Request-ID from the request or generates a UUID, echoes
// it in the response and tags the request logger with it.
func RequestID() gin.HandlerFunc { return propagateID(requestIDKind) }

// CorrelationID does for X-Correlation-ID what RequestID does for
// X-Request-ID. The remote client forwards both.
func CorrelationID() gin.HandlerFunc { return propagateID(correlationIDKind) }

func propagateID(kind idKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := cleanID(c.GetHeader(kind.header))
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(kind.ginKey, id)
		c.Header(kind.header, id)

		ctx := context.WithValue(c.Request.Context(), kind.ctxKey, id)
		c.Request = c.Request.WithContext(kind.enrich(ctx, id))

		c.Next()
	}
}

// cleanID discards inbound ids that are oversized or contain anything other
// than printable ASCII, so they cannot forge log lines.
func cleanID(id string) string {
	if len(id) > maxIDLength {
		return ""
	}

	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return ""
		}
	}

	return id
}

// GetRequestID returns the request id stored by RequestID, or "".
func GetRequestID(c *gin.Context) string { return c.GetString(ContextKeyRequestID) }

// GetCorrelationID returns the correlation id stored by CorrelationID, or "".
func GetCorrelationID(c *gin.Context) string { return c.GetString(ContextKeyCorrelationID) }

// RequestIDFromContext returns the request id carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestIDKey) }

// CorrelationIDFromContext returns the correlation id carried by ctx, or "".
func CorrelationIDFromContext(ctx context.Context) string { return idFrom(ctx, correlationIDKey) }

// ContextWithRequestID stores a request id for outbound calls made outside
// an HTTP request, such as a timer-driven sync.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithCorrelationID stores a correlation id for outbound calls.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func idFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}
