package observability

import (
	"context"

	"go.uber.org/zap"
)

// Correlation ids tie an HTTP request to the queue message it produced and
// to the worker's dispatch logs. The id travels in the context here and on
// the wire in the AMQP correlation-id property.

type correlationIDKey struct{}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationIDKey{}, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	correlationID, ok := ctx.Value(correlationIDKey{}).(string)
	if !ok || correlationID == "" {
		return "", false
	}
	return correlationID, true
}

// WithContextLogger stamps the context's correlation id onto the logger, if
// one is present.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}

	correlationID, ok := CorrelationIDFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(zap.String("correlationId", correlationID))
}
