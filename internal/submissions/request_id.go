package submissions

import (
	"context"

	"github.com/gin-gonic/gin"
)

type requestIDCtxKey struct{}

// WithRequestID stores a request ID for the orchestrator's background logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// backgroundWithRequestID detaches from the request context (which dies when
// the HTTP response is written) while preserving the request ID for logs.
func backgroundWithRequestID(ctx context.Context) context.Context {
	requestID := requestIDFromContext(ctx)
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if id := ginCtx.GetString("requestId"); id != "" {
			requestID = id
		}
	}
	return WithRequestID(context.Background(), requestID)
}
