package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	laneKey      contextKey = "lane"
	batchIDKey   contextKey = "batch_id"
	opTypeKey    contextKey = "op_type"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithLane annotates context with the queue lane name (fast/slow).
func WithLane(ctx context.Context, lane string) context.Context {
	if lane == "" {
		return ctx
	}
	return context.WithValue(ctx, laneKey, lane)
}

// LaneFromContext returns the lane name if present.
func LaneFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(laneKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBatchID annotates context with the identifier of the batch being applied.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext returns the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOpType annotates context with the mutation type being handled.
func WithOpType(ctx context.Context, opType string) context.Context {
	if opType == "" {
		return ctx
	}
	return context.WithValue(ctx, opTypeKey, opType)
}

// OpTypeFromContext returns the mutation type if present.
func OpTypeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(opTypeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
