package wrap

import (
	"context"
	"strconv"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		RequestID string
		RunID     string
		DriverID  string
		OfferID   string
		BatchID   string
	}

	// logCtxKeyStruct is an unexported type for context keys defined in this package.
	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

func fromCtx(ctx context.Context) LogCtx {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc
	}
	return LogCtx{}
}

// WithLogCtx returns a new context with the provided LogCtx merged over the existing one.
func WithLogCtx(ctx context.Context, newLc LogCtx) context.Context {
	lc := fromCtx(ctx)
	if newLc.Action == "" {
		newLc.Action = lc.Action
	}
	if newLc.RequestID == "" {
		newLc.RequestID = lc.RequestID
	}
	if newLc.RunID == "" {
		newLc.RunID = lc.RunID
	}
	if newLc.DriverID == "" {
		newLc.DriverID = lc.DriverID
	}
	if newLc.OfferID == "" {
		newLc.OfferID = lc.OfferID
	}
	if newLc.BatchID == "" {
		newLc.BatchID = lc.BatchID
	}
	return context.WithValue(ctx, LogCtxKey, newLc)
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	lc := fromCtx(ctx)
	lc.Action = action
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := fromCtx(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRunID tags the context with the pipeline run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	lc := fromCtx(ctx)
	lc.RunID = runID
	return context.WithValue(ctx, LogCtxKey, lc)
}

func WithDriverID(ctx context.Context, driverID int64) context.Context {
	lc := fromCtx(ctx)
	lc.DriverID = strconv.FormatInt(driverID, 10)
	return context.WithValue(ctx, LogCtxKey, lc)
}

func WithOfferID(ctx context.Context, offerID string) context.Context {
	lc := fromCtx(ctx)
	lc.OfferID = offerID
	return context.WithValue(ctx, LogCtxKey, lc)
}

func WithBatchID(ctx context.Context, batchID string) context.Context {
	lc := fromCtx(ctx)
	lc.BatchID = batchID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// GetRequestID returns request id stored in the LogCtx, or empty string.
func GetRequestID(ctx context.Context) string {
	return fromCtx(ctx).RequestID
}
