package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx of the call site that produced err.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string { return e.err.Error() }
func (e *errorWithLogCtx) Unwrap() error { return e.err }

// Error wraps an error with the current LogCtx from the context
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	// If already wrapped, keep the chain and refresh logCtx
	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return &errorWithLogCtx{
			err:    err,
			logCtx: mergeLogCtx(e.logCtx, fromCtx(ctx)),
		}
	}

	return &errorWithLogCtx{
		err:    err,
		logCtx: fromCtx(ctx),
	}
}

// ErrorCtx returns ctx enriched with the LogCtx stored in err, if any.
// Values recorded at the error site win over those already in ctx.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return context.WithValue(ctx, LogCtxKey, mergeLogCtx(e.logCtx, fromCtx(ctx)))
	}
	return ctx
}

// mergeLogCtx keeps the inner (deepest) values and fills the gaps from outer.
func mergeLogCtx(inner, outer LogCtx) LogCtx {
	if inner.Action == "" {
		inner.Action = outer.Action
	}
	if inner.RequestID == "" {
		inner.RequestID = outer.RequestID
	}
	if inner.RunID == "" {
		inner.RunID = outer.RunID
	}
	if inner.DriverID == "" {
		inner.DriverID = outer.DriverID
	}
	if inner.OfferID == "" {
		inner.OfferID = outer.OfferID
	}
	if inner.BatchID == "" {
		inner.BatchID = outer.BatchID
	}
	return inner
}
