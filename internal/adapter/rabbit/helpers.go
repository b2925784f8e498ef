package rabbit

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
)

const (
	OrderExchange    = "order_topic"
	DispatchExchange = "dispatch_topic"

	QueueOrderReady = "dispatch_order_ready"
	KeyOrderReady   = "order.status.ready"
)

var service = string(types.DispatchService)

// isRecoverableError returns true if the provided error must be requeued
func isRecoverableError(err error) bool {
	return oneOf(err, types.ErrDispatcherStopped, context.DeadlineExceeded)
}

func oneOf(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// retry calls fn up to n times, sleeping between attempts, and stops early when ctx is done.
func retry(ctx context.Context, n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil {
			return nil
		}
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}
	}
	return err
}
