package rabbit

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
)

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func delivery(body string, redelivered bool) (amqp.Delivery, *ackRecorder) {
	rec := &ackRecorder{}
	return amqp.Delivery{Acknowledger: rec, Body: []byte(body), Redelivered: redelivered, CorrelationId: "corr-1"}, rec
}

func TestOrderConsumer_HandleMessage(t *testing.T) {
	c := NewOrderConsumer(nil, logger.Nop())

	tests := []struct {
		name        string
		body        string
		redelivered bool
		handlerErr  error
		wantCalled  bool
		wantAck     bool
		wantRequeue bool
	}{
		{name: "ack after handoff", body: `{"order_id": 42, "status": "READY_FOR_PICKUP"}`, wantCalled: true, wantAck: true},
		{name: "malformed json", body: `{"order_id":`},
		{name: "missing order id", body: `{"status": "READY_FOR_PICKUP"}`},
		{name: "dispatcher stopped requeues", body: `{"order_id": 1}`, handlerErr: types.ErrDispatcherStopped, wantCalled: true, wantRequeue: true},
		{name: "redelivery is not requeued twice", body: `{"order_id": 1}`, redelivered: true, handlerErr: types.ErrDispatcherStopped, wantCalled: true},
		{name: "other errors drop", body: `{"order_id": 1}`, handlerErr: errors.New("boom"), wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, rec := delivery(tt.body, tt.redelivered)

			var got *models.OrderReadyMessage
			c.handleMessage(context.Background(), func(_ context.Context, m models.OrderReadyMessage) error {
				got = &m
				return tt.handlerErr
			}, msg)

			if !tt.wantCalled {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
			}
			if tt.wantAck {
				assert.Equal(t, 1, rec.acked)
				assert.Zero(t, rec.nacked)
				assert.Equal(t, int64(42), got.OrderID)
				return
			}
			assert.Zero(t, rec.acked)
			assert.Equal(t, 1, rec.nacked)
			assert.Equal(t, tt.wantRequeue, rec.requeue)
		})
	}
}

func TestRetry(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, 0, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = retry(ctx, 5, time.Second, func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
