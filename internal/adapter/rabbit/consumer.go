package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/internal/domain/types"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/Temutjin2k/delivery-dispatch/pkg/rabbit"
)

var errMissingOrderID = errors.New("order_id is required")

const reconnectDelay = 2 * time.Second

type OrderReadyHandler func(ctx context.Context, msg models.OrderReadyMessage) error

// OrderConsumer feeds order.status.ready events into the dispatcher.
type OrderConsumer struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewOrderConsumer(client *rabbit.RabbitMQ, l logger.Logger) *OrderConsumer {
	return &OrderConsumer{client: client, l: l}
}

// ConsumeOrderReady blocks until ctx is done, reconnecting whenever the delivery channel closes.
func (c *OrderConsumer) ConsumeOrderReady(ctx context.Context, fn OrderReadyHandler) error {
	const op = "OrderConsumer.ConsumeOrderReady"
	ctx = wrap.WithAction(ctx, types.ActionOrderReady)

	for {
		if ctx.Err() != nil {
			c.l.Debug(ctx, "order ready consumer stopped by context")
			return nil
		}

		msgs, err := c.subscribe(ctx)
		if err != nil {
			c.l.Error(ctx, "subscribe failed", err, "op", op)
			if !sleepCtx(ctx, reconnectDelay) {
				return nil
			}
			continue
		}

		c.l.Info(ctx, "start consuming order ready events", "queue", QueueOrderReady)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				c.l.Info(ctx, "order ready consumer shutting down")
				return nil
			case msg, ok := <-msgs:
				if !ok {
					c.l.Warn(ctx, "delivery channel closed, reconnecting")
					break consumeLoop
				}
				c.handleMessage(ctx, fn, msg)
			}
		}
	}
}

func (c *OrderConsumer) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	if err := c.client.EnsureConnection(ctx); err != nil {
		return nil, err
	}
	if err := c.client.DeclareTopic(OrderExchange); err != nil {
		return nil, err
	}
	if err := c.client.BindQueue(QueueOrderReady, OrderExchange, KeyOrderReady); err != nil {
		return nil, err
	}

	ch, err := c.client.Ch()
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(16, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return ch.Consume(QueueOrderReady, "", false, false, false, false, nil)
}

// handleMessage acks once the order reached the dispatcher. Malformed messages are dropped.
func (c *OrderConsumer) handleMessage(ctx context.Context, fn OrderReadyHandler, msg amqp.Delivery) {
	const op = "OrderConsumer.handleMessage"
	var err error
	defer func() { metrics.RecordRabbitMQConsume(service, QueueOrderReady, err) }()

	if msg.CorrelationId != "" {
		ctx = wrap.WithRequestID(ctx, msg.CorrelationId)
	}

	var req models.OrderReadyMessage
	if err = json.Unmarshal(msg.Body, &req); err == nil && req.OrderID <= 0 {
		err = errMissingOrderID
	}
	if err != nil {
		c.l.Error(ctx, "decode failed", err, "op", op)
		_ = msg.Nack(false, false)
		return
	}

	if err = fn(ctx, req); err != nil {
		requeue := isRecoverableError(err) && !msg.Redelivered
		c.l.Error(ctx, "handler failed", err, "op", op, "order_id", req.OrderID, "requeue", requeue)
		_ = msg.Nack(false, requeue)
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.l.Warn(ctx, "ack failed", "op", op, "error", ackErr.Error())
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
