package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/delivery-dispatch/internal/domain/models"
	"github.com/Temutjin2k/delivery-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/delivery-dispatch/pkg/metrics"
	"github.com/Temutjin2k/delivery-dispatch/pkg/rabbit"
)

const (
	publishAttempts = 3
	publishBackoff  = 500 * time.Millisecond
)

// Producer publishes dispatch events to the dispatch_topic exchange.
type Producer struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewProducer(client *rabbit.RabbitMQ, l logger.Logger) *Producer {
	return &Producer{client: client, l: l}
}

// Setup declares the exchange the producer publishes to.
func (p *Producer) Setup(ctx context.Context) error {
	if err := p.client.EnsureConnection(ctx); err != nil {
		return err
	}
	return p.client.DeclareTopic(DispatchExchange)
}

// PublishBatchAssigned announces a persisted batch under batch.assigned.<batch_id>.
func (p *Producer) PublishBatchAssigned(ctx context.Context, msg models.BatchAssignedMessage) error {
	return p.publish(ctx, "batch.assigned."+strconv.FormatInt(msg.BatchID, 10), msg.OfferID, msg)
}

// PublishOfferOutcome announces how an offer ended under offer.<outcome>.<offer_id>.
func (p *Producer) PublishOfferOutcome(ctx context.Context, msg models.OfferOutcomeMessage) error {
	return p.publish(ctx, fmt.Sprintf("offer.%s.%s", msg.Outcome, msg.OfferID), msg.OfferID, msg)
}

// PublishDriverStatus announces a driver status change under driver.status.<driver_id>.
func (p *Producer) PublishDriverStatus(ctx context.Context, msg models.DriverStatusMessage) error {
	return p.publish(ctx, "driver.status."+strconv.FormatInt(msg.DriverID, 10), "", msg)
}

func (p *Producer) publish(ctx context.Context, key, correlationID string, msg any) (err error) {
	const op = "Producer.publish"
	defer func() { metrics.RecordRabbitMQPublish(service, DispatchExchange, err) }()

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal message: %w", op, err)
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	err = retry(ctx, publishAttempts, publishBackoff, func() error {
		if err := p.client.EnsureConnection(ctx); err != nil {
			return err
		}
		ch, err := p.client.Ch()
		if err != nil {
			return err
		}
		return ch.PublishWithContext(
			ctx,
			DispatchExchange, // exchange
			key,              // routing key
			false,            // mandatory
			false,            // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				CorrelationId: correlationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})
	if err != nil {
		ctx = wrap.WithAction(ctx, "rabbitmq_publish")
		return wrap.Error(ctx, fmt.Errorf("%s: publish %s: %w", op, key, err))
	}

	p.l.Debug(ctx, "event published", "routing_key", key, "correlation_id", correlationID)
	return nil
}
