package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"referral-intake/domain"
)

const publishTimeout = 5 * time.Second

// RabbitMQ publishes referral events to a durable queue and consumes them for the worker.
type RabbitMQ struct {
	conn   *amqp.Connection
	mu     sync.Mutex // amqp channels are not safe for concurrent publishing
	ch     *amqp.Channel
	queue  amqp.Queue
	logger *zap.Logger
}

var _ domain.EventPublisher = (*RabbitMQ)(nil)

// NewRabbitMQ dials url and declares the durable queue.
func NewRabbitMQ(cfg EventsConfig, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.Queue, // queue name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	logger = logger.Named("rabbitmq")
	logger.Info("Connected to RabbitMQ", zap.String("queue", q.Name))

	return &RabbitMQ{conn: conn, ch: ch, queue: q, logger: logger}, nil
}

// Publish sends ev as a persistent JSON message.
func (r *RabbitMQ) Publish(ctx context.Context, ev domain.ReferralEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.ch.PublishWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         string(ev.Type),
			Timestamp:    ev.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s for referral %d: %w", ev.Type, ev.ReferralID, err)
	}
	return nil
}

// Consume delivers events to handler until ctx is cancelled or the channel closes.
// Messages are acked on success, requeued once on handler failure, and dropped
// when the body is not a valid event.
func (r *RabbitMQ) Consume(ctx context.Context, handler func(context.Context, domain.ReferralEvent) error) error {
	msgs, err := r.ch.Consume(
		r.queue.Name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			handleDelivery(ctx, d, handler, r.logger)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handler func(context.Context, domain.ReferralEvent) error, logger *zap.Logger) {
	var ev domain.ReferralEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil || ev.Type == "" {
		logger.Warn("Dropping malformed event", zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		if err := d.Nack(false, false); err != nil {
			logger.Error("Failed to nack delivery", zap.Error(err))
		}
		return
	}

	if err := handler(ctx, ev); err != nil {
		requeue := !d.Redelivered
		logger.Error("Event handler failed",
			zap.String("type", string(ev.Type)),
			zap.Uint("referral_id", ev.ReferralID),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		if err := d.Nack(false, requeue); err != nil {
			logger.Error("Failed to nack delivery", zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Error("Failed to ack delivery", zap.Error(err))
	}
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ch.Close(); err != nil && err != amqp.ErrClosed {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}

// NoopPublisher discards events. Used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.ReferralEvent) error { return nil }
