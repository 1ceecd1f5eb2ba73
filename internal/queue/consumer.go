package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

const consumerDialTimeout = 10 * time.Second

// Sink receives broadcasts read from the broker.
type Sink interface {
	Deliver(evt model.CheckInBroadcast)
}

// Consumer binds an exclusive, auto-deleted queue to CheckInExchange and
// forwards every message to a Sink.
type Consumer struct {
	url    string
	sink   Sink
	logger *slog.Logger
}

// NewConsumer returns a Consumer for the broker at url.
func NewConsumer(url string, sink Sink, logger *slog.Logger) *Consumer {
	return &Consumer{url: url, sink: sink, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff whenever the broker connection drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := dial(ctx, c.url, consumerDialTimeout)
		if err != nil {
			c.logger.Warn("checkin-consumer: failed to dial broker", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("checkin-consumer: consume loop ended; reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch); err != nil {
		return err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", CheckInExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.logger.Info("checkin-consumer: listening", "queue", q.Name, "exchange", CheckInExchange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.logger.Warn("checkin-consumer: dropping message", "message_id", d.MessageId, "error", err)
			}
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	evt, err := decodeBroadcast(body)
	if err != nil {
		return err
	}
	c.sink.Deliver(evt)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
