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

const (
	publisherDialTimeout = 5 * time.Second
	minBackoff           = time.Second
	maxBackoff           = 30 * time.Second
)

// ErrBrokerUnavailable is returned without dialling while a publisher is
// backing off after a failed connection attempt.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// Publisher publishes check-in broadcasts to CheckInExchange. Messages are
// transient: a broadcast nobody is listening to is simply lost. The
// connection is opened lazily and reopened after a failure. Every call
// honours ctx, including the wait for another caller's dial.
type Publisher struct {
	url         string
	logger      *slog.Logger
	dialTimeout time.Duration
	now         func() time.Time

	// sem is a one-slot semaphore guarding the fields below. Unlike a
	// mutex it can be acquired with a deadline.
	sem     chan struct{}
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
	backoff time.Duration
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	return &Publisher{
		url:         url,
		logger:      logger,
		dialTimeout: publisherDialTimeout,
		now:         time.Now,
		sem:         make(chan struct{}, 1),
	}
}

func (p *Publisher) acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rabbitmq: waiting for publisher: %w", ctx.Err())
	}
}

func (p *Publisher) release() { <-p.sem }

// Publish sends evt to every subscribed server instance.
func (p *Publisher) Publish(ctx context.Context, evt model.CheckInBroadcast) error {
	body, err := encodeBroadcast(evt)
	if err != nil {
		return err
	}

	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    evt.EventID,
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		CheckInExchange, // exchange
		"",              // routing key, ignored by fanout
		false,           // mandatory
		false,           // immediate
		pub,
	); err != nil {
		p.logger.Warn("rabbitmq: publish failed", "error", err)
		p.reset()
		return fmt.Errorf("publish broadcast: %w", err)
	}
	return nil
}

// channel returns the open channel, dialling when needed. The semaphore
// must be held. After a failed dial, calls fail with ErrBrokerUnavailable
// until the backoff has elapsed.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if now := p.now(); now.Before(p.retryAt) {
		return nil, fmt.Errorf("%w: retry in %s", ErrBrokerUnavailable, p.retryAt.Sub(now).Round(time.Millisecond))
	}

	ch, err := p.open(ctx)
	if err != nil {
		p.backoff = nextBackoff(p.backoff)
		p.retryAt = p.now().Add(p.backoff)
		p.logger.Warn("rabbitmq: publisher connect failed", "error", err, "retry_in", p.backoff)
		return nil, err
	}
	p.backoff, p.retryAt = 0, time.Time{}
	return ch, nil
}

func (p *Publisher) open(ctx context.Context) (*amqp.Channel, error) {
	conn, err := dial(ctx, p.url, p.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection. It waits for an in-flight Publish,
// which is itself bounded by that call's context.
func (p *Publisher) Close() error {
	p.sem <- struct{}{}
	defer p.release()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

func nextBackoff(d time.Duration) time.Duration {
	if d < minBackoff {
		return minBackoff
	}
	return min(2*d, maxBackoff)
}

func declareExchange(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		CheckInExchange, // name
		"fanout",        // kind
		false,           // durable
		false,           // autoDelete
		false,           // internal
		false,           // noWait
		nil,             // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
