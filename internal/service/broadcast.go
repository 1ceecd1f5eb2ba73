package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/tournament-checkin/internal/metrics"
	"github.com/iliyamo/tournament-checkin/internal/model"
)

// Publisher hands a broadcast to the real-time transport. Implementations
// are best effort: no acknowledgement, no retry, no durable queue.
type Publisher interface {
	Publish(ctx context.Context, evt model.CheckInBroadcast) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt model.CheckInBroadcast) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, evt model.CheckInBroadcast) error {
	return f(ctx, evt)
}

// Dispatcher forwards broadcasts to a Publisher without blocking the
// caller. Each publish runs on its own short-lived goroutine under a
// context detached from the request, so a cancelled or finished request
// does not retract a broadcast of a recorded event. Failures and panics
// are logged and counted, never returned.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	inflight  sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. A nil publisher disables
// broadcasting.
func NewDispatcher(publisher Publisher, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	return &Dispatcher{
		publisher: publisher,
		timeout:   o.timeout,
		logger:    o.logger,
		metrics:   o.metrics,
		now:       o.now,
	}
}

// Dispatch schedules evt for publication and returns immediately.
func (d *Dispatcher) Dispatch(evt model.CheckInBroadcast) {
	if d == nil || d.publisher == nil || len(evt.Barcodes) == 0 {
		return
	}
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.SentAt.IsZero() {
		evt.SentAt = d.now().UTC()
	}
	d.inflight.Add(1)
	go d.publish(evt)
}

func (d *Dispatcher) publish(evt model.CheckInBroadcast) {
	defer d.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			d.fail(evt, fmt.Errorf("publisher panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.publisher.Publish(ctx, evt)
	d.metrics.ObserveBroadcast(start)
	if err != nil {
		d.fail(evt, err)
	}
}

func (d *Dispatcher) fail(evt model.CheckInBroadcast, err error) {
	d.logger.Warn("check-in broadcast dropped",
		"event_id", evt.EventID,
		"tournament", evt.TournamentSlug,
		"type", evt.Type,
		"barcodes", len(evt.Barcodes),
		"error", err,
	)
	d.metrics.IncrementBroadcastFailure(evt.Type)
}

// Wait blocks until every scheduled publish has finished. The server
// calls it during shutdown.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.inflight.Wait()
}
