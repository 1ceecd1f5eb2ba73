// Package service holds the check-in, visibility and standings logic. It
// depends on store interfaces only, so the MySQL repositories and the
// in-memory store are interchangeable.
package service

import (
	"io"
	"log/slog"
	"time"

	"github.com/iliyamo/tournament-checkin/internal/metrics"
	"github.com/iliyamo/tournament-checkin/internal/model"
)

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	locker   Locker
	barcodes BarcodeGenerator
	windows  map[model.PrefKey]time.Duration
	timeout  time.Duration
}

// Option configures a service in this package. Options a service does not
// use are ignored.
type Option func(o *options)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocker serialises toggles per identifier through l.
func WithLocker(l Locker) Option {
	return func(o *options) { o.locker = l }
}

// WithBarcodeGenerator overrides the random barcode source.
func WithBarcodeGenerator(g BarcodeGenerator) Option {
	return func(o *options) { o.barcodes = g }
}

// WithDefaultWindow sets the freshness window used when a tournament has
// no value stored for the given window preference key.
func WithDefaultWindow(key model.PrefKey, d time.Duration) Option {
	return func(o *options) { o.windows[key] = d }
}

// WithPublishTimeout bounds a single broadcast publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func buildOptions(opts []Option) options {
	o := options{
		now:      time.Now,
		barcodes: RandomBarcode,
		windows:  map[model.PrefKey]time.Duration{},
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
