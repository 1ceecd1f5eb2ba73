package queue

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tournament-checkin/internal/model"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake. It returns a URL pointing at it.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func publishWithin(p *Publisher, d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return p.Publish(ctx, model.CheckInBroadcast{EventID: "e-1", TournamentSlug: "wudc", Barcodes: []string{"000001"}})
}

func TestPublisherHonoursContextAgainstSilentBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer p.Close()

	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = publishWithin(p, 200*time.Millisecond)
		}(i)
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 2*time.Second, "publishes must not outlive their contexts")
	for _, err := range errs {
		assert.Error(t, err)
	}

	start = time.Now()
	err := p.Publish(context.Background(), model.CheckInBroadcast{EventID: "e-2"})
	assert.ErrorIs(t, err, ErrBrokerUnavailable)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "backing off must not dial")
}

func TestPublisherRedialsAfterBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := NewPublisher(silentBroker(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return now }
	defer p.Close()

	err := publishWithin(p, 100*time.Millisecond)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBrokerUnavailable)
	assert.Equal(t, minBackoff, p.backoff)

	now = now.Add(minBackoff / 2)
	assert.ErrorIs(t, publishWithin(p, 100*time.Millisecond), ErrBrokerUnavailable)

	now = now.Add(minBackoff)
	err = publishWithin(p, 100*time.Millisecond)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBrokerUnavailable, "backoff elapsed, so the publisher dials again")
	assert.Equal(t, 2*minBackoff, p.backoff)
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, minBackoff, nextBackoff(0))
	assert.Equal(t, 4*time.Second, nextBackoff(2*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff))
}
