package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

type countingTelemetry struct {
	port.NopTelemetry
	lagged      atomic.Int64
	mu          sync.Mutex
	disconnects map[string]int
}

func newCountingTelemetry() *countingTelemetry {
	return &countingTelemetry{disconnects: map[string]int{}}
}

func (c *countingTelemetry) SubscriberLagged() { c.lagged.Add(1) }

func (c *countingTelemetry) SubscriberDisconnected(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects[reason]++
}

func (c *countingTelemetry) disconnectCount(reason string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects[reason]
}

func metricEvent(i int) event.Event {
	return event.MetricUpdated{
		SourceID:  "test",
		Key:       "seq",
		Reading:   valueobject.MustNumeric(float64(i)),
		Timestamp: time.Unix(int64(i), 0),
	}
}

func seqOf(t *testing.T, ev event.Event) int {
	t.Helper()
	m, ok := ev.(event.MetricUpdated)
	if !ok {
		t.Fatalf("unexpected event type %T", ev)
	}
	return int(m.Reading.Value())
}

func TestBroadcaster_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	telemetry := newCountingTelemetry()
	b := New(Config{QueueCapacity: 100}, telemetry, logger.Nop())

	stuck := b.Subscribe()
	drained := b.Subscribe()

	const total = 1000
	received := make([]int, 0, total)

	start := time.Now()
	for i := 0; i < total; i++ {
		b.Publish(metricEvent(i))
		for {
			ev, ok := drained.TryReceive()
			if !ok {
				break
			}
			received = append(received, seqOf(t, ev))
		}
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("publishing took %s, expected non-blocking fan-out", elapsed)
	}

	if len(received) != total {
		t.Fatalf("drained subscriber received %d events, want %d", len(received), total)
	}
	for i, seq := range received {
		if seq != i {
			t.Fatalf("out of order delivery at %d: got %d", i, seq)
		}
	}

	select {
	case <-stuck.Done():
	default:
		t.Fatal("stuck subscriber must be disconnected")
	}
	if stuck.Reason() != ReasonOverflow {
		t.Errorf("Reason() = %q, want %q", stuck.Reason(), ReasonOverflow)
	}
	if got := telemetry.disconnectCount(string(ReasonOverflow)); got != 1 {
		t.Errorf("expected exactly one overflow disconnect, got %d", got)
	}
	if telemetry.lagged.Load() == 0 {
		t.Error("expected lag counter to grow")
	}
	if drained.Reason() != ReasonNone {
		t.Errorf("drained subscriber must stay connected, got reason %q", drained.Reason())
	}
	if b.Count() != 1 {
		t.Errorf("expected 1 active subscriber, got %d", b.Count())
	}
}

func TestBroadcaster_DropOldestKeepsNewest(t *testing.T) {
	b := New(Config{QueueCapacity: 3, ConsecutiveDropLimit: 100}, nil, logger.Nop())
	sub := b.Subscribe()

	for i := 0; i < 5; i++ {
		b.Publish(metricEvent(i))
	}

	if sub.Lagged() != 2 {
		t.Errorf("Lagged() = %d, want 2", sub.Lagged())
	}

	var got []int
	for {
		ev, ok := sub.TryReceive()
		if !ok {
			break
		}
		got = append(got, seqOf(t, ev))
	}
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBroadcaster_DropCounterResetsWhenDrained(t *testing.T) {
	b := New(Config{QueueCapacity: 2, ConsecutiveDropLimit: 3}, nil, logger.Nop())
	sub := b.Subscribe()

	for round := 0; round < 10; round++ {
		// 2 вытеснения подряд, затем освобождение очереди
		for i := 0; i < 4; i++ {
			b.Publish(metricEvent(i))
		}
		for {
			if _, ok := sub.TryReceive(); !ok {
				break
			}
		}
	}

	if sub.Reason() != ReasonNone {
		t.Fatalf("subscriber disconnected with %q, drops were not consecutive across drains", sub.Reason())
	}
}

func TestBroadcaster_ReceiveBlocksUntilPublish(t *testing.T) {
	b := New(Config{}, nil, logger.Nop())
	sub := b.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan event.Event, 1)
	go func() {
		ev, err := sub.Receive(ctx)
		if err != nil {
			t.Errorf("Receive() error = %v", err)
		}
		done <- ev
	}()

	time.Sleep(10 * time.Millisecond)
	b.Publish(metricEvent(7))

	select {
	case ev := <-done:
		if seqOf(t, ev) != 7 {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-ctx.Done():
		t.Fatal("Receive() did not return after Publish")
	}
}

func TestBroadcaster_UnsubscribeAndClose(t *testing.T) {
	telemetry := newCountingTelemetry()
	b := New(Config{}, telemetry, logger.Nop())

	a := b.Subscribe()
	c := b.Subscribe()

	b.Unsubscribe(a)
	b.Unsubscribe(a)
	if a.Reason() != ReasonClosed {
		t.Errorf("Reason() = %q, want %q", a.Reason(), ReasonClosed)
	}
	if telemetry.disconnectCount(string(ReasonClosed)) != 1 {
		t.Error("double unsubscribe must be counted once")
	}

	if _, err := a.Receive(context.Background()); !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("expected ErrSubscriptionClosed, got %v", err)
	}

	b.Close()
	if c.Reason() != ReasonShutdown {
		t.Errorf("Reason() = %q, want %q", c.Reason(), ReasonShutdown)
	}

	late := b.Subscribe()
	select {
	case <-late.Done():
	default:
		t.Error("subscription after Close must be closed immediately")
	}
}

func TestBroadcaster_ConcurrentPublishersAndSubscribers(t *testing.T) {
	b := New(Config{QueueCapacity: 16}, nil, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		sub := b.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := sub.Receive(ctx); err != nil {
					return
				}
			}
		}()
	}

	var pubWG sync.WaitGroup
	for p := 0; p < 4; p++ {
		pubWG.Add(1)
		go func(p int) {
			defer pubWG.Done()
			for i := 0; i < 500; i++ {
				b.Publish(metricEvent(p*1000 + i))
			}
		}(p)
	}
	pubWG.Wait()

	b.Close()
	wg.Wait()
}
