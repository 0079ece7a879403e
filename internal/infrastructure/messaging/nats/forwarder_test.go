package nats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/broadcast"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

type published struct {
	subject string
	payload interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
}

func (f *fakePublisher) PublishEvent(_ context.Context, subject string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, published{subject: subject, payload: payload})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) snapshot() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.sent...)
}

func waitForSubscriber(t *testing.T, b *broadcast.Broadcaster) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("forwarder did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestForwarder_PublishesAlertEvents(t *testing.T) {
	b := broadcast.New(broadcast.Config{}, nil, logger.Nop())
	pub := &fakePublisher{}
	fwd := NewForwarder(b, pub, false, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fwd.Run(ctx)
		close(done)
	}()
	waitForSubscriber(t, b)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.Publish(event.MetricUpdated{SourceID: "system", Key: "cpu_usage", Reading: valueobject.MustNumeric(95), Timestamp: now})
	alert := entity.NewAlert("cpu_usage", valueobject.SeverityCritical, 95, now)
	b.Publish(event.NewAlertOpened(alert, true, now))

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.snapshot()) < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	sent := pub.snapshot()
	if len(sent) != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", len(sent))
	}
	if sent[0].subject != "monitoring.alert_opened" {
		t.Errorf("subject = %q", sent[0].subject)
	}
	env, ok := sent[0].payload.(*dto.EventEnvelope)
	if !ok {
		t.Fatalf("payload type %T", sent[0].payload)
	}
	if env.Persisted == nil || !*env.Persisted {
		t.Error("envelope must carry persisted=true")
	}
}

func TestForwarder_StopsOnBroadcasterClose(t *testing.T) {
	b := broadcast.New(broadcast.Config{}, nil, logger.Nop())
	fwd := NewForwarder(b, &fakePublisher{}, true, logger.Nop())

	done := make(chan struct{})
	go func() {
		fwd.Run(context.Background())
		close(done)
	}()
	waitForSubscriber(t, b)

	b.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not stop after Close")
	}
}

func TestAlertNotifier_PublishesToNotificationSubject(t *testing.T) {
	pub := &fakePublisher{}
	n := NewAlertNotifier(pub)

	alert := entity.NewAlert("disk_usage", valueobject.SeverityWarning, 85, time.Now())
	if err := n.NotifyAlert(context.Background(), alert); err != nil {
		t.Fatalf("NotifyAlert() error = %v", err)
	}

	sent := pub.snapshot()
	if len(sent) != 1 || sent[0].subject != NotificationSubject {
		t.Fatalf("unexpected publications: %+v", sent)
	}
	if d, ok := sent[0].payload.(*dto.AlertDTO); !ok || d.ID != alert.ID() {
		t.Errorf("unexpected payload %+v", sent[0].payload)
	}
}
