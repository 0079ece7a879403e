package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dreschagin/monitoring-core/internal/application/port"
)

type recordingPublisher struct {
	mu      sync.Mutex
	entries []port.LogEntry
}

func (p *recordingPublisher) Publish(_ context.Context, entry port.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	for _, e := range entries {
		_ = p.Publish(ctx, e)
	}
	return nil
}

func (p *recordingPublisher) Flush(context.Context) error { return nil }

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		wantInfo bool
		wantWarn bool
	}{
		{level: "debug", wantInfo: true, wantWarn: true},
		{level: "info", wantInfo: true, wantWarn: true},
		{level: "warn", wantInfo: false, wantWarn: true},
		{level: "error", wantInfo: false, wantWarn: false},
		{level: "bogus", wantInfo: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(&buf, tt.level)

			log.Info("info message")
			log.Warn("warn message")

			out := buf.String()
			if got := strings.Contains(out, "info message"); got != tt.wantInfo {
				t.Errorf("info written = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out, "warn message"); got != tt.wantWarn {
				t.Errorf("warn written = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestLogger_ForwardsToPublisher(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info")
	publisher := &recordingPublisher{}
	log.SetLogPublisher(publisher)

	log.With("component", "collector").Error("sample failed", errors.New("timeout"), "source", "host-1")
	log.Debug("filtered out")

	if len(publisher.entries) != 1 {
		t.Fatalf("expected 1 published entry, got %d", len(publisher.entries))
	}
	entry := publisher.entries[0]
	if entry.Level != port.LogLevelError || entry.Message != "sample failed" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Fields["source"] != "host-1" || entry.Fields["error"] != "timeout" {
		t.Errorf("unexpected fields %v", entry.Fields)
	}
	if !strings.Contains(buf.String(), "component=collector") {
		t.Errorf("child logger lost its fields: %s", buf.String())
	}

	log.SetLogPublisher(nil)
	log.Info("after detach")
	if len(publisher.entries) != 1 {
		t.Error("detached publisher must not receive entries")
	}
}
