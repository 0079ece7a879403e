package cloudwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

type fakeCloudWatch struct {
	mu     sync.Mutex
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakeCloudWatch) datumCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, in := range f.inputs {
		n += len(in.MetricData)
	}
	return n
}

func TestMapUnit(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected string
	}{
		{"percentage", "%", "Percent"},
		{"megabytes per second", "MB/s", "Megabytes/Second"},
		{"milliseconds", "ms", "Milliseconds"},
		{"seconds", "s", "Seconds"},
		{"count", "count", "Count"},
		{"unknown", "custom", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mapUnit(tt.unit)
			if string(result) != tt.expected {
				t.Errorf("mapUnit(%q) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestUnitForKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"cpu_usage", "%"},
		{"adapter_latency_ms", "ms"},
		{"network_sent_kbps", "KB/s"},
		{"memory_used_mb", "MB"},
		{"disk_free_gb", "GB"},
		{"database_open_conns", "count"},
		{"source_up", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unitForKey(tt.name); got != tt.want {
				t.Errorf("unitForKey(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestConvertToDatum(t *testing.T) {
	p := &MetricsPublisher{
		namespace: "Test/Namespace",
		defaultDimensions: map[string]string{
			"Environment": "test",
		},
		storageResolution: 60,
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	datum := p.convertToDatum("probe:eth0", "adapter_latency_ms:eth0", 12.5, at)

	if datum.MetricName == nil || *datum.MetricName != "adapter_latency_ms" {
		t.Errorf("Expected MetricName=adapter_latency_ms, got %v", datum.MetricName)
	}
	if datum.Value == nil || *datum.Value != 12.5 {
		t.Errorf("Expected Value=12.5, got %v", datum.Value)
	}
	if datum.Unit != "Milliseconds" {
		t.Errorf("Expected Unit=Milliseconds, got %v", datum.Unit)
	}
	if datum.Timestamp == nil || !datum.Timestamp.Equal(at) {
		t.Errorf("Expected Timestamp=%v, got %v", at, datum.Timestamp)
	}
	if datum.StorageResolution == nil || *datum.StorageResolution != 60 {
		t.Errorf("Expected StorageResolution=60, got %v", datum.StorageResolution)
	}

	expectedDimensions := map[string]string{
		"Environment": "test",
		"SourceID":    "probe:eth0",
		"Instance":    "eth0",
	}
	if len(datum.Dimensions) != len(expectedDimensions) {
		t.Errorf("Expected %d dimensions, got %d", len(expectedDimensions), len(datum.Dimensions))
	}
	for _, dim := range datum.Dimensions {
		if expected, ok := expectedDimensions[*dim.Name]; !ok || *dim.Value != expected {
			t.Errorf("Unexpected dimension %s=%s", *dim.Name, *dim.Value)
		}
	}
}

func TestPublishSnapshot_SkipsCategoricalAndFlushes(t *testing.T) {
	client := &fakeCloudWatch{}
	p := NewMetricsPublisherWithClient(client, MetricsPublisherConfig{
		Namespace:     "Test/Namespace",
		BufferSize:    2,
		FlushInterval: time.Hour,
	}, logger.Nop())
	defer p.Close(context.Background())

	snapshot := valueobject.NewMetricSnapshot("system", time.Now(), map[valueobject.MetricKey]valueobject.Reading{
		"cpu_usage":            valueobject.MustNumeric(42),
		"memory_usage":         valueobject.MustNumeric(61),
		"disk_usage":           valueobject.MustNumeric(70),
		"adapter_status:probe": valueobject.MustCategorical("up"),
	})

	if err := p.PublishSnapshot(context.Background(), snapshot); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}
	if got := client.datumCount(); got != 2 {
		t.Fatalf("expected auto-flush of 2 datums, got %d", got)
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := client.datumCount(); got != 3 {
		t.Errorf("expected 3 datums after flush, got %d", got)
	}
}

func TestFlush_KeepsBufferOnFailure(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("throttled")}
	p := NewMetricsPublisherWithClient(client, MetricsPublisherConfig{
		Namespace:     "Test/Namespace",
		BufferSize:    10,
		FlushInterval: time.Hour,
	}, logger.Nop())
	defer p.Close(context.Background())

	snapshot := valueobject.NewMetricSnapshot("system", time.Now(), map[valueobject.MetricKey]valueobject.Reading{
		"cpu_usage": valueobject.MustNumeric(42),
	})
	if err := p.PublishSnapshot(context.Background(), snapshot); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}
	if err := p.Flush(context.Background()); err == nil {
		t.Fatal("expected flush error")
	}

	client.mu.Lock()
	client.err = nil
	client.mu.Unlock()

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := client.datumCount(); got != 1 {
		t.Errorf("expected buffered datum to be delivered, got %d", got)
	}
}
