package cloudwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	applicationPort "github.com/dreschagin/monitoring-core/internal/application/port"
)

func TestConvertToLogEvent(t *testing.T) {
	p := &LogsPublisher{
		logGroupName:  "/aws/test",
		logStreamName: "test-stream",
	}

	timestamp := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelInfo,
		Message:   "Test message",
		Fields: map[string]interface{}{
			"user_id": "12345",
			"action":  "login",
			"count":   42,
		},
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	// Verify timestamp
	expectedTimestamp := timestamp.UnixMilli()
	if event.Timestamp == nil || *event.Timestamp != expectedTimestamp {
		t.Errorf("Expected Timestamp=%d, got %v", expectedTimestamp, event.Timestamp)
	}

	// Verify message is valid JSON
	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(*event.Message), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}

	// Verify structured fields
	if logData["level"] != string(applicationPort.LogLevelInfo) {
		t.Errorf("Expected level=INFO, got %v", logData["level"])
	}

	if logData["message"] != "Test message" {
		t.Errorf("Expected message='Test message', got %v", logData["message"])
	}

	fields, ok := logData["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected fields to be a map")
	}

	if fields["user_id"] != "12345" {
		t.Errorf("Expected user_id=12345, got %v", fields["user_id"])
	}

	if fields["action"] != "login" {
		t.Errorf("Expected action=login, got %v", fields["action"])
	}

	// Note: JSON numbers are float64
	if count, ok := fields["count"].(float64); !ok || count != 42 {
		t.Errorf("Expected count=42, got %v", fields["count"])
	}
}

func TestConvertToLogEvent_NoFields(t *testing.T) {
	p := &LogsPublisher{
		logGroupName:  "/aws/test",
		logStreamName: "test-stream",
	}

	timestamp := time.Now()
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelError,
		Message:   "Error occurred",
		Fields:    nil,
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(*event.Message), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}

	if logData["level"] != string(applicationPort.LogLevelError) {
		t.Errorf("Expected level=ERROR, got %v", logData["level"])
	}

	if logData["message"] != "Error occurred" {
		t.Errorf("Expected message='Error occurred', got %v", logData["message"])
	}
}

func TestConvertToLogEvent_Truncation(t *testing.T) {
	p := &LogsPublisher{
		logGroupName:  "/aws/test",
		logStreamName: "test-stream",
	}

	// Create a very large message that exceeds CloudWatch limit
	largeMessage := string(make([]byte, maxLogEventSize+1000))

	timestamp := time.Now()
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelInfo,
		Message:   largeMessage,
		Fields:    nil,
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	// Verify message was truncated
	messageLen := len(*event.Message)
	if messageLen > maxLogEventSize {
		t.Errorf("Expected message to be truncated to %d bytes, got %d", maxLogEventSize, messageLen)
	}

	// Verify truncation marker
	if messageLen >= 3 {
		lastThree := (*event.Message)[messageLen-3:]
		if lastThree != "..." {
			t.Error("Expected truncation marker '...' at end of message")
		}
	}
}

type fakeLogs struct {
	mu            sync.Mutex
	puts          []*cloudwatchlogs.PutLogEventsInput
	rejectToken   string
	groupExists   bool
	streamCreated bool
}

func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectToken != "" && aws.ToString(in.SequenceToken) != f.rejectToken {
		// SDK оборачивает ошибки сервиса
		return nil, fmt.Errorf("operation error: %w", &types.InvalidSequenceTokenException{ExpectedSequenceToken: aws.String(f.rejectToken)})
	}
	f.puts = append(f.puts, in)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: aws.String("next")}, nil
}

func (f *fakeLogs) CreateLogGroup(_ context.Context, _ *cloudwatchlogs.CreateLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	if f.groupExists {
		return nil, fmt.Errorf("operation error: %w", &types.ResourceAlreadyExistsException{})
	}
	return &cloudwatchlogs.CreateLogGroupOutput{}, nil
}

func (f *fakeLogs) CreateLogStream(_ context.Context, _ *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.streamCreated = true
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func newTestLogsPublisher(t *testing.T, client *fakeLogs) *LogsPublisher {
	t.Helper()
	p, err := NewLogsPublisherWithClient(context.Background(), client, LogsPublisherConfig{
		LogGroupName:  "/monitoring/core",
		LogStreamName: "test",
		Service:       "monitoring-core",
		BufferSize:    100,
		FlushInterval: time.Hour,
		AutoCreate:    true,
	})
	if err != nil {
		t.Fatalf("NewLogsPublisherWithClient() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestLogsPublisher_AutoCreateToleratesExistingGroup(t *testing.T) {
	client := &fakeLogs{groupExists: true}
	newTestLogsPublisher(t, client)

	if !client.streamCreated {
		t.Error("expected log stream to be created")
	}
}

func TestLogsPublisher_FlushSortsChronologically(t *testing.T) {
	client := &fakeLogs{}
	p := newTestLogsPublisher(t, client)

	now := time.Now()
	entries := []applicationPort.LogEntry{
		{Timestamp: now.Add(5 * time.Second), Level: applicationPort.LogLevelInfo, Message: "Third"},
		{Timestamp: now, Level: applicationPort.LogLevelInfo, Message: "First"},
		{Timestamp: now.Add(2 * time.Second), Level: applicationPort.LogLevelWarn, Message: "Second"},
	}
	if err := p.PublishBatch(context.Background(), entries); err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.puts) != 1 {
		t.Fatalf("expected 1 PutLogEvents call, got %d", len(client.puts))
	}

	want := []string{"First", "Second", "Third"}
	for i, ev := range client.puts[0].LogEvents {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(*ev.Message), &data); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if data["message"] != want[i] {
			t.Errorf("event %d = %v, want %s", i, data["message"], want[i])
		}
		if data["service"] != "monitoring-core" {
			t.Errorf("event %d service = %v", i, data["service"])
		}
	}
}

func TestLogsPublisher_RetriesWithExpectedSequenceToken(t *testing.T) {
	client := &fakeLogs{rejectToken: "expected"}
	p := newTestLogsPublisher(t, client)

	if err := p.Publish(context.Background(), applicationPort.LogEntry{
		Timestamp: time.Now(),
		Level:     applicationPort.LogLevelError,
		Message:   "boom",
	}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.puts) != 1 {
		t.Fatalf("expected the retried call to succeed once, got %d", len(client.puts))
	}
}
