package port

// Telemetry defines operational counters of the monitoring core.
// Implementations must be safe for concurrent use and must not block.
type Telemetry interface {
	SubscriberLagged()
	SubscriberDisconnected(reason string)
	SubscribersActive(n int)
	PersistenceFailed(operation string)
	SourceFailed(sourceID string)
	SourceSampled(sourceID string, seconds float64)
	AlertTransition(kind string)
	NotificationFailed(channel string)
	ReportRun(result string)
	HistorySampleDropped(reason string)
}

// NopTelemetry discards all measurements.
type NopTelemetry struct{}

func (NopTelemetry) SubscriberLagged() {}
func (NopTelemetry) SubscriberDisconnected(string) {}
func (NopTelemetry) SubscribersActive(int) {}
func (NopTelemetry) PersistenceFailed(string) {}
func (NopTelemetry) SourceFailed(string) {}
func (NopTelemetry) SourceSampled(string, float64) {}
func (NopTelemetry) AlertTransition(string) {}
func (NopTelemetry) NotificationFailed(string) {}
func (NopTelemetry) ReportRun(string) {}
func (NopTelemetry) HistorySampleDropped(string) {}
