package port

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// MetricsPublisher defines the interface for exporting sampled readings to external observability platforms.
type MetricsPublisher interface {
	// PublishSnapshot exports numeric readings of a snapshot.
	// Implementations may buffer and batch (e.g., CloudWatch's 1000 metrics/request limit).
	PublishSnapshot(ctx context.Context, snapshot valueobject.MetricSnapshot) error

	// Flush forces immediate publication of any buffered metrics.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
