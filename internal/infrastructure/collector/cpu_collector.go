package collector

import (
	"context"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUCollector собирает метрики CPU
type CPUCollector struct {
	window time.Duration
}

// NewCPUCollector создает новый CPU collector
// window задает интервал замера; 0 сравнивает с предыдущим вызовом
func NewCPUCollector(window time.Duration) *CPUCollector {
	return &CPUCollector{window: window}
}

// Collect собирает CPU метрики
func (c *CPUCollector) Collect(ctx context.Context) (map[valueobject.MetricKey]valueobject.Reading, error) {
	percentages, err := cpu.PercentWithContext(ctx, c.window, false)
	if err != nil {
		return nil, err
	}

	readings := make(map[valueobject.MetricKey]valueobject.Reading, 2)
	if len(percentages) > 0 {
		if r, err := valueobject.NewNumericReading(percentages[0]); err == nil {
			readings["cpu_usage"] = r
		}
	}

	// Количество логических ядер
	if counts, err := cpu.CountsWithContext(ctx, true); err == nil {
		readings["cpu_cores"] = valueobject.MustNumeric(float64(counts))
	}

	return readings, nil
}
