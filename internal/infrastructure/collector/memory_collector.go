package collector

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryCollector собирает метрики памяти
type MemoryCollector struct{}

// NewMemoryCollector создает новый Memory collector
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Collect собирает Memory метрики
func (c *MemoryCollector) Collect(ctx context.Context) (map[valueobject.MetricKey]valueobject.Reading, error) {
	vmStat, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return map[valueobject.MetricKey]valueobject.Reading{
		"memory_usage":   valueobject.MustNumeric(vmStat.UsedPercent),
		"memory_used_mb": valueobject.MustNumeric(float64(vmStat.Used / 1024 / 1024)),
		"memory_free_mb": valueobject.MustNumeric(float64(vmStat.Available / 1024 / 1024)),
	}, nil
}
