package collector

import (
	"context"
	"errors"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskCollector собирает метрики дисков
type DiskCollector struct {
	mounts []string
}

// NewDiskCollector создает новый Disk collector
// Первый раздел публикуется как disk_usage, остальные как disk_usage:<mount>
func NewDiskCollector(mounts ...string) *DiskCollector {
	if len(mounts) == 0 {
		mounts = []string{"/"}
	}
	return &DiskCollector{mounts: mounts}
}

// Collect собирает Disk метрики
func (c *DiskCollector) Collect(ctx context.Context) (map[valueobject.MetricKey]valueobject.Reading, error) {
	readings := make(map[valueobject.MetricKey]valueobject.Reading, len(c.mounts)*2)
	var errs []error

	for i, mount := range c.mounts {
		usage, err := disk.UsageWithContext(ctx, mount)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		usageKey := valueobject.MetricKey("disk_usage")
		freeKey := valueobject.MetricKey("disk_free_gb")
		if i > 0 {
			usageKey = valueobject.MetricKey("disk_usage:" + mount)
			freeKey = valueobject.MetricKey("disk_free_gb:" + mount)
		}
		readings[usageKey] = valueobject.MustNumeric(usage.UsedPercent)
		readings[freeKey] = valueobject.MustNumeric(float64(usage.Free / 1024 / 1024 / 1024))
	}

	if len(readings) == 0 {
		return nil, errors.Join(errs...)
	}
	return readings, nil
}
