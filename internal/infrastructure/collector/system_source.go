package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// ReadingCollector собирает часть значений источника
type ReadingCollector interface {
	Collect(ctx context.Context) (map[valueobject.MetricKey]valueobject.Reading, error)
}

// SystemSource собирает системные метрики хоста
// Реализует интерфейс port.MetricSource
type SystemSource struct {
	id         string
	collectors []ReadingCollector
}

// NewSystemSource создает источник с CPU, памятью, дисками и сетью
func NewSystemSource(id string, cpuWindow time.Duration, mounts ...string) *SystemSource {
	return NewSystemSourceWith(id,
		NewCPUCollector(cpuWindow),
		NewMemoryCollector(),
		NewDiskCollector(mounts...),
		NewNetworkCollector(),
	)
}

// NewSystemSourceWith создает источник из произвольного набора collector'ов
func NewSystemSourceWith(id string, collectors ...ReadingCollector) *SystemSource {
	return &SystemSource{id: id, collectors: collectors}
}

// ID возвращает идентификатор источника
func (s *SystemSource) ID() string {
	return s.id
}

// Sample собирает все метрики параллельно
// Ошибка возвращается, только если не сработал ни один collector
func (s *SystemSource) Sample(ctx context.Context) (valueobject.MetricSnapshot, error) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	readings := make(map[valueobject.MetricKey]valueobject.Reading)
	var failures []error

	for _, c := range s.collectors {
		wg.Add(1)
		go func(c ReadingCollector) {
			defer wg.Done()
			part, err := c.Collect(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			for k, v := range part {
				readings[k] = v
			}
		}(c)
	}
	wg.Wait()

	if len(failures) > 0 && len(failures) == len(s.collectors) {
		return valueobject.MetricSnapshot{}, errs.SourceUnavailable(s.id, errors.Join(failures...))
	}
	if err := ctx.Err(); err != nil && len(readings) == 0 {
		return valueobject.MetricSnapshot{}, errs.SourceUnavailable(s.id, fmt.Errorf("sampling cancelled: %w", err))
	}

	return valueobject.NewMetricSnapshot(s.id, time.Now(), readings), nil
}
