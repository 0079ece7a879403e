package collector

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/shirou/gopsutil/v3/net"
)

// NetworkCollector собирает скорость сети
// Скорость считается по разнице счетчиков между вызовами, первый вызов ничего не возвращает
type NetworkCollector struct {
	mu            sync.Mutex
	lastStat      *net.IOCountersStat
	lastCheckTime time.Time
}

// NewNetworkCollector создает новый Network collector
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{}
}

// Collect собирает Network метрики
func (c *NetworkCollector) Collect(ctx context.Context) (map[valueobject.MetricKey]valueobject.Reading, error) {
	stats, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return map[valueobject.MetricKey]valueobject.Reading{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	currentTime := time.Now()
	current := stats[0]
	readings := make(map[valueobject.MetricKey]valueobject.Reading, 2)

	if c.lastStat != nil {
		duration := currentTime.Sub(c.lastCheckTime).Seconds()
		// Счетчики могли сброситься после перезапуска интерфейса
		if duration > 0 && current.BytesSent >= c.lastStat.BytesSent && current.BytesRecv >= c.lastStat.BytesRecv {
			readings["network_sent_kbps"] = valueobject.MustNumeric(float64(current.BytesSent-c.lastStat.BytesSent) / duration / 1024)
			readings["network_recv_kbps"] = valueobject.MustNumeric(float64(current.BytesRecv-c.lastStat.BytesRecv) / duration / 1024)
		}
	}

	c.lastStat = &current
	c.lastCheckTime = currentTime

	return readings, nil
}
