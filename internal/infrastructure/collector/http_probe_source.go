package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// Статусы внешнего адаптера
const (
	StatusUp       = "up"
	StatusDegraded = "degraded"
)

// HTTPProbeSource опрашивает health endpoint внешнего адаптера
// Публикует adapter_status:<name> (up/degraded), adapter_up:<name> (1/0)
// и adapter_latency_ms:<name>. Ошибка транспорта означает недоступность источника.
type HTTPProbeSource struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewHTTPProbeSource создает HTTP-пробу
func NewHTTPProbeSource(name, url string, client *http.Client) *HTTPProbeSource {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPProbeSource{
		name:       name,
		url:        url,
		httpClient: client,
	}
}

// ID возвращает идентификатор источника
func (s *HTTPProbeSource) ID() string {
	return "probe:" + s.name
}

// Sample выполняет один GET-запрос; таймаут задается дедлайном ctx
func (s *HTTPProbeSource) Sample(ctx context.Context) (valueobject.MetricSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return valueobject.MetricSnapshot{}, errs.SourceUnavailable(s.ID(), fmt.Errorf("failed to create request: %w", err))
	}

	started := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return valueobject.MetricSnapshot{}, errs.SourceUnavailable(s.ID(), fmt.Errorf("failed to perform health check: %w", err))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	latency := time.Since(started)

	status, up := StatusUp, 1.0
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status, up = StatusDegraded, 0
	}

	return valueobject.NewMetricSnapshot(s.ID(), time.Now(), map[valueobject.MetricKey]valueobject.Reading{
		valueobject.MetricKey("adapter_status:" + s.name):     valueobject.MustCategorical(status),
		valueobject.MetricKey("adapter_up:" + s.name):         valueobject.MustNumeric(up),
		valueobject.MetricKey("adapter_latency_ms:" + s.name): valueobject.MustNumeric(float64(latency.Microseconds()) / 1000),
	}), nil
}
