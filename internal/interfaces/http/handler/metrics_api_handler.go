package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/monitoring-core/internal/application/usecase"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

const (
	defaultRecentWindow    = 5 * time.Minute
	defaultHistoryLookback = time.Hour
)

// MetricsAPIHandler обрабатывает API запросы для метрик
type MetricsAPIHandler struct {
	getCurrentMetricsUC *usecase.GetCurrentMetricsUseCase
	getMetricHistoryUC  *usecase.GetMetricHistoryUseCase
	defaultBucket       time.Duration
	maxRange            time.Duration
	clock               func() time.Time
	logger              *logger.Logger
}

// NewMetricsAPIHandler создает новый handler
// defaultBucket используется, если запрос истории не задает bucket
func NewMetricsAPIHandler(
	getCurrentMetricsUC *usecase.GetCurrentMetricsUseCase,
	getMetricHistoryUC *usecase.GetMetricHistoryUseCase,
	defaultBucket time.Duration,
	maxRange time.Duration,
	logger *logger.Logger,
) *MetricsAPIHandler {
	if maxRange <= 0 {
		maxRange = 7 * 24 * time.Hour
	}
	if defaultBucket <= 0 {
		defaultBucket = time.Minute
	}

	return &MetricsAPIHandler{
		getCurrentMetricsUC: getCurrentMetricsUC,
		getMetricHistoryUC:  getMetricHistoryUC,
		defaultBucket:       defaultBucket,
		maxRange:            maxRange,
		clock:               time.Now,
		logger:              logger,
	}
}

// RegisterRoutes подключает маршруты /metrics
func (h *MetricsAPIHandler) RegisterRoutes(r chi.Router) {
	r.Route("/metrics", func(r chi.Router) {
		r.Get("/current", h.GetCurrent)
		r.Get("/{key}/window", h.GetWindow)
		r.Get("/{key}/history", h.GetHistory)
	})
}

// GetCurrent возвращает последнее значение каждого ключа
func (h *MetricsAPIHandler) GetCurrent(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.getCurrentMetricsUC.Execute())
}

// GetWindow возвращает значения ключа за последние ?window= (по умолчанию 5m)
func (h *MetricsAPIHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	window, err := parseDurationParam(r, "window", defaultRecentWindow)
	if err != nil {
		writeError(w, err, h.logger, "Invalid window")
		return
	}

	result, err := h.getCurrentMetricsUC.ExecuteWindow(valueobject.MetricKey(metricKeyParam(r)), window)
	if err != nil {
		writeError(w, err, h.logger, "Failed to get metric window")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// GetHistory возвращает агрегированные бакеты за [from, to)
// Без from/to берется последний час, без bucket базовое разрешение.
func (h *MetricsAPIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeError(w, err, h.logger, "Invalid from")
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeError(w, err, h.logger, "Invalid to")
		return
	}
	bucket, err := parseDurationParam(r, "bucket", h.defaultBucket)
	if err != nil {
		writeError(w, err, h.logger, "Invalid bucket")
		return
	}

	if to.IsZero() {
		to = h.clock().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultHistoryLookback)
	}

	timeRange, err := valueobject.NewTimeRange(from, to)
	if err != nil {
		writeError(w, err, h.logger, "Invalid time range")
		return
	}
	if timeRange.Duration() > h.maxRange {
		writeErrorMessage(w, http.StatusBadRequest, "time range exceeds allowed maximum of "+h.maxRange.String())
		return
	}

	history, err := h.getMetricHistoryUC.Execute(r.Context(), valueobject.MetricKey(metricKeyParam(r)), timeRange, bucket)
	if err != nil {
		writeError(w, err, h.logger, "Failed to get metric history")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, history)
}
