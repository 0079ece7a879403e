package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/usecase"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// ThresholdHandler обрабатывает CRUD конфигураций порогов
type ThresholdHandler struct {
	manageThresholdsUC *usecase.ManageThresholdsUseCase
	logger             *logger.Logger
}

// NewThresholdHandler создает новый handler
func NewThresholdHandler(manageThresholdsUC *usecase.ManageThresholdsUseCase, logger *logger.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		manageThresholdsUC: manageThresholdsUC,
		logger:             logger,
	}
}

// RegisterRoutes подключает маршруты /thresholds
func (h *ThresholdHandler) RegisterRoutes(r chi.Router) {
	r.Route("/thresholds", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{key}", h.Get)
		r.Put("/{key}", h.Put)
		r.Delete("/{key}", h.Delete)
	})
}

// List возвращает все конфигурации
func (h *ThresholdHandler) List(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.manageThresholdsUC.List())
}

// Get возвращает конфигурацию ключа
func (h *ThresholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.manageThresholdsUC.Get(metricKeyParam(r))
	if err != nil {
		writeError(w, err, h.logger, "Failed to get threshold")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cfg)
}

// Put создает или заменяет конфигурацию
func (h *ThresholdHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req dto.ThresholdRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExpectedVersion == nil {
		v, err := parseVersionParam(r)
		if err != nil {
			writeError(w, err, h.logger, "Invalid version")
			return
		}
		req.ExpectedVersion = v
	}

	cfg, err := h.manageThresholdsUC.Put(r.Context(), metricKeyParam(r), req)
	if err != nil {
		writeError(w, err, h.logger, "Failed to put threshold")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cfg)
}

// Delete удаляет конфигурацию
func (h *ThresholdHandler) Delete(w http.ResponseWriter, r *http.Request) {
	version, err := parseVersionParam(r)
	if err != nil {
		writeError(w, err, h.logger, "Invalid version")
		return
	}
	if err := h.manageThresholdsUC.Delete(r.Context(), metricKeyParam(r), version); err != nil {
		writeError(w, err, h.logger, "Failed to delete threshold")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// metricKeyParam возвращает ключ метрики из пути; ключи вида name:instance могут прийти экранированными
func metricKeyParam(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	if key, err := url.PathUnescape(raw); err == nil {
		return key
	}
	return raw
}
