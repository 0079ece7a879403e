package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/monitoring-core/internal/application/usecase"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// HealthCheckHandler запускает ручную проверку источников
type HealthCheckHandler struct {
	runHealthCheckUC *usecase.RunHealthCheckUseCase
	logger           *logger.Logger
}

// NewHealthCheckHandler создает новый handler
func NewHealthCheckHandler(runHealthCheckUC *usecase.RunHealthCheckUseCase, logger *logger.Logger) *HealthCheckHandler {
	return &HealthCheckHandler{
		runHealthCheckUC: runHealthCheckUC,
		logger:           logger,
	}
}

// RegisterRoutes подключает маршрут /health-check
func (h *HealthCheckHandler) RegisterRoutes(r chi.Router) {
	r.Post("/health-check", h.Run)
}

// Run опрашивает все источники и выполняет тик оценки
// Отказ отдельного источника не делает ответ ошибочным: он отражен в sources[].
func (h *HealthCheckHandler) Run(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.runHealthCheckUC.Execute(r.Context()))
}
