package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/usecase"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// AlertHandler обрабатывает запросы к alert'ам
type AlertHandler struct {
	manageAlertsUC *usecase.ManageAlertsUseCase
	authConfig     middleware.AuthConfig
	logger         *logger.Logger
}

// NewAlertHandler создает новый handler
func NewAlertHandler(
	manageAlertsUC *usecase.ManageAlertsUseCase,
	authConfig middleware.AuthConfig,
	logger *logger.Logger,
) *AlertHandler {
	return &AlertHandler{
		manageAlertsUC: manageAlertsUC,
		authConfig:     authConfig,
		logger:         logger,
	}
}

// RegisterRoutes подключает маршруты /alerts
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/resolve", h.Resolve)
	})
}

// List возвращает открытые alert'ы, либо закрытые при status=resolved
// Для закрытых можно задать интервал from/to.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	switch status := r.URL.Query().Get("status"); status {
	case "", "open":
		middleware.WriteJSON(w, http.StatusOK, h.manageAlertsUC.ListOpen())
	case "resolved":
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
		alerts, err := h.manageAlertsUC.ListResolved(r.Context(), from, to)
		if err != nil {
			writeError(w, err, h.logger, "Failed to list resolved alerts")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, alerts)
	default:
		writeErrorMessage(w, http.StatusBadRequest, "status must be open or resolved")
	}
}

// Get возвращает alert по идентификатору
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	alert, err := h.manageAlertsUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, h.logger, "Failed to get alert")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, alert)
}

// Resolve закрывает alert вручную
// Повторное закрытие возвращает 409.
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req dto.ResolveAlertRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	alert, err := h.manageAlertsUC.Resolve(r.Context(), chi.URLParam(r, "id"), req, middleware.Actor(r, h.authConfig))
	if err != nil {
		writeError(w, err, h.logger, "Failed to resolve alert")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, alert)
}
