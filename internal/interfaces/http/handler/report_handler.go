package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/usecase"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// ReportHandler обрабатывает запросы к задачам отчетов
type ReportHandler struct {
	manageReportsUC *usecase.ManageReportsUseCase
	logger          *logger.Logger
}

// NewReportHandler создает новый handler
func NewReportHandler(manageReportsUC *usecase.ManageReportsUseCase, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{
		manageReportsUC: manageReportsUC,
		logger:          logger,
	}
}

// RegisterRoutes подключает маршруты /reports
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/run", h.RunNow)
	})
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.manageReportsUC.List(r.Context())
	if err != nil {
		writeError(w, err, h.logger, "Failed to list report jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, jobs)
}

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := h.manageReportsUC.Create(r.Context(), req)
	if err != nil {
		writeError(w, err, h.logger, "Failed to create report job")
		return
	}
	w.Header().Set("Location", "/api/v1/reports/"+job.ID)
	middleware.WriteJSON(w, http.StatusCreated, job)
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.manageReportsUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, h.logger, "Failed to get report job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.ReportJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	job, err := h.manageReportsUC.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, err, h.logger, "Failed to update report job")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// RunNow формирует отчет немедленно и возвращает его вместе с результатами доставки
func (h *ReportHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	payload, err := h.manageReportsUC.RunNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, h.logger, "Failed to run report")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, payload)
}
