package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/report"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// ManageReportsUseCase админские операции над задачами отчетов
type ManageReportsUseCase struct {
	scheduler *report.Scheduler
	logger    *logger.Logger
}

// NewManageReportsUseCase создает новый use case
func NewManageReportsUseCase(scheduler *report.Scheduler, logger *logger.Logger) *ManageReportsUseCase {
	return &ManageReportsUseCase{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Create создает задачу отчета
func (uc *ManageReportsUseCase) Create(ctx context.Context, req dto.ReportJobRequest) (*dto.ReportJobDTO, error) {
	params, err := req.ToParams()
	if err != nil {
		return nil, errs.ConfigInvalid("invalid cadence %q: %v", req.Cadence, err)
	}
	job, err := uc.scheduler.ScheduleJob(ctx, params)
	if err != nil {
		return nil, err
	}
	return dto.FromReportJob(job), nil
}

// Update заменяет параметры задачи
func (uc *ManageReportsUseCase) Update(ctx context.Context, id string, req dto.ReportJobRequest) (*dto.ReportJobDTO, error) {
	params, err := req.ToParams()
	if err != nil {
		return nil, errs.ConfigInvalid("invalid cadence %q: %v", req.Cadence, err)
	}
	job, err := uc.scheduler.UpdateJob(ctx, id, params)
	if err != nil {
		return nil, err
	}
	return dto.FromReportJob(job), nil
}

// Get возвращает задачу по идентификатору
func (uc *ManageReportsUseCase) Get(ctx context.Context, id string) (*dto.ReportJobDTO, error) {
	job, err := uc.scheduler.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.FromReportJob(job), nil
}

// List возвращает все задачи
func (uc *ManageReportsUseCase) List(ctx context.Context) ([]*dto.ReportJobDTO, error) {
	jobs, err := uc.scheduler.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	return dto.ToReportJobDTOs(jobs), nil
}

// RunNow формирует отчет вне расписания
func (uc *ManageReportsUseCase) RunNow(ctx context.Context, id string) (*dto.ReportPayload, error) {
	payload, err := uc.scheduler.RunNow(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to run report: %w", err)
	}
	return payload, nil
}
