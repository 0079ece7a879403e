package repository

import (
	"context"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

// ReportJobRepository определяет интерфейс хранилища задач отчетов (Port)
type ReportJobRepository interface {
	// SaveReportJob создает или обновляет параметры задачи
	// Не изменяет LastRunAt и LastManualRunAt существующей записи
	SaveReportJob(ctx context.Context, job *entity.ReportJob) error

	// FindReportJob находит задачу по идентификатору, errs.ErrNotFound если ее нет
	FindReportJob(ctx context.Context, id string) (*entity.ReportJob, error)

	// ListReportJobs возвращает все задачи
	ListReportJobs(ctx context.Context) ([]*entity.ReportJob, error)

	// ClaimRun атомарно переводит LastRunAt из expected в runAt
	// Возвращает false, если запуск уже забран другим экземпляром
	ClaimRun(ctx context.Context, id string, expected, runAt time.Time) (bool, error)

	// RecordManualRun фиксирует ручной запуск
	RecordManualRun(ctx context.Context, id string, at time.Time) error
}
