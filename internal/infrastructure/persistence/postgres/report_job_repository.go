package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/jmoiron/sqlx"
)

const reportJobColumns = `id, name, cadence_seconds, recipients, sections, metric_keys, enabled,
	last_run_at, last_manual_run_at, created_at, updated_at`

// ReportJobRepository реализует repository.ReportJobRepository для PostgreSQL
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository создает новый PostgreSQL repository
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// SaveReportJob создает или обновляет параметры задачи, не трогая время запусков
func (r *ReportJobRepository) SaveReportJob(ctx context.Context, job *entity.ReportJob) error {
	query := `
		INSERT INTO report_jobs (` + reportJobColumns + `)
		VALUES (:id, :name, :cadence_seconds, :recipients, :sections, :metric_keys, :enabled,
			:last_run_at, :last_manual_run_at, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			cadence_seconds = EXCLUDED.cadence_seconds,
			recipients = EXCLUDED.recipients,
			sections = EXCLUDED.sections,
			metric_keys = EXCLUDED.metric_keys,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, toReportJobRow(job)); err != nil {
		return fmt.Errorf("failed to upsert report job: %w", err)
	}
	return nil
}

// FindReportJob находит задачу по идентификатору
func (r *ReportJobRepository) FindReportJob(ctx context.Context, id string) (*entity.ReportJob, error) {
	var row reportJobRow
	query := `SELECT ` + reportJobColumns + ` FROM report_jobs WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query report job: %w", err)
	}
	return row.toEntity(), nil
}

// ListReportJobs возвращает все задачи
func (r *ReportJobRepository) ListReportJobs(ctx context.Context) ([]*entity.ReportJob, error) {
	var rows []reportJobRow
	query := `SELECT ` + reportJobColumns + ` FROM report_jobs ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query report jobs: %w", err)
	}

	jobs := make([]*entity.ReportJob, len(rows))
	for i, row := range rows {
		jobs[i] = row.toEntity()
	}
	return jobs, nil
}

// ClaimRun атомарно переводит last_run_at из expected в runAt
func (r *ReportJobRepository) ClaimRun(ctx context.Context, id string, expected, runAt time.Time) (bool, error) {
	query := `
		UPDATE report_jobs
		SET last_run_at = $3
		WHERE id = $1 AND last_run_at IS NOT DISTINCT FROM $2
	`
	res, err := r.db.ExecContext(ctx, query, id, nullTime(expected), runAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim report run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	// Различаем отсутствующую задачу и проигранную гонку
	if _, err := r.FindReportJob(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// RecordManualRun фиксирует ручной запуск
func (r *ReportJobRepository) RecordManualRun(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE report_jobs SET last_manual_run_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to record manual run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}
