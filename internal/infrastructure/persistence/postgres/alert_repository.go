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

const alertColumns = `id, metric_key, severity, status, last_value, opened_at, updated_at, resolved_at, resolution, resolved_by`

// AlertRepository реализует repository.AlertRepository для PostgreSQL
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository создает новый PostgreSQL repository
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// SaveAlert создает или обновляет alert
func (r *AlertRepository) SaveAlert(ctx context.Context, alert *entity.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (:id, :metric_key, :severity, :status, :last_value, :opened_at, :updated_at, :resolved_at, :resolution, :resolved_by)
		ON CONFLICT (id) DO UPDATE SET
			severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			last_value = EXCLUDED.last_value,
			updated_at = EXCLUDED.updated_at,
			resolved_at = EXCLUDED.resolved_at,
			resolution = EXCLUDED.resolution,
			resolved_by = EXCLUDED.resolved_by
	`

	if _, err := r.db.NamedExecContext(ctx, query, toAlertRow(alert)); err != nil {
		return fmt.Errorf("failed to upsert alert: %w", err)
	}
	return nil
}

// LoadOpenAlerts возвращает все открытые alert'ы
func (r *AlertRepository) LoadOpenAlerts(ctx context.Context) ([]*entity.Alert, error) {
	var rows []alertRow
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE status = $1 ORDER BY opened_at`
	if err := r.db.SelectContext(ctx, &rows, query, string(entity.AlertOpen)); err != nil {
		return nil, fmt.Errorf("failed to query open alerts: %w", err)
	}
	return toAlerts(rows), nil
}

// FindAlertByID находит alert по идентификатору
func (r *AlertRepository) FindAlertByID(ctx context.Context, id string) (*entity.Alert, error) {
	var row alertRow
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query alert: %w", err)
	}
	return row.toEntity(), nil
}

// FindResolvedBetween возвращает alert'ы, закрытые в интервале [from, to)
func (r *AlertRepository) FindResolvedBetween(ctx context.Context, from, to time.Time) ([]*entity.Alert, error) {
	var rows []alertRow
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE resolved_at >= $1 AND resolved_at < $2
		ORDER BY resolved_at
	`
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to query resolved alerts: %w", err)
	}
	return toAlerts(rows), nil
}

func toAlerts(rows []alertRow) []*entity.Alert {
	alerts := make([]*entity.Alert, len(rows))
	for i, row := range rows {
		alerts[i] = row.toEntity()
	}
	return alerts
}
