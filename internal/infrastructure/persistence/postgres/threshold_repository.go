package postgres

import (
	"context"
	"fmt"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/jmoiron/sqlx"
)

// ThresholdRepository реализует repository.ThresholdRepository для PostgreSQL
type ThresholdRepository struct {
	db *sqlx.DB
}

// NewThresholdRepository создает новый PostgreSQL repository
func NewThresholdRepository(db *sqlx.DB) *ThresholdRepository {
	return &ThresholdRepository{db: db}
}

// SaveThreshold создает или заменяет конфигурацию ключа
func (r *ThresholdRepository) SaveThreshold(ctx context.Context, cfg *entity.ThresholdConfig) error {
	query := `
		INSERT INTO thresholds (metric_key, info_level, warning_level, critical_level, comparison,
			hysteresis_pct, hysteresis_absolute, version, updated_at)
		VALUES (:metric_key, :info_level, :warning_level, :critical_level, :comparison,
			:hysteresis_pct, :hysteresis_absolute, :version, :updated_at)
		ON CONFLICT (metric_key) DO UPDATE SET
			info_level = EXCLUDED.info_level,
			warning_level = EXCLUDED.warning_level,
			critical_level = EXCLUDED.critical_level,
			comparison = EXCLUDED.comparison,
			hysteresis_pct = EXCLUDED.hysteresis_pct,
			hysteresis_absolute = EXCLUDED.hysteresis_absolute,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, toThresholdRow(cfg)); err != nil {
		return fmt.Errorf("failed to upsert threshold: %w", err)
	}
	return nil
}

// DeleteThreshold удаляет конфигурацию ключа
func (r *ThresholdRepository) DeleteThreshold(ctx context.Context, key valueobject.MetricKey) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM thresholds WHERE metric_key = $1`, key.String()); err != nil {
		return fmt.Errorf("failed to delete threshold: %w", err)
	}
	return nil
}

// LoadThresholds возвращает все конфигурации
func (r *ThresholdRepository) LoadThresholds(ctx context.Context) ([]*entity.ThresholdConfig, error) {
	var rows []thresholdRow
	query := `
		SELECT metric_key, info_level, warning_level, critical_level, comparison,
			hysteresis_pct, hysteresis_absolute, version, updated_at
		FROM thresholds
		ORDER BY metric_key
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query thresholds: %w", err)
	}

	configs := make([]*entity.ThresholdConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := row.toEntity()
		if err != nil {
			return nil, fmt.Errorf("invalid stored threshold %s: %w", row.MetricKey, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
