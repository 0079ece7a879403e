package postgres

import (
	"context"
	"fmt"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/jmoiron/sqlx"
)

// HistoryRepository реализует repository.HistoryRepository для PostgreSQL
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository создает новый PostgreSQL repository
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveHistoryBucket сохраняет бакет; запись с тем же началом сливается с сохраненной
// Так частичный бакет, записанный при остановке, дополняется после рестарта.
func (r *HistoryRepository) SaveHistoryBucket(ctx context.Context, bucket entity.HistoryBucket) error {
	query := `
		INSERT INTO history_buckets (metric_key, bucket_start, duration_seconds, min_value, max_value, sum_value, sample_count)
		VALUES (:metric_key, :bucket_start, :duration_seconds, :min_value, :max_value, :sum_value, :sample_count)
		ON CONFLICT (metric_key, bucket_start) DO UPDATE SET
			duration_seconds = EXCLUDED.duration_seconds,
			min_value = LEAST(history_buckets.min_value, EXCLUDED.min_value),
			max_value = GREATEST(history_buckets.max_value, EXCLUDED.max_value),
			sum_value = history_buckets.sum_value + EXCLUDED.sum_value,
			sample_count = history_buckets.sample_count + EXCLUDED.sample_count
	`

	if _, err := r.db.NamedExecContext(ctx, query, toBucketRow(bucket)); err != nil {
		return fmt.Errorf("failed to upsert history bucket: %w", err)
	}
	return nil
}

// LoadBuckets возвращает бакеты ключа, начало которых попадает в диапазон
func (r *HistoryRepository) LoadBuckets(ctx context.Context, key valueobject.MetricKey, tr valueobject.TimeRange) ([]entity.HistoryBucket, error) {
	var rows []bucketRow
	query := `
		SELECT metric_key, bucket_start, duration_seconds, min_value, max_value, sum_value, sample_count
		FROM history_buckets
		WHERE metric_key = $1 AND bucket_start >= $2 AND bucket_start < $3
		ORDER BY bucket_start
	`
	if err := r.db.SelectContext(ctx, &rows, query, key.String(), tr.Start(), tr.End()); err != nil {
		return nil, fmt.Errorf("failed to query history buckets: %w", err)
	}

	buckets := make([]entity.HistoryBucket, len(rows))
	for i, row := range rows {
		buckets[i] = row.toEntity()
	}
	return buckets, nil
}
