package repository

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// HistoryRepository определяет интерфейс хранилища закрытых бакетов истории (Port)
type HistoryRepository interface {
	// SaveHistoryBucket сохраняет бакет базового разрешения
	// Бакет с тем же ключом и началом сливается с сохраненным.
	SaveHistoryBucket(ctx context.Context, bucket entity.HistoryBucket) error

	// LoadBuckets возвращает бакеты ключа, начало которых попадает в диапазон
	LoadBuckets(ctx context.Context, key valueobject.MetricKey, tr valueobject.TimeRange) ([]entity.HistoryBucket, error)
}
