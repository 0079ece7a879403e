package collector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
)

// DBPinger подмножество *sql.DB / *sqlx.DB, нужное источнику
type DBPinger interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// DatabaseSource измеряет доступность и загрузку пула соединений БД
type DatabaseSource struct {
	name string
	db   DBPinger
}

// NewDatabaseSource создает источник для пула соединений
func NewDatabaseSource(name string, db DBPinger) *DatabaseSource {
	return &DatabaseSource{name: name, db: db}
}

// ID возвращает идентификатор источника
func (s *DatabaseSource) ID() string {
	return "db:" + s.name
}

// Sample выполняет ping и снимает статистику пула
func (s *DatabaseSource) Sample(ctx context.Context) (valueobject.MetricSnapshot, error) {
	started := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return valueobject.MetricSnapshot{}, errs.SourceUnavailable(s.ID(), fmt.Errorf("ping failed: %w", err))
	}
	latency := time.Since(started)
	stats := s.db.Stats()

	return valueobject.NewMetricSnapshot(s.ID(), time.Now(), map[valueobject.MetricKey]valueobject.Reading{
		"database_latency_ms":   valueobject.MustNumeric(float64(latency.Microseconds()) / 1000),
		"database_open_conns":   valueobject.MustNumeric(float64(stats.OpenConnections)),
		"database_in_use_conns": valueobject.MustNumeric(float64(stats.InUse)),
		"database_wait_count":   valueobject.MustNumeric(float64(stats.WaitCount)),
	}), nil
}
