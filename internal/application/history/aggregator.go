package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/repository"
	"github.com/dreschagin/monitoring-core/internal/domain/service"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

const (
	DefaultResolution   = time.Minute
	DefaultRetention    = 24 * 60
	DefaultPersistQueue = 1024
	// MaxQueryBuckets ограничивает размер ответа одного запроса
	MaxQueryBuckets = 10_000

	persistTimeout = 5 * time.Second
)

// Config параметры HistoryAggregator
type Config struct {
	// Resolution длительность базового бакета
	Resolution time.Duration
	// Retention сколько закрытых бакетов ключа держать в памяти
	Retention int
	// PersistQueue емкость очереди записи закрытых бакетов
	PersistQueue int
	// FlushInterval как часто закрывать бакеты без новых значений
	FlushInterval time.Duration
}

// series бакеты одного ключа
type series struct {
	mu      sync.Mutex
	current *entity.HistoryBucket
	closed  []entity.HistoryBucket
}

// Aggregator сворачивает поток значений в бакеты истории
// Каждое значение обрабатывается за O(1): обновляются сумма, счетчик, min и max
// текущего бакета. Закрытые бакеты пишутся в репозиторий фоновым циклом Run.
type Aggregator struct {
	cfg       Config
	repo      repository.HistoryRepository
	merger    *service.MetricAggregator
	telemetry port.Telemetry
	logger    *logger.Logger
	clock     func() time.Time

	mu     sync.RWMutex
	series map[valueobject.MetricKey]*series

	persistCh chan entity.HistoryBucket
}

// New создает HistoryAggregator
func New(cfg Config, repo repository.HistoryRepository, telemetry port.Telemetry, log *logger.Logger) *Aggregator {
	if cfg.Resolution <= 0 {
		cfg.Resolution = DefaultResolution
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.PersistQueue <= 0 {
		cfg.PersistQueue = DefaultPersistQueue
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = cfg.Resolution / 4
	}
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}

	return &Aggregator{
		cfg:       cfg,
		repo:      repo,
		merger:    service.NewMetricAggregator(),
		telemetry: telemetry,
		logger:    log,
		clock:     time.Now,
		series:    make(map[valueobject.MetricKey]*series),
		persistCh: make(chan entity.HistoryBucket, cfg.PersistQueue),
	}
}

// WithClock подменяет источник времени (для тестов)
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// Resolution возвращает длительность базового бакета
func (a *Aggregator) Resolution() time.Duration {
	return a.cfg.Resolution
}

// OnIngest добавляет значение в текущий бакет ключа (registry.Observer)
// Значения старее текущего бакета отбрасываются
func (a *Aggregator) OnIngest(key valueobject.MetricKey, sample valueobject.Sample) {
	if !sample.Reading.IsNumeric() {
		return
	}

	s := a.seriesFor(key)
	start := valueobject.AlignDown(sample.Timestamp, a.cfg.Resolution)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.current == nil:
		if n := len(s.closed); n > 0 && start.Before(s.closed[n-1].End()) {
			a.dropLate(key, sample)
			return
		}
		a.openBucket(s, key, start)

	case sample.Timestamp.Before(s.current.Start):
		a.dropLate(key, sample)
		return

	case start.After(s.current.Start):
		a.closeCurrent(s)
		a.openBucket(s, key, start)
	}

	s.current.Add(sample.Reading.Value())
}

// Flush закрывает бакеты, конец которых не позже now
func (a *Aggregator) Flush(now time.Time) int {
	closed := 0
	for _, s := range a.allSeries() {
		s.mu.Lock()
		if s.current != nil && !now.Before(s.current.End()) {
			a.closeCurrent(s)
			closed++
		}
		s.mu.Unlock()
	}
	return closed
}

// Run записывает закрытые бакеты и периодически вызывает Flush
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	a.logger.Info("History aggregator started",
		"resolution", a.cfg.Resolution.String(),
		"retention_buckets", a.cfg.Retention)

	for {
		select {
		case bucket := <-a.persistCh:
			a.persist(ctx, bucket)
		case <-ticker.C:
			a.Flush(a.clock())
		case <-ctx.Done():
			a.shutdown()
			a.logger.Info("History aggregator stopped")
			return
		}
	}
}

// Query возвращает бакеты длины bucket, покрывающие диапазон tr
// bucket должен быть кратен базовому разрешению. Пустые интервалы возвращаются
// с Count == 0, текущий бакет помечается Final == false.
func (a *Aggregator) Query(
	ctx context.Context,
	key valueobject.MetricKey,
	tr valueobject.TimeRange,
	bucket time.Duration,
) ([]entity.HistoryBucket, error) {
	if err := a.merger.ValidateBucketDuration(bucket, a.cfg.Resolution); err != nil {
		return nil, fmt.Errorf("bucket %s with resolution %s: %w", bucket, a.cfg.Resolution, err)
	}

	aligned := tr.Align(bucket)
	if aligned.Duration()/bucket > MaxQueryBuckets {
		return nil, fmt.Errorf("query spans more than %d buckets: %w", MaxQueryBuckets, errs.ErrInvalidTimeRange)
	}

	base, memoryFrom := a.inMemory(key, aligned)

	if aligned.Start().Before(memoryFrom) {
		end := memoryFrom
		if aligned.End().Before(end) {
			end = aligned.End()
		}
		older, err := valueobject.NewTimeRange(aligned.Start(), end)
		if err == nil {
			stored, loadErr := a.repo.LoadBuckets(ctx, key, older)
			if loadErr != nil {
				return nil, fmt.Errorf("failed to load history buckets: %w", loadErr)
			}
			for _, b := range stored {
				b.Final = true
				base = append(base, b)
			}
		}
	}

	return a.merger.MergeRange(key, base, aligned, bucket, a.openFrom(key)), nil
}

// inMemory возвращает бакеты ключа из памяти в диапазоне и начало покрытия памяти
func (a *Aggregator) inMemory(key valueobject.MetricKey, tr valueobject.TimeRange) ([]entity.HistoryBucket, time.Time) {
	memoryFrom := valueobject.AlignDown(a.clock(), a.cfg.Resolution)

	a.mu.RLock()
	s, ok := a.series[key]
	a.mu.RUnlock()
	if !ok {
		return nil, memoryFrom
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []entity.HistoryBucket
	if len(s.closed) > 0 {
		memoryFrom = s.closed[0].Start
	} else if s.current != nil && s.current.Start.Before(memoryFrom) {
		memoryFrom = s.current.Start
	}

	for _, b := range s.closed {
		if tr.Contains(b.Start) {
			result = append(result, b)
		}
	}
	if s.current != nil && tr.Contains(s.current.Start) {
		result = append(result, *s.current)
	}
	return result, memoryFrom
}

// openFrom возвращает начало первого бакета, который еще может измениться
func (a *Aggregator) openFrom(key valueobject.MetricKey) time.Time {
	from := valueobject.AlignDown(a.clock(), a.cfg.Resolution)

	a.mu.RLock()
	s, ok := a.series[key]
	a.mu.RUnlock()
	if !ok {
		return from
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Start.Before(from) {
		return s.current.Start
	}
	return from
}

// closeCurrent закрывает текущий бакет; вызывается под s.mu
func (a *Aggregator) closeCurrent(s *series) {
	b := *s.current
	b.Final = true
	s.current = nil

	s.closed = append(s.closed, b)
	if over := len(s.closed) - a.cfg.Retention; over > 0 {
		s.closed = append(s.closed[:0:0], s.closed[over:]...)
	}

	select {
	case a.persistCh <- b:
	default:
		a.telemetry.HistorySampleDropped("persist_queue_full")
		a.logger.Warn("History persist queue full, bucket kept in memory only",
			"key", b.MetricKey, "start", b.Start)
	}
}

func (a *Aggregator) openBucket(s *series, key valueobject.MetricKey, start time.Time) {
	b := entity.NewHistoryBucket(key, start, a.cfg.Resolution)
	s.current = &b
}

func (a *Aggregator) dropLate(key valueobject.MetricKey, sample valueobject.Sample) {
	a.telemetry.HistorySampleDropped("late")
	a.logger.Debug("Dropping late sample", "key", key, "timestamp", sample.Timestamp)
}

func (a *Aggregator) persist(ctx context.Context, bucket entity.HistoryBucket) {
	saveCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := a.repo.SaveHistoryBucket(saveCtx, bucket); err != nil {
		a.telemetry.PersistenceFailed("history_bucket")
		a.logger.Error("Failed to persist history bucket", err, "key", bucket.MetricKey, "start", bucket.Start)
	}
}

// shutdown записывает все несохраненное при остановке: очередь, бакеты
// с истекшим концом и текущие бакеты как частичные
func (a *Aggregator) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	a.drain(ctx)
	a.Flush(a.clock())
	a.drain(ctx)

	partial := a.takeCurrent()
	for _, bucket := range partial {
		a.persist(ctx, bucket)
	}
	if len(partial) > 0 {
		a.logger.Info("Persisted partial history buckets", "count", len(partial))
	}
}

// drain записывает оставшиеся в очереди бакеты
func (a *Aggregator) drain(ctx context.Context) {
	for {
		select {
		case bucket := <-a.persistCh:
			a.persist(ctx, bucket)
		default:
			return
		}
	}
}

// takeCurrent забирает незакрытые бакеты всех ключей
// Следующее значение того же интервала откроет новый бакет; репозиторий
// сливает его с частичным.
func (a *Aggregator) takeCurrent() []entity.HistoryBucket {
	var result []entity.HistoryBucket
	for _, s := range a.allSeries() {
		s.mu.Lock()
		if s.current != nil && s.current.Count > 0 {
			b := *s.current
			b.Final = false
			result = append(result, b)
		}
		s.current = nil
		s.mu.Unlock()
	}
	return result
}

func (a *Aggregator) seriesFor(key valueobject.MetricKey) *series {
	a.mu.RLock()
	s, ok := a.series[key]
	a.mu.RUnlock()
	if ok {
		return s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok = a.series[key]; ok {
		return s
	}
	s = &series{}
	a.series[key] = s
	return s
}

func (a *Aggregator) allSeries() []*series {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*series, 0, len(a.series))
	for _, s := range a.series {
		result = append(result, s)
	}
	return result
}
