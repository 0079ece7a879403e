package thresholds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/repository"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// AnyVersion отключает проверку версии при записи
const AnyVersion int64 = -1

// Snapshot неизменяемый набор конфигураций
// Читатели получают указатель на snapshot без блокировок
type Snapshot struct {
	Version int64
	Configs map[valueobject.MetricKey]*entity.ThresholdConfig
}

// Store хранит конфигурации порогов по схеме copy-on-write
// Писатели сериализуются мьютексом и публикуют новый snapshot атомарно.
type Store struct {
	repo   repository.ThresholdRepository
	logger *logger.Logger
	clock  func() time.Time

	writeMu sync.Mutex
	current atomic.Pointer[Snapshot]
}

// NewStore создает пустое хранилище
func NewStore(repo repository.ThresholdRepository, log *logger.Logger) *Store {
	s := &Store{
		repo:   repo,
		logger: log,
		clock:  time.Now,
	}
	s.current.Store(&Snapshot{Configs: map[valueobject.MetricKey]*entity.ThresholdConfig{}})
	return s
}

// Load заменяет содержимое конфигурациями из репозитория
func (s *Store) Load(ctx context.Context) error {
	configs, err := s.repo.LoadThresholds(ctx)
	if err != nil {
		return fmt.Errorf("failed to load thresholds: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := make(map[valueobject.MetricKey]*entity.ThresholdConfig, len(configs))
	for _, c := range configs {
		next[c.MetricKey()] = c
	}
	s.current.Store(&Snapshot{Version: s.current.Load().Version + 1, Configs: next})

	s.logger.Info("Threshold configs loaded", "count", len(next))
	return nil
}

// Seed добавляет конфигурации только для ключей, которые еще не настроены
func (s *Store) Seed(ctx context.Context, configs []*entity.ThresholdConfig) error {
	for _, c := range configs {
		if _, exists := s.Get(c.MetricKey()); exists {
			continue
		}
		if _, err := s.Put(ctx, c, 0); err != nil && !errors.Is(err, errs.ErrVersionConflict) {
			return err
		}
	}
	return nil
}

// Current возвращает текущий snapshot
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Get возвращает конфигурацию ключа
func (s *Store) Get(key valueobject.MetricKey) (*entity.ThresholdConfig, bool) {
	c, ok := s.current.Load().Configs[key]
	return c, ok
}

// List возвращает конфигурации, отсортированные по ключу
func (s *Store) List() []*entity.ThresholdConfig {
	snap := s.current.Load()
	result := make([]*entity.ThresholdConfig, 0, len(snap.Configs))
	for _, c := range snap.Configs {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MetricKey() < result[j].MetricKey() })
	return result
}

// Put создает или заменяет конфигурацию
// expectedVersion: AnyVersion без проверки, 0 требует отсутствия ключа,
// иное значение должно совпасть с текущей версией ключа.
// Запись тех же порогов ничего не меняет и возвращает текущую версию.
func (s *Store) Put(ctx context.Context, cfg *entity.ThresholdConfig, expectedVersion int64) (*entity.ThresholdConfig, error) {
	if cfg == nil {
		return nil, errs.ConfigInvalid("threshold config is required")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.current.Load()
	existing, exists := snap.Configs[cfg.MetricKey()]

	if err := checkVersion(existing, exists, expectedVersion); err != nil {
		return nil, err
	}

	if exists && existing.SameSettings(cfg) {
		return existing, nil
	}

	var version int64 = 1
	if exists {
		version = existing.Version() + 1
	}
	stored := cfg.WithVersion(version, s.clock())

	if err := s.repo.SaveThreshold(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save threshold %s: %w", cfg.MetricKey(), err)
	}

	next := cloneConfigs(snap.Configs)
	next[stored.MetricKey()] = stored
	s.current.Store(&Snapshot{Version: snap.Version + 1, Configs: next})

	s.logger.Info("Threshold config updated", "key", stored.MetricKey(), "version", stored.Version())
	return stored, nil
}

// Delete удаляет конфигурацию ключа
func (s *Store) Delete(ctx context.Context, key valueobject.MetricKey, expectedVersion int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := s.current.Load()
	existing, exists := snap.Configs[key]
	if !exists {
		return fmt.Errorf("threshold %s: %w", key, errs.ErrThresholdNotFound)
	}
	if err := checkVersion(existing, exists, expectedVersion); err != nil {
		return err
	}

	if err := s.repo.DeleteThreshold(ctx, key); err != nil {
		return fmt.Errorf("failed to delete threshold %s: %w", key, err)
	}

	next := cloneConfigs(snap.Configs)
	delete(next, key)
	s.current.Store(&Snapshot{Version: snap.Version + 1, Configs: next})

	s.logger.Info("Threshold config deleted", "key", key)
	return nil
}

func checkVersion(existing *entity.ThresholdConfig, exists bool, expected int64) error {
	if expected == AnyVersion {
		return nil
	}
	current := int64(0)
	if exists {
		current = existing.Version()
	}
	if current != expected {
		return fmt.Errorf("expected version %d, current %d: %w", expected, current, errs.ErrVersionConflict)
	}
	return nil
}

func cloneConfigs(src map[valueobject.MetricKey]*entity.ThresholdConfig) map[valueobject.MetricKey]*entity.ThresholdConfig {
	dst := make(map[valueobject.MetricKey]*entity.ThresholdConfig, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
