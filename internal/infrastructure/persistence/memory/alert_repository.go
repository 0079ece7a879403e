package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
)

// AlertRepository keeps alerts in process memory.
// Used when no database is configured and in tests.
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]*entity.Alert
}

// NewAlertRepository creates an empty repository.
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{alerts: make(map[string]*entity.Alert)}
}

func (r *AlertRepository) SaveAlert(_ context.Context, alert *entity.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[alert.ID()] = alert.Clone()
	return nil
}

func (r *AlertRepository) LoadOpenAlerts(_ context.Context) ([]*entity.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entity.Alert
	for _, a := range r.alerts {
		if a.IsOpen() {
			result = append(result, a.Clone())
		}
	}
	sortAlerts(result)
	return result, nil
}

func (r *AlertRepository) FindAlertByID(_ context.Context, id string) (*entity.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *AlertRepository) FindResolvedBetween(_ context.Context, from, to time.Time) ([]*entity.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entity.Alert
	for _, a := range r.alerts {
		resolvedAt := a.ResolvedAt()
		if resolvedAt == nil {
			continue
		}
		if !resolvedAt.Before(from) && resolvedAt.Before(to) {
			result = append(result, a.Clone())
		}
	}
	sortAlerts(result)
	return result, nil
}

func sortAlerts(alerts []*entity.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].OpenedAt().Before(alerts[j].OpenedAt())
	})
}
