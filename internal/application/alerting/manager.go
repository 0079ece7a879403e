package alerting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/errs"
	"github.com/dreschagin/monitoring-core/internal/domain/event"
	"github.com/dreschagin/monitoring-core/internal/domain/repository"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// NotificationPolicy определяет, когда и куда отправлять внешние уведомления
type NotificationPolicy struct {
	// MinSeverity минимальный уровень для уведомления
	MinSeverity valueobject.Severity
	// Channels имена каналов; пустой список означает все подключенные каналы
	Channels []string
	// Timeout ограничивает одну попытку доставки
	Timeout time.Duration
}

// Config параметры AlertManager
type Config struct {
	// ResolvedRetention сколько закрытых alert'ов держать в памяти
	ResolvedRetention int
	// PersistTimeout ограничивает одну запись в репозиторий
	PersistTimeout time.Duration
	Policy         NotificationPolicy
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		ResolvedRetention: 1000,
		PersistTimeout:    5 * time.Second,
		Policy: NotificationPolicy{
			MinSeverity: valueobject.SeverityWarning,
			Timeout:     10 * time.Second,
		},
	}
}

// keyState состояние одного ключа метрики
// Все переходы ключа выполняются под его мьютексом
type keyState struct {
	mu       sync.Mutex
	lastTick uint64
	open     *entity.Alert
}

// Manager ведет жизненный цикл alert'ов
// Разные ключи обрабатываются независимо. Блокировка индекса (mu) никогда не
// удерживается во время захвата блокировки ключа.
type Manager struct {
	repo        repository.AlertRepository
	broadcaster port.EventBroadcaster
	notifiers   map[string]port.AlertNotifier
	telemetry   port.Telemetry
	logger      *logger.Logger
	cfg         Config
	clock       func() time.Time

	mu            sync.Mutex
	keys          map[valueobject.MetricKey]*keyState
	openByID      map[string]valueobject.MetricKey
	resolved      map[string]*entity.Alert
	resolvedOrder []string

	notifyWG sync.WaitGroup
}

// NewManager создает AlertManager
func NewManager(
	repo repository.AlertRepository,
	broadcaster port.EventBroadcaster,
	notifiers []port.AlertNotifier,
	telemetry port.Telemetry,
	cfg Config,
	log *logger.Logger,
) *Manager {
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}
	if cfg.ResolvedRetention <= 0 {
		cfg.ResolvedRetention = DefaultConfig().ResolvedRetention
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultConfig().PersistTimeout
	}
	if cfg.Policy.Timeout <= 0 {
		cfg.Policy.Timeout = DefaultConfig().Policy.Timeout
	}

	byChannel := make(map[string]port.AlertNotifier, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			byChannel[n.Channel()] = n
		}
	}

	return &Manager{
		repo:        repo,
		broadcaster: broadcaster,
		notifiers:   byChannel,
		telemetry:   telemetry,
		logger:      log,
		cfg:         cfg,
		clock:       time.Now,
		keys:        make(map[valueobject.MetricKey]*keyState),
		openByID:    make(map[string]valueobject.MetricKey),
		resolved:    make(map[string]*entity.Alert),
	}
}

// WithClock подменяет источник времени (для тестов)
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// Restore загружает открытые alert'ы из репозитория
func (m *Manager) Restore(ctx context.Context) error {
	alerts, err := m.repo.LoadOpenAlerts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load open alerts: %w", err)
	}

	for _, a := range alerts {
		state := m.state(a.MetricKey())
		state.mu.Lock()
		if state.open != nil && state.open.OpenedAt().After(a.OpenedAt()) {
			m.logger.Warn("Skipping duplicate open alert", "key", a.MetricKey(), "id", a.ID())
			state.mu.Unlock()
			continue
		}
		if state.open != nil {
			m.forgetOpen(state.open.ID())
		}
		state.open = a
		m.rememberOpen(a)
		state.mu.Unlock()
	}

	m.logger.Info("Open alerts restored", "count", len(alerts))
	return nil
}

// Apply применяет сигналы одного тика оценки
// Сигнал тика, не превышающего последний примененный для ключа, отбрасывается.
func (m *Manager) Apply(ctx context.Context, tick uint64, signals []valueobject.Signal) {
	var notify []*entity.Alert

	for _, sig := range signals {
		state := m.state(sig.MetricKey)

		state.mu.Lock()
		if tick <= state.lastTick {
			state.mu.Unlock()
			m.logger.Debug("Discarding stale signal", "key", sig.MetricKey, "tick", tick, "last_tick", state.lastTick)
			continue
		}
		state.lastTick = tick
		if a := m.transition(ctx, state, sig); a != nil {
			notify = append(notify, a)
		}
		state.mu.Unlock()
	}

	for _, a := range notify {
		m.dispatchNotifications(a)
	}
}

// transition выполняет переход состояния ключа; вызывается под state.mu
// Возвращает копию alert'а, если по нему нужно уведомление
func (m *Manager) transition(ctx context.Context, state *keyState, sig valueobject.Signal) *entity.Alert {
	now := m.clock()

	// Удерживаемый alert уже закрыт (например, вручную): удержание не открывает новый
	if sig.IsHold() && state.open == nil {
		if sig.Raw.IsNone() {
			m.logger.Debug("Dropping hold signal without open alert", "key", sig.MetricKey, "value", sig.Value)
			return nil
		}
		sig = valueobject.Breach(sig.MetricKey, sig.Raw, sig.Value)
	}

	switch {
	case sig.Breached && state.open == nil:
		alert := entity.NewAlert(sig.MetricKey, sig.Severity, sig.Value, now)
		persisted := m.save(ctx, alert, "open")
		state.open = alert
		m.rememberOpen(alert)

		m.broadcaster.Publish(event.NewAlertOpened(alert, persisted, now))
		m.telemetry.AlertTransition(string(event.KindAlertOpened))
		m.logger.Warn("Alert opened", "id", alert.ID(), "key", sig.MetricKey, "severity", sig.Severity, "value", sig.Value)

		if m.shouldNotify(alert.Severity()) {
			return alert.Clone()
		}

	case sig.Breached && state.open.Severity() != sig.Severity:
		alert := state.open
		previous := alert.ChangeSeverity(sig.Severity, sig.Value, now)
		persisted := m.save(ctx, alert, "severity_change")

		changed := event.NewAlertSeverityChanged(alert, previous, persisted, now)
		m.broadcaster.Publish(changed)
		m.telemetry.AlertTransition(string(event.KindAlertSeverityChanged))
		m.logger.Warn("Alert severity changed", "id", alert.ID(), "key", sig.MetricKey,
			"from", previous, "to", sig.Severity, "value", sig.Value)

		if changed.Escalated() && m.shouldNotify(alert.Severity()) {
			return alert.Clone()
		}

	case sig.Breached:
		if state.open.LastValue() != sig.Value {
			state.open.Observe(sig.Value, now)
			m.save(ctx, state.open, "observe")
		}

	case state.open != nil:
		alert := state.open
		if err := alert.AutoResolve(sig.Value, now); err != nil {
			m.logger.Error("Failed to auto-resolve alert", err, "id", alert.ID())
			return nil
		}
		persisted := m.save(ctx, alert, "auto_resolve")
		state.open = nil
		m.markResolved(alert)

		m.broadcaster.Publish(event.NewAlertAutoResolved(alert, persisted, now))
		m.telemetry.AlertTransition(string(event.KindAlertAutoResolved))
		m.logger.Info("Alert auto-resolved", "id", alert.ID(), "key", sig.MetricKey, "value", sig.Value)
	}

	return nil
}

// ResolveManually закрывает alert оператором
func (m *Manager) ResolveManually(ctx context.Context, id, resolution, actor string) (*entity.Alert, error) {
	if strings.TrimSpace(resolution) == "" {
		return nil, errs.ErrResolutionRequired
	}

	m.mu.Lock()
	key, open := m.openByID[id]
	m.mu.Unlock()

	if open {
		state := m.state(key)
		state.mu.Lock()
		if state.open != nil && state.open.ID() == id {
			alert := state.open
			now := m.clock()
			if err := alert.ResolveManually(resolution, actor, now); err != nil {
				state.mu.Unlock()
				return nil, err
			}
			persisted := m.save(ctx, alert, "manual_resolve")
			state.open = nil
			m.markResolved(alert)

			m.broadcaster.Publish(event.NewAlertManuallyResolved(alert, persisted, now))
			m.telemetry.AlertTransition(string(event.KindAlertManuallyResolved))
			m.logger.Info("Alert resolved manually", "id", id, "key", key, "actor", alert.ResolvedBy())

			result := alert.Clone()
			state.mu.Unlock()
			return result, nil
		}
		state.mu.Unlock()
	}

	m.mu.Lock()
	_, resolvedInMemory := m.resolved[id]
	m.mu.Unlock()
	if resolvedInMemory {
		return nil, fmt.Errorf("alert %s: %w", id, errs.ErrAlreadyResolved)
	}

	stored, err := m.repo.FindAlertByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("alert %s: %w", id, errs.ErrAlertNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert %s: %w", id, err)
	}
	if !stored.IsOpen() {
		return nil, fmt.Errorf("alert %s: %w", id, errs.ErrAlreadyResolved)
	}

	// Открыт в хранилище, но не отслеживается в памяти: закрываем только запись
	now := m.clock()
	if err := stored.ResolveManually(resolution, actor, now); err != nil {
		return nil, err
	}
	persisted := m.save(ctx, stored, "manual_resolve")
	m.markResolved(stored)
	m.broadcaster.Publish(event.NewAlertManuallyResolved(stored, persisted, now))
	m.telemetry.AlertTransition(string(event.KindAlertManuallyResolved))
	return stored.Clone(), nil
}

// HeldSeverities возвращает уровни открытых alert'ов по ключам
func (m *Manager) HeldSeverities() map[valueobject.MetricKey]valueobject.Severity {
	states := m.states()
	held := make(map[valueobject.MetricKey]valueobject.Severity, len(states))
	for key, state := range states {
		state.mu.Lock()
		if state.open != nil {
			held[key] = state.open.Severity()
		}
		state.mu.Unlock()
	}
	return held
}

// OpenAlerts возвращает открытые alert'ы, отсортированные по времени открытия
func (m *Manager) OpenAlerts() []*entity.Alert {
	states := m.states()
	result := make([]*entity.Alert, 0)
	for _, state := range states {
		state.mu.Lock()
		if state.open != nil {
			result = append(result, state.open.Clone())
		}
		state.mu.Unlock()
	}
	sortByOpenedAt(result)
	return result
}

// RecentResolved возвращает закрытые alert'ы из памяти
func (m *Manager) RecentResolved() []*entity.Alert {
	m.mu.Lock()
	result := make([]*entity.Alert, 0, len(m.resolved))
	for _, a := range m.resolved {
		result = append(result, a.Clone())
	}
	m.mu.Unlock()

	sortByOpenedAt(result)
	return result
}

// Get находит alert по идентификатору
func (m *Manager) Get(ctx context.Context, id string) (*entity.Alert, error) {
	m.mu.Lock()
	key, open := m.openByID[id]
	resolved, isResolved := m.resolved[id]
	var resolvedCopy *entity.Alert
	if isResolved {
		resolvedCopy = resolved.Clone()
	}
	m.mu.Unlock()

	if open {
		state := m.state(key)
		state.mu.Lock()
		if state.open != nil && state.open.ID() == id {
			a := state.open.Clone()
			state.mu.Unlock()
			return a, nil
		}
		state.mu.Unlock()
	}
	if resolvedCopy != nil {
		return resolvedCopy, nil
	}

	stored, err := m.repo.FindAlertByID(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("alert %s: %w", id, errs.ErrAlertNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert %s: %w", id, err)
	}
	return stored, nil
}

// ResolvedBetween возвращает alert'ы, закрытые в [from, to)
// Объединяет хранилище и память: запись в хранилище могла не удаться
func (m *Manager) ResolvedBetween(ctx context.Context, from, to time.Time) ([]*entity.Alert, error) {
	stored, err := m.repo.FindResolvedBetween(ctx, from, to)
	if err != nil {
		m.logger.Warn("Failed to load resolved alerts from repository, using memory only", "error", err.Error())
		stored = nil
	}

	seen := make(map[string]bool, len(stored))
	result := make([]*entity.Alert, 0, len(stored))
	for _, a := range stored {
		seen[a.ID()] = true
		result = append(result, a)
	}

	for _, a := range m.RecentResolved() {
		if seen[a.ID()] {
			continue
		}
		if at := a.ResolvedAt(); at != nil && !at.Before(from) && at.Before(to) {
			result = append(result, a)
		}
	}

	sortByOpenedAt(result)
	return result, nil
}

// Wait ждет завершения отправки уведомлений
func (m *Manager) Wait() {
	m.notifyWG.Wait()
}

func (m *Manager) save(ctx context.Context, alert *entity.Alert, op string) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.PersistTimeout)
	defer cancel()

	if err := m.repo.SaveAlert(ctx, alert); err != nil {
		m.telemetry.PersistenceFailed("alert_" + op)
		m.logger.Error("Failed to persist alert", err, "id", alert.ID(), "operation", op)
		return false
	}
	return true
}

func (m *Manager) shouldNotify(severity valueobject.Severity) bool {
	return len(m.notifiers) > 0 && severity.AtLeast(m.cfg.Policy.MinSeverity)
}

func (m *Manager) dispatchNotifications(alert *entity.Alert) {
	for _, n := range m.channels() {
		m.notifyWG.Add(1)
		go func(n port.AlertNotifier) {
			defer m.notifyWG.Done()

			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Policy.Timeout)
			defer cancel()

			if err := n.NotifyAlert(ctx, alert); err != nil {
				m.telemetry.NotificationFailed(n.Channel())
				m.logger.Error("Alert notification failed", err, "channel", n.Channel(), "id", alert.ID())
				return
			}
			m.logger.Debug("Alert notification sent", "channel", n.Channel(), "id", alert.ID())
		}(n)
	}
}

func (m *Manager) channels() []port.AlertNotifier {
	if len(m.cfg.Policy.Channels) == 0 {
		result := make([]port.AlertNotifier, 0, len(m.notifiers))
		for _, n := range m.notifiers {
			result = append(result, n)
		}
		return result
	}

	result := make([]port.AlertNotifier, 0, len(m.cfg.Policy.Channels))
	for _, name := range m.cfg.Policy.Channels {
		if n, ok := m.notifiers[name]; ok {
			result = append(result, n)
		}
	}
	return result
}

func (m *Manager) state(key valueobject.MetricKey) *keyState {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.keys[key]
	if !ok {
		s = &keyState{}
		m.keys[key] = s
	}
	return s
}

func (m *Manager) states() map[valueobject.MetricKey]*keyState {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[valueobject.MetricKey]*keyState, len(m.keys))
	for k, s := range m.keys {
		result[k] = s
	}
	return result
}

func (m *Manager) rememberOpen(alert *entity.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openByID[alert.ID()] = alert.MetricKey()
}

func (m *Manager) forgetOpen(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.openByID, id)
}

func (m *Manager) markResolved(alert *entity.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.openByID, alert.ID())
	if _, exists := m.resolved[alert.ID()]; !exists {
		m.resolvedOrder = append(m.resolvedOrder, alert.ID())
	}
	m.resolved[alert.ID()] = alert.Clone()

	for len(m.resolvedOrder) > m.cfg.ResolvedRetention {
		oldest := m.resolvedOrder[0]
		m.resolvedOrder = m.resolvedOrder[1:]
		delete(m.resolved, oldest)
	}
}

func sortByOpenedAt(alerts []*entity.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].OpenedAt().Before(alerts[j].OpenedAt())
	})
}
