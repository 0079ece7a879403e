package errs

import (
	"errors"
	"fmt"
)

// Доменные ошибки. Слои выше оборачивают их через fmt.Errorf("...: %w", err)
// и проверяют через errors.Is.
var (
	// ErrSourceUnavailable источник метрик не ответил или вернул ошибку
	ErrSourceUnavailable = errors.New("metric source unavailable")

	// ErrConfigInvalid конфигурация порогов или задачи отчета не прошла валидацию
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrVersionConflict конфигурация была изменена параллельно
	ErrVersionConflict = errors.New("configuration version conflict")

	// ErrAlertNotFound alert с таким идентификатором не существует
	ErrAlertNotFound = errors.New("alert not found")

	// ErrAlreadyResolved alert уже закрыт
	ErrAlreadyResolved = errors.New("alert already resolved")

	// ErrResolutionRequired ручное закрытие без текста резолюции
	ErrResolutionRequired = errors.New("resolution text is required")

	// ErrThresholdNotFound для ключа метрики нет конфигурации порогов
	ErrThresholdNotFound = errors.New("threshold config not found")

	// ErrJobNotFound задача отчета не найдена
	ErrJobNotFound = errors.New("report job not found")

	// ErrInvalidBucketDuration длительность бакета не кратна базовому разрешению
	ErrInvalidBucketDuration = errors.New("invalid bucket duration")

	// ErrInvalidTimeRange некорректный временной диапазон
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrNotFound запись отсутствует в хранилище
	ErrNotFound = errors.New("record not found")
)

// ConfigInvalid возвращает ErrConfigInvalid с контекстом
func ConfigInvalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConfigInvalid)
}

// SourceUnavailable возвращает ErrSourceUnavailable с идентификатором источника
func SourceUnavailable(sourceID string, cause error) error {
	if cause == nil {
		return fmt.Errorf("source %s: %w", sourceID, ErrSourceUnavailable)
	}
	return fmt.Errorf("source %s: %w: %v", sourceID, ErrSourceUnavailable, cause)
}

// IsNotFound проверяет любую из ошибок "не найдено"
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlertNotFound) ||
		errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrThresholdNotFound)
}

// IsInvalidInput проверяет ошибки валидации входных данных
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrConfigInvalid) ||
		errors.Is(err, ErrResolutionRequired) ||
		errors.Is(err, ErrInvalidBucketDuration) ||
		errors.Is(err, ErrInvalidTimeRange)
}

// IsConflict проверяет ошибки конфликта состояния
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrAlreadyResolved)
}
