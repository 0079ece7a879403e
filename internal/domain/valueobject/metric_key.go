package valueobject

import (
	"strings"

	"github.com/dreschagin/monitoring-core/internal/domain/errs"
)

// MetricKey идентифицирует метрику (Value Object)
// Пространство имен задает источник: "cpu_usage", "adapter_status:eth0"
type MetricKey string

// SourceUpPrefix префикс служебного ключа доступности источника
const SourceUpPrefix = "source_up:"

// SourceUpKey возвращает ключ метрики доступности источника
func SourceUpKey(sourceID string) MetricKey {
	return MetricKey(SourceUpPrefix + sourceID)
}

// Validate проверяет валидность ключа
func (k MetricKey) Validate() error {
	if strings.TrimSpace(string(k)) == "" {
		return errs.ConfigInvalid("metric key cannot be empty")
	}
	if strings.ContainsAny(string(k), " \t\n") {
		return errs.ConfigInvalid("metric key %q contains whitespace", string(k))
	}
	return nil
}

// String возвращает строковое представление ключа
func (k MetricKey) String() string {
	return string(k)
}

// Namespace возвращает часть ключа до двоеточия
func (k MetricKey) Namespace() string {
	if i := strings.IndexByte(string(k), ':'); i >= 0 {
		return string(k[:i])
	}
	return string(k)
}
