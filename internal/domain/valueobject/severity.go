package valueobject

import "fmt"

// Severity уровень серьезности alert'а (Value Object)
// Пустое значение означает отсутствие нарушения
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity разбирает строковое представление
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityNone, SeverityInfo, SeverityWarning, SeverityCritical:
		return Severity(s), nil
	default:
		return SeverityNone, fmt.Errorf("unknown severity %q", s)
	}
}

// Rank возвращает порядок серьезности: none < info < warning < critical
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Higher проверяет, что s строго серьезнее other
func (s Severity) Higher(other Severity) bool {
	return s.Rank() > other.Rank()
}

// AtLeast проверяет, что s не менее серьезен, чем other
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// IsNone проверяет отсутствие нарушения
func (s Severity) IsNone() bool {
	return s.Rank() == 0
}

// String возвращает строковое представление
func (s Severity) String() string {
	if s == SeverityNone {
		return "none"
	}
	return string(s)
}

// AllSeverities возвращает уровни по возрастанию
func AllSeverities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityCritical}
}
