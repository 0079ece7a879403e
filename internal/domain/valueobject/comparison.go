package valueobject

import "github.com/dreschagin/monitoring-core/internal/domain/errs"

// Comparison направление сравнения с порогом (Value Object)
type Comparison string

const (
	// Above нарушение при value >= level
	Above Comparison = "above"
	// Below нарушение при value <= level
	Below Comparison = "below"
)

// Validate проверяет валидность направления
func (c Comparison) Validate() error {
	switch c {
	case Above, Below:
		return nil
	default:
		return errs.ConfigInvalid("unknown comparison %q", string(c))
	}
}

// Breaches проверяет нарушение порога. Граница включается.
func (c Comparison) Breaches(value, level float64) bool {
	if c == Below {
		return value <= level
	}
	return value >= level
}

// MoreSevere проверяет, что уровень a строже уровня b
func (c Comparison) MoreSevere(a, b float64) bool {
	if c == Below {
		return a < b
	}
	return a > b
}

// ClearLevel возвращает значение, которое метрика должна пересечь,
// чтобы уйти с уровня level с отступом margin
func (c Comparison) ClearLevel(level, margin float64) float64 {
	if c == Below {
		return level + margin
	}
	return level - margin
}

// Cleared проверяет, что значение пересекло clearLevel. Граница включается.
func (c Comparison) Cleared(value, clearLevel float64) bool {
	if c == Below {
		return value >= clearLevel
	}
	return value <= clearLevel
}

// String возвращает строковое представление
func (c Comparison) String() string {
	return string(c)
}
