package valueobject

import (
	"fmt"
	"math"
)

// Reading значение метрики: числовое или категориальное (Value Object)
// Иммутабельный объект
type Reading struct {
	value       float64
	label       string
	categorical bool
}

// NewNumericReading создает числовое значение
func NewNumericReading(value float64) (Reading, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{}, fmt.Errorf("reading must be a finite number, got %v", value)
	}
	return Reading{value: value}, nil
}

// NewCategoricalReading создает категориальное значение ("up", "down")
func NewCategoricalReading(label string) (Reading, error) {
	if label == "" {
		return Reading{}, fmt.Errorf("categorical reading label cannot be empty")
	}
	return Reading{label: label, categorical: true}, nil
}

// MustNumeric создает числовое значение без проверки (для источников с заведомо конечными значениями)
func MustNumeric(value float64) Reading {
	r, err := NewNumericReading(value)
	if err != nil {
		panic(err)
	}
	return r
}

// MustCategorical создает категориальное значение из заведомо непустой метки
func MustCategorical(label string) Reading {
	r, err := NewCategoricalReading(label)
	if err != nil {
		panic(err)
	}
	return r
}

// IsNumeric проверяет, что значение числовое
func (r Reading) IsNumeric() bool {
	return !r.categorical
}

// Value возвращает числовое значение (0 для категориального)
func (r Reading) Value() float64 {
	return r.value
}

// Label возвращает категориальное значение (пусто для числового)
func (r Reading) Label() string {
	return r.label
}

// String возвращает строковое представление
func (r Reading) String() string {
	if r.categorical {
		return r.label
	}
	return fmt.Sprintf("%.2f", r.value)
}

// Equals сравнивает два Reading
func (r Reading) Equals(other Reading) bool {
	return r == other
}
