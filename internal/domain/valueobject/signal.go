package valueobject

// Signal результат оценки одной метрики против порогов
type Signal struct {
	MetricKey MetricKey
	Severity  Severity
	Value     float64
	// Breached false означает, что метрика вернулась в норму
	Breached bool
	// Raw уровень, нарушенный значением без учета гистерезиса
	// У удерживающего сигнала он ниже Severity.
	Raw Severity
}

// Breach создает сигнал нарушения
func Breach(key MetricKey, severity Severity, value float64) Signal {
	return Signal{MetricKey: key, Severity: severity, Value: value, Breached: true, Raw: severity}
}

// Hold создает сигнал удержания уровня открытого alert'а
// raw фиксирует, что значение нарушает само по себе (возможно, ничего).
func Hold(key MetricKey, held, raw Severity, value float64) Signal {
	return Signal{MetricKey: key, Severity: held, Value: value, Breached: true, Raw: raw}
}

// Clear создает сигнал возврата в норму
func Clear(key MetricKey, value float64) Signal {
	return Signal{MetricKey: key, Severity: SeverityNone, Value: value}
}

// IsHold проверяет, что уровень держится только гистерезисом
func (s Signal) IsHold() bool {
	return s.Breached && s.Raw != s.Severity
}
