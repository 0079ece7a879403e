package dto

import "time"

// SourceCheckDTO результат опроса одного источника
type SourceCheckDTO struct {
	SourceID   string `json:"source_id"`
	OK         bool   `json:"ok"`
	Readings   int    `json:"readings"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// HealthCheckDTO результат ручной проверки
type HealthCheckDTO struct {
	StartedAt time.Time         `json:"started_at"`
	Tick      uint64            `json:"tick"`
	Signals   int               `json:"signals"`
	Sources   []*SourceCheckDTO `json:"sources"`
}
