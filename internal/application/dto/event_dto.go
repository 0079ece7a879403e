package dto

import (
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/event"
)

// EventEnvelope представляет событие живой ленты в JSON
// Persisted заполняется только для событий alert'ов
type EventEnvelope struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Persisted *bool       `json:"persisted,omitempty"`
	Data      interface{} `json:"data"`
}

// AlertEventDTO данные события alert'а
type AlertEventDTO struct {
	Alert            *AlertDTO `json:"alert"`
	PreviousSeverity string    `json:"previous_severity,omitempty"`
}

// NewEventEnvelope конвертирует доменное событие в конверт
func NewEventEnvelope(ev event.Event) *EventEnvelope {
	env := &EventEnvelope{
		Type:      string(ev.Kind()),
		Timestamp: ev.OccurredAt(),
	}

	switch e := ev.(type) {
	case event.MetricUpdated:
		s := &SampleDTO{
			Key:       e.Key.String(),
			SourceID:  e.SourceID,
			Timestamp: e.Timestamp,
		}
		setReading(e.Reading, &s.Value, &s.Label)
		env.Data = s
	case event.AlertSeverityChanged:
		persisted := e.Persisted()
		env.Persisted = &persisted
		env.Data = &AlertEventDTO{
			Alert:            FromAlert(e.Alert()),
			PreviousSeverity: string(e.Previous),
		}
	case event.AlertEvent:
		persisted := e.Persisted()
		env.Persisted = &persisted
		env.Data = &AlertEventDTO{Alert: FromAlert(e.Alert())}
	}

	return env
}
