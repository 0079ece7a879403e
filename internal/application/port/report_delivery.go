package port

import (
	"context"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
)

// ReportDelivery определяет канал доставки отчетов (Port)
type ReportDelivery interface {
	// Supports проверяет, обслуживает ли канал получателя
	Supports(recipient string) bool

	// Deliver доставляет отчет получателю
	Deliver(ctx context.Context, recipient string, payload *dto.ReportPayload) error
}
