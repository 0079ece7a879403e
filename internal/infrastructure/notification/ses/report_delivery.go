package ses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/application/dto"
)

// ReportDelivery отправляет сводку отчета на e-mail получателя
type ReportDelivery struct {
	mailer *Mailer
}

// NewReportDelivery создает канал доставки отчетов
func NewReportDelivery(mailer *Mailer) *ReportDelivery {
	return &ReportDelivery{mailer: mailer}
}

// Supports принимает адреса вида user@host
func (d *ReportDelivery) Supports(recipient string) bool {
	if strings.Contains(recipient, "://") {
		return false
	}
	at := strings.Index(recipient, "@")
	return at > 0 && at < len(recipient)-1
}

func (d *ReportDelivery) Deliver(ctx context.Context, recipient string, payload *dto.ReportPayload) error {
	subject := fmt.Sprintf("Report %s (%s)", payload.JobName, payload.GeneratedAt.UTC().Format("2006-01-02 15:04"))
	return d.mailer.Send(ctx, []string{recipient}, subject, RenderReport(payload))
}

// RenderReport форматирует отчет в текст письма
func RenderReport(payload *dto.ReportPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report: %s\n", payload.JobName)
	fmt.Fprintf(&b, "Period: %s - %s\n", payload.From.UTC().Format(time.RFC3339), payload.To.UTC().Format(time.RFC3339))

	if len(payload.Metrics) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, m := range payload.Metrics {
			if m.Error != "" {
				fmt.Fprintf(&b, "  %s: unavailable (%s)\n", m.Key, m.Error)
				continue
			}
			if m.Count == 0 {
				fmt.Fprintf(&b, "  %s: no data\n", m.Key)
				continue
			}
			fmt.Fprintf(&b, "  %s: avg %.2f, min %.2f, max %.2f (%d samples)\n",
				m.Key, deref(m.Avg), deref(m.Min), deref(m.Max), m.Count)
		}
	}

	if payload.Alerts != nil {
		fmt.Fprintf(&b, "\nAlerts: %d open, %d resolved\n", len(payload.Alerts.Open), len(payload.Alerts.Resolved))
		for _, a := range payload.Alerts.Open {
			fmt.Fprintf(&b, "  OPEN %s %s since %s\n", a.Severity, a.MetricKey, a.OpenedAt.UTC().Format(time.RFC3339))
		}
	}

	return b.String()
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
