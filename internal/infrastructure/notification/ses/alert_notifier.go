package ses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-core/internal/domain/entity"
)

// ChannelEmail имя канала уведомлений
const ChannelEmail = "email"

// AlertNotifier отправляет alert'ы дежурным по e-mail
type AlertNotifier struct {
	mailer     *Mailer
	recipients []string
}

// NewAlertNotifier создает канал уведомлений
func NewAlertNotifier(mailer *Mailer, recipients []string) *AlertNotifier {
	return &AlertNotifier{
		mailer:     mailer,
		recipients: append([]string(nil), recipients...),
	}
}

func (n *AlertNotifier) Channel() string {
	return ChannelEmail
}

// NotifyAlert отправляет письмо об открытии или эскалации
func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert *entity.Alert) error {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity())), alert.MetricKey())

	var b strings.Builder
	fmt.Fprintf(&b, "Metric: %s\n", alert.MetricKey())
	fmt.Fprintf(&b, "Severity: %s\n", alert.Severity())
	fmt.Fprintf(&b, "Value: %.2f\n", alert.LastValue())
	fmt.Fprintf(&b, "Opened: %s\n", alert.OpenedAt().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Alert ID: %s\n", alert.ID())

	return n.mailer.Send(ctx, n.recipients, subject, b.String())
}
