package webhooks

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const FailureEmailSubject = "Webhook Failed"

// FailureEmailData carries the fields rendered into the failure alert sent
// to a tenant's contact address.
type FailureEmailData struct {
	EventID          string
	EventType        string
	FailedDeliveries int
	Livemode         bool
	OccurredAt       time.Time
}

// RenderFailureEmail builds the HTML body for a failed-delivery alert.
func RenderFailureEmail(data FailureEmailData) string {
	mode := "test"
	if data.Livemode {
		mode = "live"
	}
	occurredAt := data.OccurredAt.UTC().Format(time.RFC1123)

	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Webhook Failure Notification</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; color: #333;">
  <div style="max-width: 600px; margin: 30px auto; background: #ffffff; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
    <h1 style="color: #4a00e0;">Webhook Failure Notification</h1>
    <p>One of your webhook deliveries could not be completed.</p>
    <table style="width: 100%; border-collapse: collapse;">
`)
	writeRow(&b, "Event", data.EventID)
	writeRow(&b, "Type", data.EventType)
	writeRow(&b, "Mode", mode)
	writeRow(&b, "Failed deliveries", fmt.Sprintf("%d", data.FailedDeliveries))
	writeRow(&b, "Time", occurredAt)
	b.WriteString(`    </table>
    <p>Please check your endpoint and the delivery log in your dashboard.</p>
  </div>
</body>
</html>
`)
	return b.String()
}

func writeRow(b *strings.Builder, label string, value string) {
	fmt.Fprintf(
		b,
		"      <tr><td style=\"padding: 6px; border-bottom: 1px solid #eee;\"><strong>%s</strong></td><td style=\"padding: 6px; border-bottom: 1px solid #eee;\">%s</td></tr>\n",
		html.EscapeString(label),
		html.EscapeString(value),
	)
}
