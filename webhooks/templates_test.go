package webhooks

import (
	"strings"
	"testing"
	"time"
)

func TestRenderFailureEmailIncludesEventDetails(t *testing.T) {
	body := RenderFailureEmail(FailureEmailData{
		EventID:          "evt_123",
		EventType:        "invoice.payment_failed",
		FailedDeliveries: 2,
		Livemode:         true,
		OccurredAt:       time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{"evt_123", "invoice.payment_failed", ">2<", ">live<", "Webhook Failure Notification"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %q\n%s", want, body)
		}
	}
}

func TestRenderFailureEmailEscapesValues(t *testing.T) {
	body := RenderFailureEmail(FailureEmailData{
		EventID:   `evt_<script>alert("x")</script>`,
		EventType: "charge.failed",
	})

	if strings.Contains(body, "<script>") {
		t.Fatalf("expected markup to be escaped\n%s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Fatalf("expected escaped entity in body\n%s", body)
	}
	if !strings.Contains(body, ">test<") {
		t.Fatalf("expected test mode label when livemode is false\n%s", body)
	}
}
