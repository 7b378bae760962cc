package inbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/relaywatch/go-relaywatch/core"
)

type stubAcceptor struct {
	result   core.AcceptResult
	err      error
	requests []core.ReconcileRequest
}

func (s *stubAcceptor) Accept(_ context.Context, req core.ReconcileRequest) (core.AcceptResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return core.AcceptResult{}, s.err
	}
	return s.result, nil
}

const notificationBody = `{
	"id": "evt_1",
	"type": "invoice.payment_failed",
	"account": "acct_1",
	"created": 1723300000,
	"livemode": true,
	"pending_webhooks": 3,
	"request": {"id": "req_1", "idempotency_key": "key_1"}
}`

func TestServeHTTPAcceptsNotification(t *testing.T) {
	acceptor := &stubAcceptor{result: core.AcceptResult{
		Accepted:   true,
		EventID:    "evt_1",
		TenantID:   "ten_1",
		StatusCode: http.StatusAccepted,
	}}
	handler := NewHandler(acceptor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay", strings.NewReader(notificationBody))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var response acceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.Accepted || response.EventID != "evt_1" || response.TenantID != "ten_1" {
		t.Fatalf("unexpected response %+v", response)
	}

	if len(acceptor.requests) != 1 {
		t.Fatalf("expected one accept call, got %d", len(acceptor.requests))
	}
	notification := acceptor.requests[0].Notification
	if notification.EventID != "evt_1" || notification.AccountID != "acct_1" {
		t.Fatalf("unexpected notification %+v", notification)
	}
	if notification.PendingDeliveryCount != 3 {
		t.Fatalf("expected pending count 3, got %d", notification.PendingDeliveryCount)
	}
	if notification.IdempotencyKey != "key_1" || notification.RequestID != "req_1" {
		t.Fatalf("request metadata not carried: %+v", notification)
	}
	if notification.CreatedAt.IsZero() {
		t.Fatalf("expected created timestamp to be set")
	}
}

func TestServeHTTPRoutesTenantFromPath(t *testing.T) {
	acceptor := &stubAcceptor{result: core.AcceptResult{Accepted: true}}
	handler := NewHandler(acceptor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay/ten_42", strings.NewReader(notificationBody))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if got := acceptor.requests[0].TenantID; got != "ten_42" {
		t.Fatalf("expected routed tenant ten_42, got %q", got)
	}
}

func TestServeHTTPBarePathRoutesNoTenant(t *testing.T) {
	acceptor := &stubAcceptor{result: core.AcceptResult{Accepted: true}}
	handler := NewHandler(acceptor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay", strings.NewReader(notificationBody))
	handler.ServeHTTP(rec, req)

	if got := acceptor.requests[0].TenantID; got != "" {
		t.Fatalf("expected no routed tenant, got %q", got)
	}
}

func TestServeHTTPRejectsNonPost(t *testing.T) {
	handler := NewHandler(&stubAcceptor{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/relay", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("expected Allow header POST, got %q", got)
	}
}

func TestServeHTTPRejectsEmptyBody(t *testing.T) {
	acceptor := &stubAcceptor{}
	handler := NewHandler(acceptor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay", strings.NewReader("  "))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(acceptor.requests) != 0 {
		t.Fatalf("empty body must not reach the service")
	}
}

func TestServeHTTPRejectsMalformedBody(t *testing.T) {
	handler := NewHandler(&stubAcceptor{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay", strings.NewReader(`{"id":`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var response errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if response.Code != core.ReconcileErrorBadInput {
		t.Fatalf("expected bad input code, got %q", response.Code)
	}
}

func TestServeHTTPMapsServiceErrorStatus(t *testing.T) {
	acceptor := &stubAcceptor{err: goerrors.New("unknown tenant", goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ReconcileErrorUnauthorized)}
	handler := NewHandler(acceptor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay", strings.NewReader(notificationBody))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var response errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if response.Code != core.ReconcileErrorUnauthorized {
		t.Fatalf("expected unauthorized code, got %q", response.Code)
	}
}

func TestServeHTTPPlainErrorIsInternal(t *testing.T) {
	acceptor := &stubAcceptor{err: context.DeadlineExceeded}
	handler := NewHandler(acceptor)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/relay", strings.NewReader(notificationBody))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestWithBasePathNormalizesMount(t *testing.T) {
	acceptor := &stubAcceptor{result: core.AcceptResult{Accepted: true}}
	handler := NewHandler(acceptor, WithBasePath("hooks/stripe/"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hooks/stripe/ten_7", strings.NewReader(notificationBody))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if got := acceptor.requests[0].TenantID; got != "ten_7" {
		t.Fatalf("expected routed tenant ten_7, got %q", got)
	}
}
