package inbound

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaywatch/go-relaywatch/core"
)

const defaultMaxBodyBytes = 1 << 20

// Acceptor is the slice of the reconciliation service the HTTP boundary
// needs: take a notification, acknowledge it, reconcile in the background.
type Acceptor interface {
	Accept(ctx context.Context, req core.ReconcileRequest) (core.AcceptResult, error)
}

// notificationPayload mirrors the provider's event envelope as relayed to us.
type notificationPayload struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Account         string `json:"account"`
	Created         int64  `json:"created"`
	Livemode        bool   `json:"livemode"`
	PendingWebhooks int    `json:"pending_webhooks"`
	Request         struct {
		ID             string `json:"id"`
		IdempotencyKey string `json:"idempotency_key"`
	} `json:"request"`
}

func (p notificationPayload) toNotification() core.RelayNotification {
	notification := core.RelayNotification{
		EventID:              p.ID,
		EventType:            p.Type,
		Livemode:             p.Livemode,
		PendingDeliveryCount: p.PendingWebhooks,
		AccountID:            p.Account,
		RequestID:            p.Request.ID,
		IdempotencyKey:       p.Request.IdempotencyKey,
	}
	if p.Created > 0 {
		notification.CreatedAt = time.Unix(p.Created, 0).UTC()
	}
	return notification.Normalize()
}

type acceptedResponse struct {
	Accepted bool   `json:"accepted"`
	EventID  string `json:"event_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Handler accepts relay notifications over HTTP. Mount it at BasePath; an
// optional trailing path segment routes the notification to a tenant when
// the payload carries no account id.
type Handler struct {
	Service      Acceptor
	Logger       core.Logger
	BasePath     string
	MaxBodyBytes int64
}

func NewHandler(service Acceptor, options ...HandlerOption) *Handler {
	handler := &Handler{
		Service:      service,
		BasePath:     "/webhooks/relay",
		MaxBodyBytes: defaultMaxBodyBytes,
	}
	for _, option := range options {
		if option != nil {
			option(handler)
		}
	}
	return handler
}

type HandlerOption func(*Handler)

func WithHandlerLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.Logger = logger
		}
	}
}

func WithBasePath(path string) HandlerOption {
	return func(h *Handler) {
		path = strings.TrimSpace(path)
		if path != "" {
			h.BasePath = "/" + strings.Trim(path, "/")
		}
	}
}

func WithMaxBodyBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.MaxBodyBytes = limit
		}
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeError(w, inboundInternal("inbound: handler is not configured", nil))
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeStatusError(w, http.StatusMethodNotAllowed, errorResponse{
			Error: fmt.Sprintf("inbound: method %s not allowed", r.Method),
			Code:  core.ReconcileErrorBadInput,
		})
		return
	}

	payload, err := h.decodePayload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	req := core.ReconcileRequest{
		Notification: payload.toNotification(),
		TenantID:     h.tenantIDFromPath(r.URL.Path),
	}

	result, err := h.Service.Accept(r.Context(), req)
	if err != nil {
		h.logError("accept relay notification failed",
			"event_id", req.Notification.EventID,
			"error", err,
		)
		writeError(w, err)
		return
	}

	status := result.StatusCode
	if status == 0 {
		status = http.StatusAccepted
	}
	writeJSON(w, status, acceptedResponse{
		Accepted: result.Accepted,
		EventID:  result.EventID,
		TenantID: result.TenantID,
	})
}

func (h *Handler) decodePayload(r *http.Request) (notificationPayload, error) {
	var payload notificationPayload
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return payload, inboundBadInput("inbound: read notification body", nil)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return payload, inboundBadInput("inbound: notification body is required", nil)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, inboundBadInput("inbound: decode notification payload", map[string]any{
			"parse_error": err.Error(),
		})
	}
	return payload, nil
}

// tenantIDFromPath extracts the tenant segment that follows the base path,
// if any. "/webhooks/relay/ten_123" routes to ten_123; the bare base path
// routes by account id instead.
func (h *Handler) tenantIDFromPath(path string) string {
	base := strings.Trim(h.BasePath, "/")
	trimmed := strings.Trim(path, "/")
	if base != "" {
		if trimmed == base {
			return ""
		}
		if !strings.HasPrefix(trimmed, base+"/") {
			return ""
		}
		trimmed = strings.TrimPrefix(trimmed, base+"/")
	}
	segments := strings.Split(trimmed, "/")
	if len(segments) == 0 {
		return ""
	}
	return strings.TrimSpace(segments[len(segments)-1])
}

func (h *Handler) logError(msg string, args ...any) {
	if h == nil || h.Logger == nil {
		return
	}
	h.Logger.Error(msg, args...)
}

func writeError(w http.ResponseWriter, err error) {
	status, textCode := statusFor(err)
	writeStatusError(w, status, errorResponse{
		Error: err.Error(),
		Code:  textCode,
	})
}

func writeStatusError(w http.ResponseWriter, status int, body errorResponse) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
