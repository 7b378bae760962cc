package core

import (
	"strings"
	"time"
)

// RelayNotification is the inbound signal that the payment provider relayed
// an event toward a tenant's webhook consumer. It is immutable once received.
type RelayNotification struct {
	EventID              string
	EventType            string
	CreatedAt            time.Time
	Livemode             bool
	PendingDeliveryCount int
	// AccountID is set for connected-account relays; empty for relays routed
	// by tenant id on the inbound path.
	AccountID      string
	RequestID      string
	IdempotencyKey string
}

func (n RelayNotification) Normalize() RelayNotification {
	n.EventID = strings.TrimSpace(n.EventID)
	n.EventType = strings.TrimSpace(n.EventType)
	n.AccountID = strings.TrimSpace(n.AccountID)
	n.RequestID = strings.TrimSpace(n.RequestID)
	n.IdempotencyKey = strings.TrimSpace(n.IdempotencyKey)
	if n.PendingDeliveryCount < 0 {
		n.PendingDeliveryCount = 0
	}
	return n
}

// Tenant is the minimal identity joined onto a credential lookup.
type Tenant struct {
	ID    string
	Email string
}

// TenantCredentials describes how to reach the provider on a tenant's behalf:
// either a tenant-owned API key, or a connected-account id reached through
// the platform credential. Read-only to the engine.
type TenantCredentials struct {
	Tenant    Tenant
	APIKey    string
	AccountID string
	Connected bool
}

func (c TenantCredentials) HasProviderAccess() bool {
	return strings.TrimSpace(c.APIKey) != "" || strings.TrimSpace(c.AccountID) != ""
}

// OutcomeRecord is one append-only audit row per reconciliation attempt.
// Duplicates are recorded too; deduplication governs side effects, not
// logging.
type OutcomeRecord struct {
	ID                   string
	TenantID             string
	EventID              string
	EventType            string
	CreatedAt            time.Time
	Livemode             bool
	PendingDeliveryCount int
	RequestID            string
	IdempotencyKey       string
	Succeeded            bool
	Connected            bool
	RecordedAt           time.Time
}

// ReconcileRequest carries one inbound notification plus the tenant id routed
// on the inbound path when the payload has no account id.
type ReconcileRequest struct {
	Notification RelayNotification
	TenantID     string
}

// ReconcileOutcome is the terminal result of one reconciliation run.
type ReconcileOutcome struct {
	TenantID          string
	EventID           string
	Succeeded         bool
	PendingDeliveries int
	Novel             bool
	Record            OutcomeRecord
}

// AcceptResult is returned to the inbound caller once a notification has
// been accepted for processing; reconciliation finishes independently.
type AcceptResult struct {
	Accepted   bool
	StatusCode int
	TenantID   string
	EventID    string
}
