package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type tenantCredentialRecord struct {
	bun.BaseModel `bun:"table:relay_tenant_credentials,alias:rtc"`

	ID        string    `bun:"id,pk"`
	TenantID  string    `bun:"tenant_id,notnull"`
	Email     string    `bun:"email"`
	APIKey    string    `bun:"api_key"`
	AccountID string    `bun:"account_id"`
	Connected bool      `bun:"connected,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookOutcomeRecord struct {
	bun.BaseModel `bun:"table:relay_webhook_outcomes,alias:rwo"`

	ID                string    `bun:"id,pk"`
	TenantID          string    `bun:"tenant_id,notnull"`
	EventID           string    `bun:"event_id,notnull"`
	EventType         string    `bun:"event_type"`
	EventCreatedAt    time.Time `bun:"event_created_at,nullzero"`
	Livemode          bool      `bun:"livemode,notnull"`
	PendingDeliveries int       `bun:"pending_deliveries,notnull"`
	RequestID         string    `bun:"request_id"`
	IdempotencyKey    string    `bun:"idempotency_key"`
	Succeeded         bool      `bun:"succeeded,notnull"`
	Connected         bool      `bun:"connected,notnull"`
	RecordedAt        time.Time `bun:"recorded_at,nullzero,notnull,default:current_timestamp"`
}

type usageAllowanceRecord struct {
	bun.BaseModel `bun:"table:relay_usage_allowances,alias:rua"`

	ID         string    `bun:"id,pk"`
	TenantID   string    `bun:"tenant_id,notnull"`
	TokensLeft int       `bun:"tokens_left,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
