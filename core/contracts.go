package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore reads tenant credentials from the persistent store. The
// "not found" case is reported through the resolver, not as a store error.
type CredentialStore interface {
	GetByAccountID(ctx context.Context, accountID string) (TenantCredentials, error)
	GetByTenantID(ctx context.Context, tenantID string) (TenantCredentials, error)
}

// CredentialResolver maps an inbound notification's routing (account id or
// routed tenant id) to the owning tenant and its provider credentials.
type CredentialResolver interface {
	Resolve(ctx context.Context, accountID string, tenantID string) (TenantCredentials, error)
}

// ProviderClient is a client scoped to one tenant's credential or connected
// account. PendingDeliveries is a single synchronous round trip; retries are
// layered on top by the scheduler.
type ProviderClient interface {
	PendingDeliveries(ctx context.Context, eventID string) (int, error)
}

// ClientFactory builds a fresh provider client from explicit credentials.
// Implementations must not cache clients in shared mutable state.
type ClientFactory func(creds TenantCredentials) (ProviderClient, error)

// OutcomeStore is the append-only reconciliation audit log.
type OutcomeStore interface {
	Append(ctx context.Context, record OutcomeRecord) (OutcomeRecord, error)
	ListByEventKey(ctx context.Context, eventID string, idempotencyKey string) ([]OutcomeRecord, error)
	ListByTenant(ctx context.Context, tenantID string, limit int, offset int) ([]OutcomeRecord, error)
}

// UsageStore mutates the per-tenant usage allowance. Decrement must be a
// single atomic update, not read-modify-write.
type UsageStore interface {
	Decrement(ctx context.Context, tenantID string) error
	TokensLeft(ctx context.Context, tenantID string) (int, error)
}

// Notifier delivers an alert to a tenant contact address. Fire-and-forget
// from the orchestrator's perspective; failures are logged, not retried.
type Notifier interface {
	Send(ctx context.Context, recipient string, subject string, body string) error
}

// NotifierFunc adapts a function to the Notifier contract.
type NotifierFunc func(ctx context.Context, recipient string, subject string, body string) error

func (f NotifierFunc) Send(ctx context.Context, recipient string, subject string, body string) error {
	if f == nil {
		return nil
	}
	return f(ctx, recipient, subject, body)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// StoreProvider exposes the engine's stores from a repository factory.
type StoreProvider interface {
	CredentialStore() CredentialStore
	OutcomeStore() OutcomeStore
	UsageStore() UsageStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
