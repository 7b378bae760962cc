// Package relaywatch reconciles webhook delivery outcomes for relayed
// payment-provider events: resolve the owning tenant, poll the provider
// until deliveries settle, record one audit row per attempt, and apply
// usage and notification side effects exactly once per novel outcome.
package relaywatch

import "github.com/relaywatch/go-relaywatch/core"

type Config = core.Config

type ReconcileConfig = core.ReconcileConfig

type Option = core.Option

type Service = core.Service

type RelayNotification = core.RelayNotification
type ReconcileRequest = core.ReconcileRequest
type ReconcileOutcome = core.ReconcileOutcome
type AcceptResult = core.AcceptResult
type OutcomeRecord = core.OutcomeRecord
type Tenant = core.Tenant
type TenantCredentials = core.TenantCredentials

type CredentialStore = core.CredentialStore
type CredentialResolver = core.CredentialResolver
type ProviderClient = core.ProviderClient
type ClientFactory = core.ClientFactory
type OutcomeStore = core.OutcomeStore
type UsageStore = core.UsageStore
type Notifier = core.Notifier
type NotifierFunc = core.NotifierFunc
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithCredentialResolver = core.WithCredentialResolver
	WithClientFactory      = core.WithClientFactory
	WithOutcomeStore       = core.WithOutcomeStore
	WithUsageStore         = core.WithUsageStore
	WithNotifier           = core.WithNotifier
	WithKeyLocker          = core.WithKeyLocker
	WithRetryScheduler     = core.WithRetryScheduler
	WithCompletionHook     = core.WithCompletionHook
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
