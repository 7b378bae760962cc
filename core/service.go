package core

import (
	"context"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/relaywatch/go-relaywatch/webhooks"
)

// Service is the reconciliation orchestrator. One call to Accept or
// Reconcile handles one inbound relay notification end to end.
type Service struct {
	config             Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	persistenceClient  any
	repositoryFactory  any
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	credentialResolver CredentialResolver
	clientFactory      ClientFactory
	outcomeStore       OutcomeStore
	usageStore         UsageStore
	notifier           Notifier
	keyLocks           *KeyedMutex
	scheduler          *webhooks.RetryScheduler
	completionHook     CompletionHook
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("relaywatch", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("relaywatch"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.keyLocker == nil {
		builder.keyLocker = NewKeyedMutex()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil {
		var stores StoreProvider
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		} else if provided, ok := builder.repositoryFactory.(StoreProvider); ok {
			stores = provided
		}
		if stores != nil {
			if builder.outcomeStore == nil {
				builder.outcomeStore = stores.OutcomeStore()
			}
			if builder.usageStore == nil {
				builder.usageStore = stores.UsageStore()
			}
		}
	}

	scheduler := builder.scheduler
	if scheduler == nil {
		scheduler = webhooks.NewRetryScheduler(
			finalConfig.Reconcile.RegisteredHooks,
			finalConfig.Reconcile.RetryWaits()...,
		)
	}

	return &Service{
		config:             finalConfig,
		logger:             logger,
		loggerProvider:     provider,
		metricsRecorder:    builder.metricsRecorder,
		errorFactory:       builder.errorFactory,
		errorMapper:        builder.errorMapper,
		persistenceClient:  builder.persistenceClient,
		repositoryFactory:  builder.repositoryFactory,
		configProvider:     builder.configProvider,
		optionsResolver:    builder.optionsResolver,
		credentialResolver: builder.credentialResolver,
		clientFactory:      builder.clientFactory,
		outcomeStore:       builder.outcomeStore,
		usageStore:         builder.usageStore,
		notifier:           builder.notifier,
		keyLocks:           builder.keyLocker,
		scheduler:          scheduler,
		completionHook:     builder.completionHook,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// OutcomeStore exposes the audit log for read-side composition.
func (s *Service) OutcomeStore() OutcomeStore {
	if s == nil {
		return nil
	}
	return s.outcomeStore
}

// Accept resolves the tenant synchronously, acknowledges the caller, and
// finishes probing, deduplication, and side effects on a detached goroutine
// so the retry schedule never blocks the inbound request budget. The tenant
// is resolved before the ack so unauthorized notifications are rejected with
// nothing persisted.
func (s *Service) Accept(ctx context.Context, req ReconcileRequest) (AcceptResult, error) {
	startedAt := time.Now()
	notification, creds, err := s.resolveTenant(ctx, req)
	if err != nil {
		s.observeOperation(ctx, startedAt, "reconcile.accept", err, map[string]any{
			"event_id":  req.Notification.EventID,
			"tenant_id": req.TenantID,
		})
		return AcceptResult{}, s.mapError(err)
	}

	detached, cancel := context.WithTimeout(
		context.WithoutCancel(ctx),
		s.config.Reconcile.SettleTimeout(),
	)
	go func() {
		defer cancel()
		outcome, runErr := s.reconcile(detached, creds, notification)
		if runErr != nil {
			s.logError(detached, "reconciliation failed after acknowledgment", map[string]any{
				"tenant_id": creds.Tenant.ID,
				"event_id":  notification.EventID,
				"error":     runErr.Error(),
			})
		}
		if s.completionHook != nil {
			s.completionHook(outcome, runErr)
		}
	}()

	s.observeOperation(ctx, startedAt, "reconcile.accept", nil, map[string]any{
		"event_id":  notification.EventID,
		"tenant_id": creds.Tenant.ID,
		"livemode":  notification.Livemode,
	})
	return AcceptResult{
		Accepted:   true,
		StatusCode: http.StatusAccepted,
		TenantID:   creds.Tenant.ID,
		EventID:    notification.EventID,
	}, nil
}

// Reconcile runs the whole state machine synchronously. Used by the command
// bus and by callers that want the terminal outcome.
func (s *Service) Reconcile(ctx context.Context, req ReconcileRequest) (ReconcileOutcome, error) {
	startedAt := time.Now()
	notification, creds, err := s.resolveTenant(ctx, req)
	if err != nil {
		s.observeOperation(ctx, startedAt, "reconcile", err, map[string]any{
			"event_id":  req.Notification.EventID,
			"tenant_id": req.TenantID,
		})
		return ReconcileOutcome{}, s.mapError(err)
	}
	outcome, err := s.reconcile(ctx, creds, notification)
	s.observeOperation(ctx, startedAt, "reconcile", err, map[string]any{
		"event_id":  notification.EventID,
		"tenant_id": creds.Tenant.ID,
		"livemode":  notification.Livemode,
	})
	if err != nil {
		return ReconcileOutcome{}, s.mapError(err)
	}
	return outcome, nil
}

func (s *Service) resolveTenant(ctx context.Context, req ReconcileRequest) (RelayNotification, TenantCredentials, error) {
	if s == nil {
		return RelayNotification{}, TenantCredentials{}, goerrors.New(
			"core: service is not configured", goerrors.CategoryInternal,
		).WithTextCode(ReconcileErrorInternal)
	}
	notification := req.Notification.Normalize()
	tenantID := strings.TrimSpace(req.TenantID)

	if notification.EventID == "" {
		return RelayNotification{}, TenantCredentials{}, goerrors.New(
			"core: event id is required", goerrors.CategoryBadInput,
		).WithCode(http.StatusBadRequest).WithTextCode(ReconcileErrorBadInput)
	}
	if notification.AccountID == "" && tenantID == "" {
		return RelayNotification{}, TenantCredentials{}, goerrors.New(
			"core: notification carries no account id and no routed tenant id",
			goerrors.CategoryAuth,
		).WithCode(http.StatusUnauthorized).WithTextCode(ReconcileErrorUnauthorized)
	}
	if s.credentialResolver == nil {
		return RelayNotification{}, TenantCredentials{}, goerrors.New(
			"core: credential resolver is not configured", goerrors.CategoryInternal,
		).WithCode(http.StatusInternalServerError).WithTextCode(ReconcileErrorInternal)
	}

	creds, err := s.credentialResolver.Resolve(ctx, notification.AccountID, tenantID)
	if err != nil {
		return RelayNotification{}, TenantCredentials{}, err
	}
	return notification, creds, nil
}

func (s *Service) reconcile(
	ctx context.Context,
	creds TenantCredentials,
	notification RelayNotification,
) (ReconcileOutcome, error) {
	if s.clientFactory == nil {
		return ReconcileOutcome{}, goerrors.New(
			"core: provider client factory is not configured", goerrors.CategoryInternal,
		).WithCode(http.StatusInternalServerError).WithTextCode(ReconcileErrorInternal)
	}
	if s.outcomeStore == nil {
		return ReconcileOutcome{}, goerrors.New(
			"core: outcome store is not configured", goerrors.CategoryInternal,
		).WithCode(http.StatusInternalServerError).WithTextCode(ReconcileErrorInternal)
	}

	client, err := s.clientFactory(creds)
	if err != nil {
		return ReconcileOutcome{}, goerrors.Wrap(
			err, goerrors.CategoryInternal, "core: build provider client",
		).WithCode(http.StatusInternalServerError).WithTextCode(ReconcileErrorInternal)
	}

	resolution, err := s.scheduler.Resolve(ctx, client, notification.EventID, notification.PendingDeliveryCount)
	if err != nil {
		return ReconcileOutcome{}, goerrors.Wrap(
			err, goerrors.CategoryExternal, "core: delivery probe failed",
		).WithCode(http.StatusBadGateway).WithTextCode(ReconcileErrorProbeFailed)
	}

	netPending := resolution.PendingDeliveries - s.config.Reconcile.RegisteredHooks
	if netPending < 0 {
		netPending = 0
	}

	// The novelty check and the audit append must not race with a duplicate
	// delivery of the same key: both inside the per-key critical section.
	unlock := s.keyLocks.Lock(LockKey(notification.EventID, notification.IdempotencyKey))
	novel, record, err := s.recordOutcomeLocked(ctx, creds, notification, resolution.Succeeded, netPending)
	unlock()
	if err != nil {
		return ReconcileOutcome{}, err
	}

	outcome := ReconcileOutcome{
		TenantID:          creds.Tenant.ID,
		EventID:           notification.EventID,
		Succeeded:         resolution.Succeeded,
		PendingDeliveries: netPending,
		Novel:             novel,
		Record:            record,
	}
	if novel {
		s.applySideEffects(ctx, creds, notification, outcome)
	} else {
		s.logInfo(ctx, "duplicate outcome recorded, side effects suppressed", map[string]any{
			"tenant_id":       creds.Tenant.ID,
			"event_id":        notification.EventID,
			"idempotency_key": notification.IdempotencyKey,
			"succeeded":       resolution.Succeeded,
		})
	}
	return outcome, nil
}

func (s *Service) recordOutcomeLocked(
	ctx context.Context,
	creds TenantCredentials,
	notification RelayNotification,
	succeeded bool,
	netPending int,
) (bool, OutcomeRecord, error) {
	dedup := webhooks.NewOutcomeDeduplicator(outcomeHistory{store: s.outcomeStore})
	novel, err := dedup.IsNovel(ctx, notification.EventID, notification.IdempotencyKey, succeeded)
	if err != nil {
		return false, OutcomeRecord{}, goerrors.Wrap(
			err, goerrors.CategoryInternal, "core: outcome dedup lookup failed",
		).WithCode(http.StatusInternalServerError).WithTextCode(ReconcileErrorStoreFailed)
	}

	record, err := s.outcomeStore.Append(ctx, OutcomeRecord{
		TenantID:             creds.Tenant.ID,
		EventID:              notification.EventID,
		EventType:            notification.EventType,
		CreatedAt:            notification.CreatedAt,
		Livemode:             notification.Livemode,
		PendingDeliveryCount: netPending,
		RequestID:            notification.RequestID,
		IdempotencyKey:       notification.IdempotencyKey,
		Succeeded:            succeeded,
		Connected:            creds.Connected,
	})
	if err != nil {
		return false, OutcomeRecord{}, goerrors.Wrap(
			err, goerrors.CategoryInternal, "core: append outcome record",
		).WithCode(http.StatusInternalServerError).WithTextCode(ReconcileErrorStoreFailed)
	}
	return novel, record, nil
}

// applySideEffects runs only for novel outcomes, after the audit record is
// durable. Both effects are best-effort: failures are logged and never roll
// back the record.
func (s *Service) applySideEffects(
	ctx context.Context,
	creds TenantCredentials,
	notification RelayNotification,
	outcome ReconcileOutcome,
) {
	if s.usageStore != nil {
		if err := s.usageStore.Decrement(ctx, creds.Tenant.ID); err != nil {
			s.logError(ctx, "usage decrement failed", map[string]any{
				"tenant_id": creds.Tenant.ID,
				"event_id":  notification.EventID,
				"error":     err.Error(),
			})
		}
	}

	if outcome.Succeeded {
		return
	}
	if s.notifier == nil {
		return
	}
	recipient := strings.TrimSpace(creds.Tenant.Email)
	if recipient == "" {
		s.logError(ctx, "failure notification skipped, tenant has no contact address", map[string]any{
			"tenant_id": creds.Tenant.ID,
			"event_id":  notification.EventID,
		})
		return
	}
	body := webhooks.RenderFailureEmail(webhooks.FailureEmailData{
		EventID:          notification.EventID,
		EventType:        notification.EventType,
		FailedDeliveries: outcome.PendingDeliveries,
		Livemode:         notification.Livemode,
		OccurredAt:       time.Now().UTC(),
	})
	if err := s.notifier.Send(ctx, recipient, webhooks.FailureEmailSubject, body); err != nil {
		s.logError(ctx, "failure notification send failed", map[string]any{
			"tenant_id": creds.Tenant.ID,
			"event_id":  notification.EventID,
			"error":     err.Error(),
		})
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

type outcomeHistory struct {
	store OutcomeStore
}

func (h outcomeHistory) PriorOutcomes(
	ctx context.Context,
	eventID string,
	idempotencyKey string,
) ([]webhooks.PriorOutcome, error) {
	records, err := h.store.ListByEventKey(ctx, eventID, idempotencyKey)
	if err != nil {
		return nil, err
	}
	prior := make([]webhooks.PriorOutcome, 0, len(records))
	for _, record := range records {
		prior = append(prior, webhooks.PriorOutcome{Succeeded: record.Succeeded})
	}
	return prior, nil
}
