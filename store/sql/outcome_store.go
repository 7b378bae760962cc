package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/relaywatch/go-relaywatch/core"
	"github.com/uptrace/bun"
)

const defaultOutcomePageSize = 25

type OutcomeStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookOutcomeRecord]
}

func NewOutcomeStore(db *bun.DB) (*OutcomeStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookOutcomeRecord](db, webhookOutcomeHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid outcome repository wiring: %w", err)
		}
	}
	return &OutcomeStore{db: db, repo: repo}, nil
}

func (s *OutcomeStore) Append(ctx context.Context, outcome core.OutcomeRecord) (core.OutcomeRecord, error) {
	if s == nil || s.repo == nil {
		return core.OutcomeRecord{}, fmt.Errorf("sqlstore: outcome store is not configured")
	}
	tenantID := strings.TrimSpace(outcome.TenantID)
	eventID := strings.TrimSpace(outcome.EventID)
	if tenantID == "" {
		return core.OutcomeRecord{}, fmt.Errorf("sqlstore: tenant id is required")
	}
	if eventID == "" {
		return core.OutcomeRecord{}, fmt.Errorf("sqlstore: event id is required")
	}

	id := strings.TrimSpace(outcome.ID)
	if id == "" {
		id = uuid.NewString()
	}
	recordedAt := outcome.RecordedAt.UTC()
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	record := &webhookOutcomeRecord{
		ID:                id,
		TenantID:          tenantID,
		EventID:           eventID,
		EventType:         strings.TrimSpace(outcome.EventType),
		EventCreatedAt:    outcome.CreatedAt.UTC(),
		Livemode:          outcome.Livemode,
		PendingDeliveries: outcome.PendingDeliveryCount,
		RequestID:         strings.TrimSpace(outcome.RequestID),
		IdempotencyKey:    strings.TrimSpace(outcome.IdempotencyKey),
		Succeeded:         outcome.Succeeded,
		Connected:         outcome.Connected,
		RecordedAt:        recordedAt,
	}
	inserted, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.OutcomeRecord{}, err
	}
	return inserted.toDomain(), nil
}

func (s *OutcomeStore) ListByEventKey(
	ctx context.Context,
	eventID string,
	idempotencyKey string,
) ([]core.OutcomeRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: outcome store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, fmt.Errorf("sqlstore: event id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("event_id", "=", eventID),
		repository.SelectBy("idempotency_key", "=", strings.TrimSpace(idempotencyKey)),
		repository.OrderBy("recorded_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	return outcomeRecordsToDomain(records), nil
}

func (s *OutcomeStore) ListByTenant(
	ctx context.Context,
	tenantID string,
	limit int,
	offset int,
) ([]core.OutcomeRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: outcome store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("sqlstore: tenant id is required")
	}
	if limit <= 0 {
		limit = defaultOutcomePageSize
	}
	if offset < 0 {
		offset = 0
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", tenantID),
		repository.OrderBy("recorded_at DESC"),
		repository.SelectPaginate(limit, offset),
	)
	if err != nil {
		return nil, err
	}
	return outcomeRecordsToDomain(records), nil
}

func outcomeRecordsToDomain(records []*webhookOutcomeRecord) []core.OutcomeRecord {
	outcomes := make([]core.OutcomeRecord, 0, len(records))
	for _, record := range records {
		outcomes = append(outcomes, record.toDomain())
	}
	return outcomes
}

func (r *webhookOutcomeRecord) toDomain() core.OutcomeRecord {
	if r == nil {
		return core.OutcomeRecord{}
	}
	return core.OutcomeRecord{
		ID:                   r.ID,
		TenantID:             r.TenantID,
		EventID:              r.EventID,
		EventType:            r.EventType,
		CreatedAt:            r.EventCreatedAt,
		Livemode:             r.Livemode,
		PendingDeliveryCount: r.PendingDeliveries,
		RequestID:            r.RequestID,
		IdempotencyKey:       r.IdempotencyKey,
		Succeeded:            r.Succeeded,
		Connected:            r.Connected,
		RecordedAt:           r.RecordedAt,
	}
}
