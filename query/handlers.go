package query

import (
	"context"

	"github.com/relaywatch/go-relaywatch/core"
)

type OutcomeReader interface {
	ListByEventKey(ctx context.Context, eventID string, idempotencyKey string) ([]core.OutcomeRecord, error)
	ListByTenant(ctx context.Context, tenantID string, limit int, offset int) ([]core.OutcomeRecord, error)
}

type ListOutcomeRecordsQuery struct {
	reader OutcomeReader
}

func NewListOutcomeRecordsQuery(reader OutcomeReader) *ListOutcomeRecordsQuery {
	return &ListOutcomeRecordsQuery{reader: reader}
}

func (q *ListOutcomeRecordsQuery) Query(
	ctx context.Context,
	msg ListOutcomeRecordsMessage,
) ([]core.OutcomeRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: outcome reader is required")
	}
	return q.reader.ListByTenant(ctx, msg.TenantID, msg.Limit, msg.Offset)
}

type ListEventOutcomesQuery struct {
	reader OutcomeReader
}

func NewListEventOutcomesQuery(reader OutcomeReader) *ListEventOutcomesQuery {
	return &ListEventOutcomesQuery{reader: reader}
}

func (q *ListEventOutcomesQuery) Query(
	ctx context.Context,
	msg ListEventOutcomesMessage,
) ([]core.OutcomeRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: outcome reader is required")
	}
	return q.reader.ListByEventKey(ctx, msg.EventID, msg.IdempotencyKey)
}
