package query

import (
	"fmt"
	"strings"
)

const (
	TypeListOutcomeRecords = "relaywatch.query.outcomes.list"
	TypeListEventOutcomes  = "relaywatch.query.outcomes.event"
)

type ListOutcomeRecordsMessage struct {
	TenantID string
	Limit    int
	Offset   int
}

func (ListOutcomeRecordsMessage) Type() string { return TypeListOutcomeRecords }

func (m ListOutcomeRecordsMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return fmt.Errorf("query: tenant id is required")
	}
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	if m.Offset < 0 {
		return fmt.Errorf("query: offset must be >= 0")
	}
	return nil
}

type ListEventOutcomesMessage struct {
	EventID        string
	IdempotencyKey string
}

func (ListEventOutcomesMessage) Type() string { return TypeListEventOutcomes }

func (m ListEventOutcomesMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return fmt.Errorf("query: event id is required")
	}
	return nil
}
