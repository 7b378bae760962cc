package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func tenantCredentialHandlers() repository.ModelHandlers[*tenantCredentialRecord] {
	return repository.ModelHandlers[*tenantCredentialRecord]{
		NewRecord: func() *tenantCredentialRecord {
			return &tenantCredentialRecord{}
		},
		GetID: func(record *tenantCredentialRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *tenantCredentialRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *tenantCredentialRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func webhookOutcomeHandlers() repository.ModelHandlers[*webhookOutcomeRecord] {
	return repository.ModelHandlers[*webhookOutcomeRecord]{
		NewRecord: func() *webhookOutcomeRecord {
			return &webhookOutcomeRecord{}
		},
		GetID: func(record *webhookOutcomeRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *webhookOutcomeRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *webhookOutcomeRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func usageAllowanceHandlers() repository.ModelHandlers[*usageAllowanceRecord] {
	return repository.ModelHandlers[*usageAllowanceRecord]{
		NewRecord: func() *usageAllowanceRecord {
			return &usageAllowanceRecord{}
		},
		GetID: func(record *usageAllowanceRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *usageAllowanceRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *usageAllowanceRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
