package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/relaywatch/go-relaywatch/core"
	"github.com/uptrace/bun"
)

type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*tenantCredentialRecord]
}

func NewCredentialStore(db *bun.DB) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*tenantCredentialRecord](db, tenantCredentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	return &CredentialStore{db: db, repo: repo}, nil
}

func (s *CredentialStore) GetByAccountID(ctx context.Context, accountID string) (core.TenantCredentials, error) {
	if s == nil || s.repo == nil {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: account id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("account_id", "=", accountID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.TenantCredentials{}, err
	}
	if len(records) == 0 {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: credentials not found for account %q", accountID)
	}
	return records[0].toDomain(), nil
}

func (s *CredentialStore) GetByTenantID(ctx context.Context, tenantID string) (core.TenantCredentials, error) {
	if s == nil || s.repo == nil {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: tenant id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", tenantID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.TenantCredentials{}, err
	}
	if len(records) == 0 {
		return core.TenantCredentials{}, fmt.Errorf("sqlstore: credentials not found for tenant %q", tenantID)
	}
	return records[0].toDomain(), nil
}

func (r *tenantCredentialRecord) toDomain() core.TenantCredentials {
	if r == nil {
		return core.TenantCredentials{}
	}
	return core.TenantCredentials{
		Tenant: core.Tenant{
			ID:    strings.TrimSpace(r.TenantID),
			Email: strings.TrimSpace(r.Email),
		},
		APIKey:    strings.TrimSpace(r.APIKey),
		AccountID: strings.TrimSpace(r.AccountID),
		Connected: r.Connected,
	}
}
