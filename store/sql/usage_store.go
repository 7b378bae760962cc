package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type UsageStore struct {
	db *bun.DB
}

func NewUsageStore(db *bun.DB) (*UsageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &UsageStore{db: db}, nil
}

// Decrement spends one usage token in a single atomic update. The balance
// never goes below zero; a tenant already at zero is not an error.
func (s *UsageStore) Decrement(ctx context.Context, tenantID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: usage store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return fmt.Errorf("sqlstore: tenant id is required")
	}

	res, err := s.db.NewUpdate().
		Model((*usageAllowanceRecord)(nil)).
		Set("tokens_left = tokens_left - 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("tenant_id = ?", tenantID).
		Where("tokens_left > 0").
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		exists, existsErr := s.allowanceExists(ctx, tenantID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return fmt.Errorf("sqlstore: usage allowance not found for tenant %q", tenantID)
		}
	}
	return nil
}

func (s *UsageStore) TokensLeft(ctx context.Context, tenantID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: usage store is not configured")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return 0, fmt.Errorf("sqlstore: tenant id is required")
	}

	var tokensLeft int
	err := s.db.NewSelect().
		Model((*usageAllowanceRecord)(nil)).
		Column("tokens_left").
		Where("tenant_id = ?", tenantID).
		Scan(ctx, &tokensLeft)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("sqlstore: usage allowance not found for tenant %q", tenantID)
		}
		return 0, err
	}
	return tokensLeft, nil
}

func (s *UsageStore) allowanceExists(ctx context.Context, tenantID string) (bool, error) {
	count, err := s.db.NewSelect().
		Model((*usageAllowanceRecord)(nil)).
		Where("tenant_id = ?", tenantID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
