package identity

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/relaywatch/go-relaywatch/core"
)

type stubCredentialStore struct {
	byAccount map[string]core.TenantCredentials
	byTenant  map[string]core.TenantCredentials
	err       error

	accountLookups []string
	tenantLookups  []string
}

func (s *stubCredentialStore) GetByAccountID(_ context.Context, accountID string) (core.TenantCredentials, error) {
	s.accountLookups = append(s.accountLookups, accountID)
	if s.err != nil {
		return core.TenantCredentials{}, s.err
	}
	creds, ok := s.byAccount[accountID]
	if !ok {
		return core.TenantCredentials{}, errors.New("sqlstore: credentials not found for account")
	}
	return creds, nil
}

func (s *stubCredentialStore) GetByTenantID(_ context.Context, tenantID string) (core.TenantCredentials, error) {
	s.tenantLookups = append(s.tenantLookups, tenantID)
	if s.err != nil {
		return core.TenantCredentials{}, s.err
	}
	creds, ok := s.byTenant[tenantID]
	if !ok {
		return core.TenantCredentials{}, errors.New("sqlstore: credentials not found for tenant")
	}
	return creds, nil
}

func testCreds() core.TenantCredentials {
	return core.TenantCredentials{
		Tenant:    core.Tenant{ID: "ten_1", Email: "owner@example.com"},
		AccountID: "acct_1",
		Connected: true,
	}
}

func TestResolvePrefersAccountID(t *testing.T) {
	store := &stubCredentialStore{
		byAccount: map[string]core.TenantCredentials{"acct_1": testCreds()},
		byTenant:  map[string]core.TenantCredentials{"ten_1": testCreds()},
	}
	resolver := NewResolver(store)

	creds, err := resolver.Resolve(context.Background(), "acct_1", "ten_1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.Tenant.ID != "ten_1" {
		t.Fatalf("expected tenant ten_1, got %q", creds.Tenant.ID)
	}
	if len(store.accountLookups) != 1 || len(store.tenantLookups) != 0 {
		t.Fatalf("expected account lookup only, got %v %v", store.accountLookups, store.tenantLookups)
	}
}

func TestResolveFallsBackToTenantID(t *testing.T) {
	store := &stubCredentialStore{
		byTenant: map[string]core.TenantCredentials{"ten_1": testCreds()},
	}
	resolver := NewResolver(store)

	creds, err := resolver.Resolve(context.Background(), "", "ten_1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.Tenant.ID != "ten_1" {
		t.Fatalf("expected tenant ten_1, got %q", creds.Tenant.ID)
	}
	if len(store.tenantLookups) != 1 {
		t.Fatalf("expected tenant lookup, got %v", store.tenantLookups)
	}
}

func TestResolveUnknownAccountIsUnauthorized(t *testing.T) {
	resolver := NewResolver(&stubCredentialStore{})

	_, err := resolver.Resolve(context.Background(), "acct_missing", "")
	if err == nil {
		t.Fatalf("expected unauthorized error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", richErr.Code)
	}
	if richErr.TextCode != core.ReconcileErrorUnauthorized {
		t.Fatalf("expected unauthorized text code, got %s", richErr.TextCode)
	}
}

func TestResolveEmptyIdentifiersAreUnauthorized(t *testing.T) {
	resolver := NewResolver(&stubCredentialStore{})

	_, err := resolver.Resolve(context.Background(), "  ", "")
	if err == nil {
		t.Fatalf("expected unauthorized error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %v", err)
	}
}

func TestResolvePropagatesInfrastructureErrors(t *testing.T) {
	storeErr := errors.New("dial tcp: connection refused")
	resolver := NewResolver(&stubCredentialStore{err: storeErr})

	_, err := resolver.Resolve(context.Background(), "acct_1", "")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestResolveRejectsCredentialsWithoutTenant(t *testing.T) {
	store := &stubCredentialStore{
		byAccount: map[string]core.TenantCredentials{"acct_1": {AccountID: "acct_1"}},
	}
	resolver := NewResolver(store)

	_, err := resolver.Resolve(context.Background(), "acct_1", "")
	if err == nil {
		t.Fatalf("expected unauthorized for credentials without a tenant")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows to read as not found")
	}
	if !IsNotFound(errors.New("sqlstore: credentials not found for tenant")) {
		t.Fatalf("expected store message to read as not found")
	}
	if !IsNotFound(goerrors.New("missing", goerrors.CategoryNotFound)) {
		t.Fatalf("expected not-found category to match")
	}
	if IsNotFound(errors.New("connection refused")) {
		t.Fatalf("expected infrastructure error to not match")
	}
	if IsNotFound(nil) {
		t.Fatalf("expected nil to not match")
	}
}

func TestCredentialsNotFoundErrorUnwraps(t *testing.T) {
	cause := errors.New("no rows in result set")
	notFound := &CredentialsNotFoundError{Cause: cause}

	if !errors.Is(notFound, ErrCredentialsNotFound) {
		t.Fatalf("expected sentinel match")
	}
	if !errors.Is(notFound, cause) {
		t.Fatalf("expected cause match")
	}
}
