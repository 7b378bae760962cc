// Package identity resolves which tenant owns an inbound relay
// notification: lookup by connected-account id when the payload carries one,
// otherwise by the tenant id routed on the inbound path.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/relaywatch/go-relaywatch/core"
)

var ErrCredentialsNotFound = errors.New("identity: tenant credentials not found")

// CredentialsNotFoundError signals that the notification does not correspond
// to any known tenant. It is an unauthorized signal at the boundary, not an
// internal failure.
type CredentialsNotFoundError struct {
	Cause error
}

func (e *CredentialsNotFoundError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrCredentialsNotFound.Error()
	}
	return ErrCredentialsNotFound.Error() + ": " + e.Cause.Error()
}

func (e *CredentialsNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrCredentialsNotFound
	}
	return errors.Join(ErrCredentialsNotFound, e.Cause)
}

func (e *CredentialsNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrCredentialsNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ReconcileErrorUnauthorized)
}

func credentialsNotFound(cause error) error {
	notFound := &CredentialsNotFoundError{Cause: cause}
	return notFound.ToServiceError()
}

type Resolver struct {
	store core.CredentialStore
}

func NewResolver(store core.CredentialStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve prefers the account id when both identifiers are present, matching
// the routing precedence of the inbound boundary. Store "not found" results
// map to an unauthorized envelope; other store errors propagate unchanged.
func (r *Resolver) Resolve(
	ctx context.Context,
	accountID string,
	tenantID string,
) (core.TenantCredentials, error) {
	if r == nil || r.store == nil {
		return core.TenantCredentials{}, goerrors.New(
			"identity: credential store is required", goerrors.CategoryInternal,
		).WithCode(http.StatusInternalServerError).WithTextCode(core.ReconcileErrorInternal)
	}

	accountID = strings.TrimSpace(accountID)
	tenantID = strings.TrimSpace(tenantID)
	if accountID == "" && tenantID == "" {
		return core.TenantCredentials{}, credentialsNotFound(nil)
	}

	var (
		creds core.TenantCredentials
		err   error
	)
	if accountID != "" {
		creds, err = r.store.GetByAccountID(ctx, accountID)
	} else {
		creds, err = r.store.GetByTenantID(ctx, tenantID)
	}
	if err != nil {
		if IsNotFound(err) {
			return core.TenantCredentials{}, credentialsNotFound(err)
		}
		return core.TenantCredentials{}, err
	}
	if strings.TrimSpace(creds.Tenant.ID) == "" {
		return core.TenantCredentials{}, credentialsNotFound(nil)
	}
	return creds, nil
}

// IsNotFound reports whether a store error means "no matching row" rather
// than an infrastructure failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *CredentialsNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryNotFound {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "no rows") || strings.Contains(message, "not found")
}

var _ core.CredentialResolver = (*Resolver)(nil)
