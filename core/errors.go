package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ReconcileErrorBadInput     = "RECONCILE_BAD_INPUT"
	ReconcileErrorUnauthorized = "RECONCILE_UNAUTHORIZED"
	ReconcileErrorProbeFailed  = "RECONCILE_PROBE_FAILED"
	ReconcileErrorStoreFailed  = "RECONCILE_STORE_FAILED"
	ReconcileErrorInternal     = "RECONCILE_INTERNAL_ERROR"
)

func reconcileErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureReconcileErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "credentials not found"), strings.Contains(msg, "unauthorized"):
		return newReconcileError(err.Error(), goerrors.CategoryAuth, ReconcileErrorUnauthorized)
	case strings.Contains(msg, "probe"), strings.Contains(msg, "provider"):
		return newReconcileError(err.Error(), goerrors.CategoryExternal, ReconcileErrorProbeFailed)
	case strings.Contains(msg, "store"), strings.Contains(msg, "sql"):
		return newReconcileError(err.Error(), goerrors.CategoryInternal, ReconcileErrorStoreFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newReconcileError(err.Error(), goerrors.CategoryBadInput, ReconcileErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureReconcileErrorEnvelope(mapped)
}

func newReconcileError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureReconcileErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureReconcileErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = reconcileHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultReconcileTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultReconcileTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ReconcileErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ReconcileErrorUnauthorized
	case goerrors.CategoryExternal:
		return ReconcileErrorProbeFailed
	default:
		return ReconcileErrorInternal
	}
}

func reconcileHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
