package inbound

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/relaywatch/go-relaywatch/core"
)

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func inboundBadInput(message string, metadata map[string]any) error {
	return inboundError(
		message,
		goerrors.CategoryBadInput,
		http.StatusBadRequest,
		core.ReconcileErrorBadInput,
		metadata,
	)
}

func inboundInternal(message string, metadata map[string]any) error {
	return inboundError(
		message,
		goerrors.CategoryInternal,
		http.StatusInternalServerError,
		core.ReconcileErrorInternal,
		metadata,
	)
}

// statusFor picks the response status for a failed accept. Rich errors carry
// their own HTTP code; anything else is an internal failure.
func statusFor(err error) (int, string) {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		code := richErr.Code
		if code == 0 {
			code = http.StatusInternalServerError
		}
		textCode := richErr.TextCode
		if textCode == "" {
			textCode = core.ReconcileErrorInternal
		}
		return code, textCode
	}
	return http.StatusInternalServerError, core.ReconcileErrorInternal
}
