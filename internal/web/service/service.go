// Package service holds the flow controllers between the HTML form handlers
// and the account API. Operations return explicit result structs describing
// what happened and what the session should now contain; deciding on a
// redirect is the handler's job, never a side effect in here.
package service

import (
	"context"
	"errors"

	"github.com/quidfin/web/internal/web/apiclient"
	"github.com/quidfin/web/internal/web/validate"
	"github.com/quidfin/web/pkg/slogx"
)

// GenericFailureMessage is shown whenever a remote call fails for reasons the
// user can do nothing about (network fault, unexpected response, 5xx).
const GenericFailureMessage = "Something went wrong, please try again later."

// apiFailure maps a remote-call error onto form state: structured field
// errors pass through, a server-provided message is kept when present, and
// anything else (transport faults included) collapses to fallback. Nothing
// escapes to the caller as a raw error.
func apiFailure(ctx context.Context, err error, fallback string) (validate.Errors, string) {
	log := slogx.FromContext(ctx)

	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if len(apiErr.Fields) > 0 {
			fieldErrs := validate.Errors{}
			fieldErrs.Merge(apiErr.Fields)
			return fieldErrs, ""
		}
		if apiErr.Message != "" {
			return nil, apiErr.Message
		}
		log.Warn("account api rejected request", "status", apiErr.StatusCode)
		return nil, fallback
	}

	log.Error("account api call failed", "err", err)
	return nil, GenericFailureMessage
}
