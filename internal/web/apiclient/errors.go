package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a structured error response from the account API.
// Fields carries per-field validation messages when the API returned any.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: HTTP %d", e.StatusCode)
}

// IsAuthFailure reports whether the error denotes rejected credentials or an
// invalid/expired token rather than a malformed request or server fault.
func (e *APIError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
// The account API is not fully consistent: errors arrive as {"message": ...},
// {"detail": ...} or {"errors": {field: [...]}} depending on the endpoint.
func parseErrorResponse(statusCode int, body []byte) error {
	var payload struct {
		Message string              `json:"message"`
		Detail  string              `json:"detail"`
		Errors  map[string][]string `json:"errors"`
	}

	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Message
		if apiErr.Message == "" {
			apiErr.Message = payload.Detail
		}
		apiErr.Fields = payload.Errors
	}

	return apiErr
}
