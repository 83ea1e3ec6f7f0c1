package sitesdk

import (
	"fmt"

	"github.com/imroc/req/v3"
)

// apiErrorBody is the failure payload shape the server returns. Older
// endpoints use "error", newer ones "message"; either may be set.
type apiErrorBody struct {
	Message string        `json:"message,omitempty"`
	Err     string        `json:"error,omitempty"`
	Details *ErrorDetails `json:"details,omitempty"`
}

func (b *apiErrorBody) message() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Err
}

// ErrorDetails carries structured failure context. On 409 name conflicts
// the server fills Suggestions with available alternatives.
type ErrorDetails struct {
	Suggestions []string `json:"suggestions,omitempty"`
	Field       string   `json:"field,omitempty"`
}

// APIError is a non-2xx response from the sync API.
type APIError struct {
	StatusCode int
	Message    string
	Details    *ErrorDetails
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.StatusCode, e.Message)
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
		if body, ok := resp.ErrorResult().(*apiErrorBody); ok && body != nil {
			if msg := body.message(); msg != "" {
				apiErr.Message = msg
			}
			apiErr.Details = body.Details
		}
		return fmt.Errorf("%s: %w", operation, apiErr)
	}

	return nil
}
