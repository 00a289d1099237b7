package handlers

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/viperadnan-git/meeting-summary/internal/core/errdefs"
)

// APIError is the custom error type for all API error responses.
// Implements huma.StatusError so huma serializes it as the response body.
type APIError struct {
	status  int
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

func (e *APIError) Error() string  { return e.Err }
func (e *APIError) GetStatus() int { return e.status }

// InitErrors overrides huma's default error factory so all error responses
// use the unified {success, error} format.
func InitErrors() {
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		detail := msg
		if len(errs) > 0 {
			parts := make([]string, len(errs))
			for i, e := range errs {
				parts[i] = e.Error()
			}
			detail = msg + ": " + strings.Join(parts, "; ")
		}
		return &APIError{status: status, Success: false, Err: detail}
	}
}

// statusError maps a core error onto an API error, prefixing failures of an
// external step with what was being attempted, e.g. "Transcription failed: ".
func statusError(err error, prefix string) error {
	return &APIError{status: errdefs.HTTPStatus(err), Success: false, Err: errdefs.Message(err, prefix)}
}
