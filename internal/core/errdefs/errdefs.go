package errdefs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned when a referenced artifact or job does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError is a user-correctable input problem (bad extension, missing file).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExternalToolError reports a subprocess that failed or exited non-zero.
type ExternalToolError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExternalToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.CommandLine(), e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// CommandLine renders the invoked command for logs and error messages.
func (e *ExternalToolError) CommandLine() string {
	if len(e.Args) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Args, " ")
}

// ModelLoadError means the requested speech model could not be loaded.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load model %q", e.Model)
	}
	return fmt.Sprintf("load model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError is a stage-specific failure while running a model.
type InferenceError struct {
	Stage string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// EmptyResultError means a stage finished without producing anything usable.
type EmptyResultError struct {
	Msg string
}

func (e *EmptyResultError) Error() string { return e.Msg }

// HTTPStatus maps an error kind to the status code the API reports for it.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		tool       *ExternalToolError
		model      *ModelLoadError
		inference  *InferenceError
		empty      *EmptyResultError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &tool), errors.As(err, &model), errors.As(err, &inference), errors.As(err, &empty):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing text for err. Failures of an external step get
// prefix; user errors, missing resources and empty results are reported as is.
func Message(err error, prefix string) string {
	var (
		validation *ValidationError
		empty      *EmptyResultError
	)
	if errors.Is(err, ErrNotFound) || errors.As(err, &validation) || errors.As(err, &empty) {
		return err.Error()
	}
	return prefix + err.Error()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
