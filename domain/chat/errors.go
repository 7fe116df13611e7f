package chat

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential = errors.New("api key not configured")
	ErrInvalidProvider   = errors.New("unsupported ai provider")
	ErrUpstreamHTTP      = errors.New("upstream api error")
	ErrUpstreamTimeout   = errors.New("upstream api timeout")
	ErrUpstreamTransport = errors.New("upstream transport error")
	ErrCircuitOpen       = errors.New("upstream circuit open")
	ErrEmptyCompletion   = errors.New("upstream returned no content")
	ErrPromptEmpty       = errors.New("prompt cannot be empty")
	ErrPromptTooLong     = errors.New("prompt too long")
)

// Error describes a failed upstream interaction. Kind is one of the
// sentinel errors above, so callers match with errors.Is.
type Error struct {
	Kind     error
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Kind, ErrUpstreamHTTP):
		return fmt.Sprintf("%s api error: %d - %s", e.Provider, e.Status, e.Body)
	case errors.Is(e.Kind, ErrInvalidProvider):
		return fmt.Sprintf("%s: %q", e.Kind, e.Provider)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.Provider, e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError wraps cause as an error of the given kind for provider.
func NewError(kind error, provider string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: cause}
}

// NewHTTPError records a non-success upstream status with a body excerpt.
func NewHTTPError(provider string, status int, body string) *Error {
	return &Error{Kind: ErrUpstreamHTTP, Provider: provider, Status: status, Body: body}
}

// Kind returns a short label for err, used in logs, metrics and records.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrInvalidProvider):
		return "invalid_provider"
	case errors.Is(err, ErrUpstreamHTTP):
		return "http_error"
	case errors.Is(err, ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty_completion"
	case errors.Is(err, ErrUpstreamTransport):
		return "transport_error"
	default:
		return "error"
	}
}
