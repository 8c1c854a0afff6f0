package model

import (
	"errors"
	"io/fs"
)

var (
	// ErrMissingAPIKey is returned by upstream clients constructed without credentials.
	ErrMissingAPIKey = errors.New("missing api key")
	// ErrJournalDisabled marks journal reads when no journal is configured.
	ErrJournalDisabled = errors.New("journal disabled")
)

// ErrorKind classifies a tool failure. It is rendered verbatim as the
// error_kind field of an in-band failure.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindWrongType        ErrorKind = "wrong_type"
	KindDecodeFailure    ErrorKind = "decode_failure"
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindUpstream         ErrorKind = "upstream_error"
	KindConfig           ErrorKind = "config_error"
	KindIO               ErrorKind = "io_error"
)

// ToolError is a classified failure raised by a tool implementation. Fields
// are merged into the rendered failure next to the message.
type ToolError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]any
	Cause   error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewToolError builds a ToolError without extra fields.
func NewToolError(kind ErrorKind, message string, cause error) *ToolError {
	return &ToolError{Kind: kind, Message: message, Cause: cause}
}

// ProviderError describes a failed call to a remote API.
type ProviderError struct {
	Code       string
	Message    string
	Retryable  bool
	StatusCode int
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf maps err onto the error taxonomy. Unclassified errors are io_error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) && toolErr.Kind != "" {
		return toolErr.Kind
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return KindUpstream
	}
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return KindConfig
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindPermissionDenied
	default:
		return KindIO
	}
}
