package model

import (
	"errors"
	"maps"
)

// Result is the outcome of a tool call: either Ok with named fields or Err
// with a kind and a human-readable message. Both render to a plain object
// carrying a success flag, which is how callers tell them apart.
type Result struct {
	ok      bool
	fields  map[string]any
	kind    ErrorKind
	message string
}

// Ok wraps a successful payload.
func Ok(fields map[string]any) Result {
	return Result{ok: true, fields: fields}
}

// Err builds a failure. extra is merged into the rendered object and may be nil.
func Err(kind ErrorKind, message string, extra map[string]any) Result {
	return Result{kind: kind, message: message, fields: extra}
}

// FromError converts err into a failure, carrying ToolError fields along and
// adding defaults for keys the tool always reports (for example content or
// replacements) when the error does not set them.
func FromError(err error, defaults map[string]any) Result {
	extra := make(map[string]any, len(defaults))
	maps.Copy(extra, defaults)
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		maps.Copy(extra, toolErr.Fields)
	}
	message := err.Error()
	// Provider errors are shown without their code prefix.
	if providerErr, ok := err.(*ProviderError); ok && providerErr != nil {
		message = providerErr.Message
	}
	return Err(KindOf(err), message, extra)
}

func (r Result) OK() bool { return r.ok }

func (r Result) Kind() ErrorKind { return r.kind }

func (r Result) Message() string { return r.message }

// Fields renders the result as the object returned to the caller.
func (r Result) Fields() map[string]any {
	out := make(map[string]any, len(r.fields)+3)
	maps.Copy(out, r.fields)
	if r.ok {
		out["success"] = true
		return out
	}
	out["success"] = false
	out["error"] = r.message
	out["error_kind"] = string(r.kind)
	return out
}
