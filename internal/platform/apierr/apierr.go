package apierr

import (
	"fmt"
	"net/http"
)

// Error is an HTTP-facing failure: a status, a stable machine code and optional extra fields.
type Error struct {
	Status int
	Code   string
	Err    error
	Extra  map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// With attaches an extra response field and returns e for chaining.
func (e *Error) With(key string, val any) *Error {
	if e.Extra == nil {
		e.Extra = map[string]any{}
	}
	e.Extra[key] = val
	return e
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", err)
}
