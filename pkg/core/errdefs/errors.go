// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package errdefs defines the failure taxonomy shared by the search
// pipeline and the transports that expose it.
//
// Packages below the transport boundary return *Error values and never
// translate them into protocol statuses themselves; HTTPStatus is the one
// place that mapping lives.
package errdefs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindConfiguration       Kind = "configuration_error"
	KindValidation          Kind = "validation_error"
	KindUpstreamTimeout     Kind = "upstream_timeout"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamFormat      Kind = "upstream_format_error"
	KindProvider            Kind = "provider_error"
	KindGeneration          Kind = "generation_error"
	KindInternal            Kind = "internal_error"
)

// Error is a typed pipeline failure. Message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	// Code is the provider-level status code for KindProvider, zero otherwise.
	Code int
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Configuration reports a missing or unusable credential/setting. Callers
// recover by supplying their own key.
func Configuration(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Validation reports a request that failed schema validation.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// UpstreamTimeout reports that the search provider did not answer in time.
func UpstreamTimeout(err error) *Error {
	return &Error{
		Kind:    KindUpstreamTimeout,
		Message: "Search service timeout, please try again",
		Err:     err,
	}
}

// UpstreamUnavailable reports a transport or HTTP-level failure talking to
// the search provider.
func UpstreamUnavailable(message string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: message, Err: err}
}

// UpstreamFormat reports a search provider reply that is not a JSON object.
func UpstreamFormat(err error) *Error {
	return &Error{
		Kind:    KindUpstreamFormat,
		Message: "Search service returned invalid data format",
		Err:     err,
	}
}

// Provider reports a logical rejection by the search provider.
func Provider(code int, message string) *Error {
	return &Error{Kind: KindProvider, Message: message, Code: code}
}

// Generation reports any LLM call failure.
func Generation(err error) *Error {
	return &Error{
		Kind:    KindGeneration,
		Message: fmt.Sprintf("AI service error: %v", err),
		Err:     err,
	}
}

// Internal wraps an unanticipated failure.
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: fmt.Sprintf("Internal server error: %v", err),
		Err:     err,
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err. Untyped errors are internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Ensure converts err into an *Error, wrapping untyped errors as internal.
func Ensure(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Internal(err)
}

// HTTPStatus maps a kind to its protocol status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindConfiguration, KindProvider:
		return http.StatusBadRequest
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamUnavailable, KindUpstreamFormat, KindGeneration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
