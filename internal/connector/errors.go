package connector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// ErrorKind is the closed taxonomy surfaced to callers of domain operations.
type ErrorKind string

const (
	KindUnreachable       ErrorKind = "unreachable"
	KindTimeout           ErrorKind = "timeout"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindNotFound          ErrorKind = "not_found"
	KindUnsupportedKind   ErrorKind = "unsupported_kind"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindUnknown           ErrorKind = "unknown"
)

// errAuthRejected marks a credential rejection that arrived without an HTTP
// auth status (qBittorrent reports it in the response body).
var errAuthRejected = errors.New("authentication rejected")

// Error wraps a backend failure with its taxonomy kind. The original error is
// preserved for diagnostics and errors.Is/As chains.
type Error struct {
	Kind    ErrorKind
	Service string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s (%s)", e.Service, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the taxonomy kind from an error chain, defaulting to
// KindUnknown for errors that did not pass through a connector.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// wrapErr classifies a transport-level failure. Timeouts are distinguished
// from connection failures so callers can react differently.
func wrapErr(service, op string, err error) *Error {
	kind := KindUnreachable

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindUnknown
	}

	// url.Error wraps the interesting cause; keep the classification above
	// but unwrap for a cleaner message.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = fmt.Errorf("%s %s: %w", urlErr.Op, urlErr.URL, urlErr.Err)
	}

	return &Error{Kind: kind, Service: service, Op: op, Err: err}
}

// wrapStatus classifies a non-2xx HTTP response.
func wrapStatus(service, op string, statusCode int, body string) *Error {
	kind := KindUnknown
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		kind = KindUnauthorized
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode >= 500:
		kind = KindUnreachable
	}

	msg := fmt.Sprintf("returned status %d", statusCode)
	if body != "" {
		msg = fmt.Sprintf("returned status %d: %s", statusCode, body)
	}
	return &Error{Kind: kind, Service: service, Op: op, Err: errors.New(msg)}
}

// wrapDecode classifies a payload that could not be mapped to the canonical
// model.
func wrapDecode(service, op string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Service: service, Op: op, Err: fmt.Errorf("decode response: %w", err)}
}

// failureMessage renders an error as the human-readable message carried in a
// ConnectionResult. Probes never surface raw errors to callers.
func failureMessage(err error) string {
	switch KindOf(err) {
	case KindTimeout:
		return "Connection timed out"
	case KindUnauthorized:
		return "Authentication rejected, check the configured credentials"
	case KindMalformedResponse:
		return "Service returned an unexpected response"
	case KindUnreachable:
		return fmt.Sprintf("Service unreachable: %v", rootCause(err))
	default:
		return fmt.Sprintf("Connection failed: %v", rootCause(err))
	}
}

func rootCause(err error) error {
	var ce *Error
	if errors.As(err, &ce) && ce.Err != nil {
		return ce.Err
	}
	return err
}
