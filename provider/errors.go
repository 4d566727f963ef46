package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the gateway integration can produce
type ErrorKind string

const (
	KindCertificateNotFound   ErrorKind = "CERTIFICATE_NOT_FOUND"
	KindInvalidCertificate    ErrorKind = "INVALID_CERTIFICATE"
	KindTokenGenerationFailed ErrorKind = "TOKEN_GENERATION_FAILED"
	KindBadCredentials        ErrorKind = "BAD_CREDENTIALS"
	KindGatewayError          ErrorKind = "GATEWAY_ERROR"
	KindGatewayUnreachable    ErrorKind = "GATEWAY_UNREACHABLE"
	KindConfigNotFound        ErrorKind = "CONFIG_NOT_FOUND"
	KindMissingRequiredField  ErrorKind = "MISSING_REQUIRED_FIELD"
	KindConfigExists          ErrorKind = "CONFIG_EXISTS"
	KindInvalidConfig         ErrorKind = "INVALID_CONFIG"
)

// Sentinels for errors.Is; matching is by kind only
var (
	ErrCertificateNotFound   = &Error{Kind: KindCertificateNotFound}
	ErrInvalidCertificate    = &Error{Kind: KindInvalidCertificate}
	ErrTokenGenerationFailed = &Error{Kind: KindTokenGenerationFailed}
	ErrBadCredentials        = &Error{Kind: KindBadCredentials}
	ErrGatewayError          = &Error{Kind: KindGatewayError}
	ErrGatewayUnreachable    = &Error{Kind: KindGatewayUnreachable}
	ErrConfigNotFound        = &Error{Kind: KindConfigNotFound}
	ErrMissingRequiredField  = &Error{Kind: KindMissingRequiredField}
	ErrConfigExists          = &Error{Kind: KindConfigExists}
	ErrInvalidConfig         = &Error{Kind: KindInvalidConfig}
)

// Error is the structured error returned by all gateway operations
type Error struct {
	Kind    ErrorKind
	Message string
	// StatusCode and Body are set for GatewayError and BadCredentials raised from a response
	StatusCode int
	Body       string
	Err        error
}

// NewError creates a new error of the given kind
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf creates a new error of the given kind with a formatted message
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// GatewayErr creates a GatewayError carrying the gateway's response
func GatewayErr(statusCode int, body string) *Error {
	return &Error{
		Kind:       KindGatewayError,
		Message:    fmt.Sprintf("gateway responded with HTTP %d", statusCode),
		StatusCode: statusCode,
		Body:       body,
	}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether a caller may retry the operation unchanged
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindGatewayUnreachable:
		return true
	case KindTokenGenerationFailed:
		return e.Err != nil
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not a gateway error
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConfigurationError reports whether err points at a deployment problem rather than a transient fault
func IsConfigurationError(err error) bool {
	switch KindOf(err) {
	case KindCertificateNotFound, KindInvalidCertificate, KindBadCredentials,
		KindConfigNotFound, KindMissingRequiredField, KindInvalidConfig:
		return true
	}
	return false
}
