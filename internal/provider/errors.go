package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies provider call failures.
type ErrorKind string

const (
	// KindConfigMissing means a required credential or setting is absent.
	// Nothing was sent to the network; the failure is never fallback-eligible.
	KindConfigMissing ErrorKind = "CONFIG_MISSING"
	// KindHTTP means a transport-level failure (non-2xx or timeout).
	KindHTTP ErrorKind = "HTTP"
	// KindRejected means the provider accepted the request but rejected the
	// message with a stable code.
	KindRejected ErrorKind = "REJECTED"
)

// Rejection codes that mark the destination itself as permanently invalid.
// Falling back to SMS cannot help for these.
var permanentDestinationCodes = map[string]struct{}{
	"INVALID_PHONE_NUMBER": {},
	"BLOCKED_NUMBER":       {},
	"UNSUBSCRIBED_NUMBER":  {},
}

// ProviderError is the typed failure of a single send attempt. Downstream
// logic inspects Kind to decide fallback eligibility.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("provider error [%s]", e.Code))
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ConfigMissing builds the pre-network misconfiguration error.
func ConfigMissing(message string) *ProviderError {
	return &ProviderError{
		Kind:    KindConfigMissing,
		Code:    "CONFIG_MISSING",
		Message: message,
	}
}

// HTTPError builds the transport-level error for a non-2xx status.
func HTTPError(statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		Kind:       KindHTTP,
		StatusCode: statusCode,
		Code:       fmt.Sprintf("HTTP_%d", statusCode),
		Message:    message,
		Cause:      cause,
	}
}

// Rejected builds the error for a message the provider refused.
func Rejected(code string, message string) *ProviderError {
	return &ProviderError{
		Kind:    KindRejected,
		Code:    strings.ToUpper(strings.TrimSpace(code)),
		Message: message,
	}
}

// FallbackEligible reports whether a failed primary attempt may be retried
// on the SMS fallback channel.
func FallbackEligible(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Kind {
		case KindConfigMissing:
			return false
		case KindHTTP:
			return true
		case KindRejected:
			_, permanent := permanentDestinationCodes[providerErr.Code]
			return !permanent
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// ErrorCode extracts the stable code persisted on notification rows.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	return "UNKNOWN"
}
