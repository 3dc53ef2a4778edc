package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/MimeLyc/novel-chapter-translator/pkg/log"
)

// ErrorKind is the fixed failure taxonomy every raw error is mapped into.
type ErrorKind string

const (
	KindRateLimit      ErrorKind = "RATE_LIMIT"
	KindContentBlocked ErrorKind = "CONTENT_BLOCKED"
	KindAuthError      ErrorKind = "AUTH_ERROR"
	KindModelError     ErrorKind = "MODEL_ERROR"
	KindServerError    ErrorKind = "SERVER_ERROR"
	KindTimeout        ErrorKind = "TIMEOUT"
	KindNetworkError   ErrorKind = "NETWORK_ERROR"
	KindEmptyResponse  ErrorKind = "EMPTY_RESPONSE"
	KindCircuitOpen    ErrorKind = "CIRCUIT_OPEN"
	KindUnknown        ErrorKind = "UNKNOWN"
)

// Retryable reports whether another attempt can plausibly succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindContentBlocked, KindAuthError, KindModelError:
		return false
	default:
		return true
	}
}

// Fatal marks kinds that should open the circuit breaker immediately instead
// of counting toward the failure threshold.
func (k ErrorKind) Fatal() bool {
	return k == KindAuthError || k == KindModelError
}

// APIError is a classified failure of one external call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Retryable is a shortcut for e.Kind.Retryable().
func (e *APIError) Retryable() bool {
	return e.Kind.Retryable()
}

// Overloaded reports a backend that answered but is shedding load; the call
// layer abandons the current model and falls through to the next one.
func (e *APIError) Overloaded() bool {
	if e.Kind != KindServerError {
		return false
	}
	return e.StatusCode == 503 ||
		e.StatusCode == 529 ||
		strings.Contains(strings.ToLower(e.Message), "overloaded")
}

func NewError(kind ErrorKind, message string) *APIError {
	return &APIError{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, cause error) *APIError {
	return &APIError{Kind: kind, Message: message, Cause: cause}
}

// StatusError carries the HTTP layer's raw view of a failed call. The LLM
// client produces it; Classify turns it into an APIError.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
}

// AlertFunc receives configuration-class failures (auth, unknown model) that
// retrying cannot fix and an operator has to look at.
type AlertFunc func(kind ErrorKind, detail string)

var alertFunc AlertFunc = func(kind ErrorKind, detail string) {
	log.Error("operator alert [%s]: %s", kind, detail)
}

// SetAlertFunc replaces the out-of-band operator alert hook.
func SetAlertFunc(fn AlertFunc) {
	if fn != nil {
		alertFunc = fn
	}
}

// Classify maps any raw failure into the fixed taxonomy. Already-classified
// errors pass through unchanged.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	ret := classify(err)
	if ret.Kind.Fatal() {
		alertFunc(ret.Kind, ret.Error())
	}
	return ret
}

func classify(err error) *APIError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr)
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return WrapError(KindTimeout, "request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return WrapError(KindTimeout, "request timed out", err)
		}
		return WrapError(KindNetworkError, "network failure", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") || strings.Contains(msg, "quota"):
		return WrapError(KindRateLimit, "rate limited", err)
	case strings.Contains(msg, "content") && (strings.Contains(msg, "blocked") || strings.Contains(msg, "filter") || strings.Contains(msg, "safety")):
		return WrapError(KindContentBlocked, "content blocked", err)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key") || strings.Contains(msg, "forbidden"):
		return WrapError(KindAuthError, "authentication failure", err)
	case strings.Contains(msg, "model not found") || strings.Contains(msg, "unknown model"):
		return WrapError(KindModelError, "model misconfiguration", err)
	case strings.Contains(msg, "overloaded") || strings.Contains(msg, "unavailable"):
		return &APIError{Kind: KindServerError, StatusCode: 503, Message: "backend overloaded", Cause: err}
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host") || strings.Contains(msg, "eof"):
		return WrapError(KindNetworkError, "network failure", err)
	default:
		return WrapError(KindUnknown, "unclassified failure", err)
	}
}

func classifyStatus(err *StatusError) *APIError {
	body := strings.ToLower(err.Body)
	switch {
	case err.StatusCode == 429:
		return &APIError{Kind: KindRateLimit, StatusCode: err.StatusCode, Message: "rate limited", Cause: err}
	case err.StatusCode == 401 || err.StatusCode == 403:
		return &APIError{Kind: KindAuthError, StatusCode: err.StatusCode, Message: "authentication failure", Cause: err}
	case err.StatusCode == 404 || strings.Contains(body, "model not found"):
		return &APIError{Kind: KindModelError, StatusCode: err.StatusCode, Message: "model misconfiguration", Cause: err}
	case err.StatusCode == 400 && (strings.Contains(body, "blocked") || strings.Contains(body, "content_filter") || strings.Contains(body, "safety")):
		return &APIError{Kind: KindContentBlocked, StatusCode: err.StatusCode, Message: "content blocked", Cause: err}
	case err.StatusCode >= 500:
		return &APIError{Kind: KindServerError, StatusCode: err.StatusCode, Message: "backend error", Cause: err}
	default:
		return &APIError{Kind: KindUnknown, StatusCode: err.StatusCode, Message: "unclassified status", Cause: err}
	}
}
