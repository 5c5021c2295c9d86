// Package errors defines the structured error types used across the
// service, most importantly the provider error classification that
// drives retry decisions for embedding backends.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure for retry purposes.
type Kind int

const (
	// KindTransient covers timeouts, connection resets and 5xx
	// responses. Retried with backoff.
	KindTransient Kind = iota
	// KindRateLimited is an explicit rate-limit signal (HTTP 429).
	// Retried with backoff.
	KindRateLimited
	// KindPermanent covers bad credentials and malformed requests.
	// Never retried.
	KindPermanent
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindPermanent:
		return "permanent"
	default:
		return "transient"
	}
}

// ProviderError is a failure reported by an external provider (embedding
// API, local model server). The Kind is assigned at the adapter boundary
// so retry logic never inspects message text.
type ProviderError struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "embed_batch"
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Message, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the retry loop may attempt the operation again.
func (e *ProviderError) Retryable() bool {
	return e.Kind != KindPermanent
}

// RateLimited creates a rate-limit provider error.
func RateLimited(op, message string, cause error) *ProviderError {
	return &ProviderError{Kind: KindRateLimited, Op: op, Message: message, Cause: cause}
}

// Transient creates a transient provider error.
func Transient(op, message string, cause error) *ProviderError {
	return &ProviderError{Kind: KindTransient, Op: op, Message: message, Cause: cause}
}

// Permanent creates a non-retryable provider error.
func Permanent(op, message string, cause error) *ProviderError {
	return &ProviderError{Kind: KindPermanent, Op: op, Message: message, Cause: cause}
}

// KindOf extracts the Kind from an error chain. Unclassified errors are
// treated as transient so unknown failures still get the retry budget.
func KindOf(err error) Kind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsPermanent reports whether err is classified as non-retryable.
func IsPermanent(err error) bool {
	return KindOf(err) == KindPermanent
}

// IsRateLimited reports whether err is a rate-limit signal.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
