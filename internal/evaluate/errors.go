// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "fmt"

// ErrorKind classifies an LLM API failure for retry purposes. Backoff
// eligibility is decided on the kind, never by matching error text.
type ErrorKind int

const (
	// RateLimited means the provider rejected the call for quota reasons;
	// the call should be retried after backoff.
	RateLimited ErrorKind = iota

	// Transient covers server-side and transport failures worth retrying.
	Transient

	// Fatal covers failures that will not succeed on retry
	// (bad request, invalid key, unparseable response).
	Fatal
)

func (k ErrorKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	default:
		return "fatal"
	}
}

// APIError is a classified LLM API failure.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gemini api: %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api: %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.Kind == RateLimited || e.Kind == Transient
}
