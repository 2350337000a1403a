package embedding

import "errors"

// Provider failures are classified into sentinel errors so callers can key
// retry and degradation decisions off errors.Is checks. Providers must wrap
// every failure in exactly one of these.
var (
	// ErrRateLimited indicates the provider throttled the request.
	// Transient: the same request may succeed after backing off.
	ErrRateLimited = errors.New("embedding provider rate limited")

	// ErrInvalidInput indicates the provider rejected the request content.
	// Permanent: retrying the same input cannot succeed.
	ErrInvalidInput = errors.New("embedding input rejected")

	// ErrUnavailable indicates a transport failure or provider outage.
	// Transient: the same request may succeed once the provider recovers.
	ErrUnavailable = errors.New("embedding provider unavailable")

	// ErrProtocolMismatch indicates the provider answered with a response
	// that violates the batch contract (wrong vector count, wrong width,
	// malformed body). The response cannot be trusted, so nothing from the
	// batch may be cached or returned.
	ErrProtocolMismatch = errors.New("embedding provider protocol mismatch")
)

// IsRetryable reports whether err represents a transient provider failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}
