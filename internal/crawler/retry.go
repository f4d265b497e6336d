package crawler

import (
	"context"
	"errors"
)

// ShouldRetryError rules out retries only for cancellation; a transport
// hiccup against the mobile site is worth another attempt.
func ShouldRetryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// ShouldRetryStatus retries only statuses whose kind is transient.
// Forbidden means the cookie is burned; retrying it just feeds the risk
// score, so it fails straight into the streak accounting.
func ShouldRetryStatus(code int) bool {
	switch statusKind(code) {
	case ErrorKindRateLimited, ErrorKindTimeout, ErrorKindUpstream:
		return true
	default:
		return false
	}
}
