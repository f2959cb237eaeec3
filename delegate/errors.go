package delegate

import (
	"fmt"
	"time"
)

// The identity service answers with free-form error payloads. Everything it
// can throw at us is folded into one of the three variants below before it
// crosses into the rest of the codebase.
type (
	NetworkFailure struct {
		Err error
	}

	Rejected struct {
		Status int
		Reason string
	}

	RateLimited struct {
		RetryAfter time.Duration
	}
)

func (n NetworkFailure) Error() string {
	return fmt.Sprintf("identity service unreachable, cause %v", n.Err)
}

func (n NetworkFailure) Unwrap() error { return n.Err }

func (r Rejected) Error() string {
	return fmt.Sprintf("identity service rejected the request (%v): %v", r.Status, r.Reason)
}

func (r RateLimited) Error() string {
	return fmt.Sprintf("identity service rate limit hit, retry after %v", r.RetryAfter)
}
