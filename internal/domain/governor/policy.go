package governor

import (
	"fmt"

	platformerrors "voicetrim-server-go/internal/platform/errors"
)

// Policy bounds how long a spoken response may run and how many shorten
// attempts the governor may spend getting there. Built once at startup,
// immutable afterwards.
type Policy struct {
	MaxDuration float64 // seconds
	MaxAttempts int
}

// Validate rejects malformed policies. A bad policy is fatal at startup and
// never recoverable per request.
func (p Policy) Validate() error {
	if p.MaxDuration <= 0 {
		return platformerrors.Wrap(platformerrors.KindGovernor, "policy.validate",
			fmt.Sprintf("max duration must be positive, got %v", p.MaxDuration), ErrPolicyInvalid)
	}
	if p.MaxAttempts < 1 {
		return platformerrors.Wrap(platformerrors.KindGovernor, "policy.validate",
			fmt.Sprintf("max attempts must be at least 1, got %d", p.MaxAttempts), ErrPolicyInvalid)
	}
	return nil
}
