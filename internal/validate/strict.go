package validate

import (
	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

// Visibility values with a defined meaning. Anything else is opaque.
const (
	VisibilityPublic    uint8 = 0
	VisibilityFollowers uint8 = 1
)

// The checks below are not applied unless the engine runs in strict mode.
// Without it the inputs are accepted and only logged.

// DistinctParties rejects a follow of oneself.
func DistinctParties(follower, following address.Address) error {
	if follower == following {
		return ir.NewArgumentError("follower and following are the same identity %s", follower)
	}
	return nil
}

// PositiveAmount rejects a zero-value tip.
func PositiveAmount(amount uint64) error {
	if amount == 0 {
		return ir.NewArgumentError("tip amount must be greater than zero")
	}
	return nil
}

// KnownVisibility rejects visibility values outside the defined set.
func KnownVisibility(v uint8) error {
	if v != VisibilityPublic && v != VisibilityFollowers {
		return ir.NewArgumentError("unknown visibility %d", v)
	}
	return nil
}
