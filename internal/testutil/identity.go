package testutil

import "github.com/xuxxeth/sx/internal/address"

// Identity returns the 32-byte identity made of b repeated. These are stable,
// readable fixtures: Identity(1) is 4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi.
func Identity(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

// Well-known identities.
var (
	Alice = Identity(1)
	Bob   = Identity(2)
	Carol = Identity(3)
	Dave  = Identity(4)
	Erin  = Identity(5)
)
