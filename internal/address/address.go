package address

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the byte length of an address or identity key.
const Size = 32

// Address is a 32-byte storage address or identity key.
// Identities (profile owners, followers, tip senders) share the type because
// the ledger never distinguishes a key from a derived location at rest.
type Address [Size]byte

// Zero is the all-zero address.
var Zero Address

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw key bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(raw) != Size {
		return a, fmt.Errorf("parse address %q: decoded %d bytes, want %d", s, len(raw), Size)
	}
	copy(a[:], raw)
	return a, nil
}

// MustParse is like Parse but panics on error.
// Use only for constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("address: got %d bytes, want %d", len(b), Size)
	}
	copy(a[:], b)
	return a, nil
}
