package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds is the maximum number of seeds including the bump.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length of any single seed.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrMaxSeedLength is returned when a seed is too long or there are too many.
	ErrMaxSeedLength = errors.New("address: seed length exceeded")

	// ErrNoViableBump is returned when all 256 bumps land on the curve.
	// This is treated as fatal and never retried.
	ErrNoViableBump = errors.New("address: no valid address in bump space")

	// ErrOnCurve is returned when an explicit bump yields a point on the curve.
	ErrOnCurve = errors.New("address: candidate lies on the ed25519 curve")

	// ErrProofMismatch is returned by Verify when re-derivation disagrees.
	ErrProofMismatch = errors.New("address: derivation proof does not match")
)

// Namespace tags a record type. It is always the first seed.
type Namespace string

const (
	NamespaceProfile  Namespace = "profile"
	NamespaceUsername Namespace = "username"
	NamespaceFollow   Namespace = "follow"
	NamespacePost     Namespace = "post"
	NamespaceTip      Namespace = "tip"
	NamespaceLike     Namespace = "like"
	NamespaceComment  Namespace = "comment"
	NamespaceTopic    Namespace = "topic"
)

// Namespaces lists every record namespace in declaration order.
var Namespaces = []Namespace{
	NamespaceProfile,
	NamespaceUsername,
	NamespaceFollow,
	NamespacePost,
	NamespaceTip,
	NamespaceLike,
	NamespaceComment,
	NamespaceTopic,
}

// Derived is a derived address together with its proof.
type Derived struct {
	Address   Address
	Bump      uint8
	Namespace Namespace
}

func (d Derived) String() string {
	return fmt.Sprintf("%s/%s#%d", d.Namespace, d.Address, d.Bump)
}

// U64 encodes v as the 8-byte little-endian seed used for numeric keys.
func U64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// Derive finds the highest bump whose candidate is off the curve.
func Derive(program Address, ns Namespace, parts ...[]byte) (Derived, error) {
	seeds, err := seedsFor(ns, parts)
	if err != nil {
		return Derived{}, err
	}
	for bump := 255; bump >= 0; bump-- {
		candidate := hashSeeds(program, seeds, uint8(bump))
		if !onCurve(candidate) {
			return Derived{Address: candidate, Bump: uint8(bump), Namespace: ns}, nil
		}
	}
	return Derived{}, ErrNoViableBump
}

// CreateWithBump computes the address for an explicit bump.
// Returns ErrOnCurve if that bump does not produce a valid address.
func CreateWithBump(program Address, ns Namespace, bump uint8, parts ...[]byte) (Address, error) {
	seeds, err := seedsFor(ns, parts)
	if err != nil {
		return Address{}, err
	}
	candidate := hashSeeds(program, seeds, bump)
	if onCurve(candidate) {
		return Address{}, ErrOnCurve
	}
	return candidate, nil
}

// Verify checks that addr was derived from (ns, parts) with the given bump.
// A bump that is valid but not canonical (a higher bump also works) is rejected.
func Verify(program Address, ns Namespace, parts [][]byte, addr Address, bump uint8) error {
	want, err := Derive(program, ns, parts...)
	if err != nil {
		return err
	}
	if want.Address != addr || want.Bump != bump {
		return fmt.Errorf("%w: %s", ErrProofMismatch, ns)
	}
	return nil
}

func seedsFor(ns Namespace, parts [][]byte) ([][]byte, error) {
	if len(parts)+2 > MaxSeeds {
		return nil, fmt.Errorf("%w: %d seeds", ErrMaxSeedLength, len(parts)+2)
	}
	seeds := make([][]byte, 0, len(parts)+1)
	seeds = append(seeds, []byte(ns))
	seeds = append(seeds, parts...)
	for i, s := range seeds {
		if len(s) > MaxSeedLength {
			return nil, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
	}
	return seeds, nil
}

func hashSeeds(program Address, seeds [][]byte, bump uint8) Address {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(program[:])
	h.Write([]byte(pdaMarker))

	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// onCurve reports whether b decodes as an ed25519 point.
// Non-canonical encodings are accepted, matching common decompression rules.
func onCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
