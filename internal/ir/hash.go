package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "sx/event/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an event.
// The transition token is excluded: the ID names what happened, and the
// same payload at the same position always hashes the same.
func EventID(payload Payload, seq int64) (string, error) {
	fields, err := ToCanonicalMap(payload)
	if err != nil {
		return "", fmt.Errorf("EventID: %w", err)
	}
	canonical, err := MarshalCanonical(map[string]any{
		"kind":    string(payload.Kind()),
		"payload": fields,
		"seq":     seq,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(payload Payload, seq int64) string {
	id, err := EventID(payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
