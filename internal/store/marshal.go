package store

import (
	"fmt"
	"math"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

// marshalRecord converts a record to JSON TEXT for storage.
func marshalRecord(rec ir.Record) (string, error) {
	data, err := ir.EncodeRecord(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord parses a stored record using its namespace column.
func unmarshalRecord(ns, data string) (ir.Record, error) {
	rec, err := ir.DecodeRecord(address.Namespace(ns), []byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// marshalPayload converts an event payload to canonical JSON TEXT.
func marshalPayload(p ir.Payload) (string, error) {
	data, err := ir.EncodePayload(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT to a typed payload.
func unmarshalPayload(kind, data string) (ir.Payload, error) {
	p, err := ir.DecodePayload(ir.EventKind(kind), []byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

// SQLite integers are signed. Lamport amounts above MaxInt64 cannot be stored.
func toLamports(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("lamport amount %d exceeds storable range", v)
	}
	return int64(v), nil
}
