package kvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/ir"
)

func eventKey(seq int64) []byte {
	key := make([]byte, 9)
	key[0] = prefixEvent
	binary.BigEndian.PutUint64(key[1:], uint64(seq))
	return key
}

func eventRange(after int64) *util.Range {
	return &util.Range{
		Start: eventKey(after + 1),
		Limit: []byte{prefixEvent + 1},
	}
}

// AppendEvent writes one event to the log. Re-appending the same event is a
// no-op; a different event at an existing seq is an error.
func (s *Store) AppendEvent(ctx context.Context, ev ir.Event) error {
	if ev.Seq <= 0 {
		return fmt.Errorf("append event: seq %d must be positive", ev.Seq)
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	key := eventKey(ev.Seq)
	existing, err := s.db.Get(key, nil)
	switch {
	case err == leveldb.ErrNotFound:
	case err != nil:
		return fmt.Errorf("append event: %w", err)
	case bytes.Equal(existing, value):
		return nil
	default:
		return fmt.Errorf("append event: seq %d already holds a different event", ev.Seq)
	}

	if err := s.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ReadEvents returns up to limit events with seq > after, in seq order.
// A limit <= 0 returns every remaining event.
func (s *Store) ReadEvents(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	if after < 0 {
		after = 0
	}
	iter := s.db.NewIterator(eventRange(after), nil)
	defer iter.Release()

	events := []ir.Event{}
	for iter.Next() {
		if limit > 0 && len(events) == limit {
			break
		}
		var ev ir.Event
		if err := json.Unmarshal(iter.Value(), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest seq in the log, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	iter := s.db.NewIterator(eventRange(0), nil)
	defer iter.Release()

	if !iter.Last() {
		return 0, iter.Error()
	}
	return int64(binary.BigEndian.Uint64(iter.Key()[1:])), nil
}

// Deposit returns the deposit held by the record at addr.
func (s *Store) Deposit(ctx context.Context, addr address.Address) (uint64, bool, error) {
	value, err := s.db.Get(recordKey(addr), nil)
	if err == leveldb.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("deposit %s: %w", addr, err)
	}
	var e entry
	if err := json.Unmarshal(value, &e); err != nil {
		return 0, false, fmt.Errorf("deposit %s: %w", addr, err)
	}
	return e.Deposit, true, nil
}
