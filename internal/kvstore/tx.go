package kvstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

// entry is the stored form of a record.
type entry struct {
	Namespace address.Namespace `json:"namespace"`
	Payer     address.Address   `json:"payer"`
	Deposit   uint64            `json:"deposit"`
	Data      json.RawMessage   `json:"data"`
}

// write is one pending key change. A nil value deletes the key.
type write struct {
	key   []byte
	value []byte
}

// Tx is a leveldb transaction. See the package doc for the two modes.
type Tx struct {
	db      *leveldb.DB
	rent    host.Rent
	direct  bool
	batch   *leveldb.Batch
	overlay map[string][]byte
	done    bool
}

var _ host.Tx = (*Tx)(nil)

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (host.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		db:      s.db,
		rent:    s.rent,
		direct:  s.mode == Direct,
		batch:   new(leveldb.Batch),
		overlay: make(map[string][]byte),
	}, nil
}

func recordKey(addr address.Address) []byte {
	return append([]byte{prefixRecord}, addr[:]...)
}

func balanceKey(id address.Address) []byte {
	return append([]byte{prefixBalance}, id[:]...)
}

// get reads through the overlay. A missing key returns nil, nil.
func (t *Tx) get(key []byte) ([]byte, error) {
	if value, ok := t.overlay[string(key)]; ok {
		return value, nil
	}
	value, err := t.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return value, err
}

// apply lands the writes of one operation. They are computed only after the
// operation's checks pass, so an operation is never half written.
func (t *Tx) apply(writes ...write) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if t.direct {
		b := new(leveldb.Batch)
		for _, w := range writes {
			if w.value == nil {
				b.Delete(w.key)
			} else {
				b.Put(w.key, w.value)
			}
		}
		return t.db.Write(b, nil)
	}
	for _, w := range writes {
		if w.value == nil {
			t.batch.Delete(w.key)
		} else {
			t.batch.Put(w.key, w.value)
		}
		t.overlay[string(w.key)] = w.value
	}
	return nil
}

func (t *Tx) readEntry(addr address.Address) (*entry, error) {
	value, err := t.get(recordKey(addr))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	if value == nil {
		return nil, nil
	}
	var e entry
	if err := json.Unmarshal(value, &e); err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}
	return &e, nil
}

func encodeEntry(e *entry) ([]byte, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s entry: %w", e.Namespace, err)
	}
	return value, nil
}

// Read returns the live record at addr.
func (t *Tx) Read(ctx context.Context, addr address.Address) (ir.Record, bool, error) {
	e, err := t.readEntry(addr)
	if err != nil || e == nil {
		return nil, false, err
	}
	rec, err := ir.DecodeRecord(e.Namespace, e.Data)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", addr, err)
	}
	return rec, true, nil
}

// Create writes rec at addr and moves its deposit from payer into the entry.
func (t *Tx) Create(ctx context.Context, addr address.Address, rec ir.Record, payer address.Address) error {
	existing, err := t.readEntry(addr)
	if err != nil {
		return fmt.Errorf("create %s: %w", rec.Namespace(), err)
	}
	if existing != nil {
		return ir.NewOccupiedError(addr)
	}

	data, err := ir.EncodeRecord(rec)
	if err != nil {
		return err
	}
	deposit := t.rent.Deposit(rec.Size())
	value, err := encodeEntry(&entry{Namespace: rec.Namespace(), Payer: payer, Deposit: deposit, Data: data})
	if err != nil {
		return err
	}

	writes := []write{{key: recordKey(addr), value: value}}
	if deposit > 0 {
		debit, err := t.debit(payer, deposit)
		if err != nil {
			return err
		}
		writes = append(writes, debit)
	}
	return t.apply(writes...)
}

// Update loads the record, checks the authorizer against its owner, applies
// mutate and writes it back. The owning identity cannot be changed.
func (t *Tx) Update(ctx context.Context, addr, authorizer address.Address, mutate host.Mutator) error {
	e, err := t.readEntry(addr)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if e == nil {
		return ir.NewNotFoundError(addr)
	}
	rec, err := ir.DecodeRecord(e.Namespace, e.Data)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	owner := rec.Owner()
	if owner != authorizer {
		return ir.NewUnauthorizedError(addr, authorizer)
	}
	if err := mutate(rec); err != nil {
		return err
	}
	if rec.Owner() != owner {
		return fmt.Errorf("update %s: owner of %s is immutable", rec.Namespace(), addr)
	}

	if e.Data, err = ir.EncodeRecord(rec); err != nil {
		return err
	}
	value, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return t.apply(write{key: recordKey(addr), value: value})
}

// Close deletes the record and credits its deposit to beneficiary.
func (t *Tx) Close(ctx context.Context, addr, beneficiary address.Address) error {
	e, err := t.readEntry(addr)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if e == nil {
		return ir.NewNotFoundError(addr)
	}

	writes := []write{{key: recordKey(addr)}}
	if e.Deposit > 0 {
		credit, err := t.credit(beneficiary, e.Deposit)
		if err != nil {
			return fmt.Errorf("close: %w", err)
		}
		writes = append(writes, credit)
	}
	return t.apply(writes...)
}

// Balance returns the lamports held by id. Unknown identities hold zero.
func (t *Tx) Balance(ctx context.Context, id address.Address) (uint64, error) {
	return t.balance(id)
}

func (t *Tx) balance(id address.Address) (uint64, error) {
	value, err := t.get(balanceKey(id))
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", id, err)
	}
	if value == nil {
		return 0, nil
	}
	if len(value) != 8 {
		return 0, fmt.Errorf("balance %s: corrupt value of %d bytes", id, len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}

// Transfer moves lamports between identities in one write.
func (t *Tx) Transfer(ctx context.Context, from, to address.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	debit, err := t.debit(from, amount)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	credit, err := t.credit(to, amount)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return t.apply(debit, credit)
}

// Airdrop credits lamports out of thin air.
func (t *Tx) Airdrop(ctx context.Context, to address.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	credit, err := t.credit(to, amount)
	if err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	return t.apply(credit)
}

// Commit writes the pending batch. In Direct mode there is nothing pending.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true
	if t.direct || t.batch.Len() == 0 {
		return nil
	}
	if err := t.db.Write(t.batch, nil); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback drops the pending batch. Writes already made in Direct mode stay.
func (t *Tx) Rollback() error {
	t.done = true
	t.batch.Reset()
	t.overlay = make(map[string][]byte)
	return nil
}

func (t *Tx) debit(id address.Address, amount uint64) (write, error) {
	have, err := t.balance(id)
	if err != nil {
		return write{}, err
	}
	if have < amount {
		return write{}, ir.NewInsufficientFundsError(id, have, amount)
	}
	return balanceWrite(id, have-amount), nil
}

func (t *Tx) credit(id address.Address, amount uint64) (write, error) {
	have, err := t.balance(id)
	if err != nil {
		return write{}, err
	}
	if have > math.MaxUint64-amount {
		return write{}, fmt.Errorf("balance of %s overflows", id)
	}
	return balanceWrite(id, have+amount), nil
}

func balanceWrite(id address.Address, lamports uint64) write {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, lamports)
	return write{key: balanceKey(id), value: value}
}
