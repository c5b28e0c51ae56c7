package kvstore

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/xuxxeth/sx/internal/host"
)

// Mode selects how a Tx reaches the database.
type Mode int

const (
	// Batch buffers a Tx and writes it atomically on Commit.
	Batch Mode = iota
	// Direct writes every operation immediately.
	Direct
)

func (m Mode) String() string {
	switch m {
	case Batch:
		return "batch"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const (
	prefixVersion = 'V'
	prefixRecord  = 'R'
	prefixBalance = 'B'
	prefixEvent   = 'E'
)

const currentVersion = 1

var versionKey = []byte{prefixVersion}

// Store is a host backed by goleveldb.
type Store struct {
	db   *leveldb.DB
	rent host.Rent
	mode Mode
}

var _ host.Host = (*Store)(nil)

// Open opens or creates the database directory at path.
func Open(path string, rent host.Rent, mode Mode) (*Store, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: false,
	}
	db, err := leveldb.OpenFile(path, opt)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return setup(db, rent, mode)
}

// OpenMem opens a database held entirely in memory.
func OpenMem(rent host.Rent, mode Mode) (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory leveldb: %w", err)
	}
	return setup(db, rent, mode)
}

func setup(db *leveldb.DB, rent host.Rent, mode Mode) (*Store, error) {
	version, err := getVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	switch {
	case version == 0:
		if err := putVersion(db, currentVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("write version: %w", err)
		}
	case version > currentVersion:
		db.Close()
		return nil, fmt.Errorf("database version %d is newer than supported %d", version, currentVersion)
	}
	return &Store{db: db, rent: rent, mode: mode}, nil
}

func getVersion(db *leveldb.DB) (int, error) {
	value, err := db.Get(versionKey, nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read version: %w", err)
	}
	if len(value) != 4 {
		return 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(value))
	}
	return int(binary.BigEndian.Uint32(value)), nil
}

func putVersion(db *leveldb.DB, version int) error {
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, uint32(version))
	return db.Put(versionKey, value, nil)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Mode returns the write mode the store was opened with.
func (s *Store) Mode() Mode {
	return s.mode
}

// Rent returns the deposit schedule applied by Create.
func (s *Store) Rent() host.Rent {
	return s.rent
}

// Atomic reports false in Direct mode.
func (s *Store) Atomic() bool {
	return s.mode == Batch
}
