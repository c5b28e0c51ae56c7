package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

var (
	alice = address.MustParse("4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi")
	bob   = address.MustParse("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR")
	carol = address.MustParse("CktRuQ2mttgRGkXJtyksdKHjUdc2C4TgDzyB98oEzy8")
)

// createTestStore creates a new file-backed store with the given rent.
func createTestStore(t *testing.T, rent host.Rent) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, rent)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// begin starts a Tx that is rolled back at cleanup unless committed.
func begin(t *testing.T, s *Store) host.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	t.Cleanup(func() { tx.Rollback() })
	return tx
}

func followEdge(follower, following address.Address) *ir.FollowEdge {
	return &ir.FollowEdge{Follower: follower, Following: following, CreatedAt: 1700000000}
}

// recordAddr derives a stable address for test records.
func recordAddr(t *testing.T, seed string) address.Address {
	t.Helper()
	d, err := address.Derive(address.DefaultProgram, address.NamespaceUsername, []byte(seed))
	if err != nil {
		t.Fatalf("Derive() failed: %v", err)
	}
	return d.Address
}
