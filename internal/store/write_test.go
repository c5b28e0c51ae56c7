package store

import (
	"context"
	"errors"
	"testing"

	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

func TestCreate_ThenRead(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	addr := recordAddr(t, "edge")
	if err := tx.Create(ctx, addr, followEdge(alice, bob), alice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	rec, ok, err := tx.Read(ctx, addr)
	if err != nil || !ok {
		t.Fatalf("Read() = %v, %v", ok, err)
	}
	edge, isEdge := rec.(*ir.FollowEdge)
	if !isEdge {
		t.Fatalf("Read() returned %T, want *ir.FollowEdge", rec)
	}
	if edge.Follower != alice || edge.Following != bob {
		t.Errorf("edge = %+v", edge)
	}
}

func TestCreate_OccupiedAddress(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	addr := recordAddr(t, "edge")
	if err := tx.Create(ctx, addr, followEdge(alice, bob), alice); err != nil {
		t.Fatalf("first Create() failed: %v", err)
	}
	err := tx.Create(ctx, addr, followEdge(alice, bob), alice)
	if !ir.IsCode(err, ir.CodeAddressOccupied) {
		t.Fatalf("second Create() = %v, want AddressOccupied", err)
	}
}

func TestCreate_ChargesDeposit(t *testing.T) {
	ctx := context.Background()
	rent := host.Rent{LamportsPerByte: 1, OverheadBytes: 0}
	s := createTestStore(t, rent)
	tx := begin(t, s)

	edge := followEdge(alice, bob)
	deposit := rent.Deposit(edge.Size())
	if err := tx.Airdrop(ctx, carol, deposit+5); err != nil {
		t.Fatalf("Airdrop() failed: %v", err)
	}

	addr := recordAddr(t, "edge")
	if err := tx.Create(ctx, addr, edge, carol); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if got, _ := tx.Balance(ctx, carol); got != 5 {
		t.Errorf("payer balance = %d, want 5", got)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	held, ok, err := s.Deposit(ctx, addr)
	if err != nil || !ok || held != deposit {
		t.Errorf("Deposit() = %d, %v, %v; want %d", held, ok, err, deposit)
	}
}

func TestCreate_InsufficientFundsWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.Rent{LamportsPerByte: 1})
	tx := begin(t, s)

	addr := recordAddr(t, "edge")
	err := tx.Create(ctx, addr, followEdge(alice, bob), alice)
	if !ir.IsCode(err, ir.CodeInsufficientFunds) {
		t.Fatalf("Create() = %v, want InsufficientFunds", err)
	}
	if _, ok, _ := tx.Read(ctx, addr); ok {
		t.Error("record written despite failed deposit")
	}
}

func TestUpdate_Authorization(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	addr := recordAddr(t, "alice")
	if err := tx.Create(ctx, addr, &ir.UsernameRecord{Authority: alice, Username: "alice"}, alice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	err := tx.Update(ctx, addr, bob, func(ir.Record) error { return nil })
	if !ir.IsCode(err, ir.CodeUnauthorized) {
		t.Errorf("Update() by non-owner = %v, want Unauthorized", err)
	}

	err = tx.Update(ctx, addr, alice, func(r ir.Record) error {
		r.(*ir.UsernameRecord).Username = "alice2"
		return nil
	})
	if err != nil {
		t.Fatalf("Update() by owner failed: %v", err)
	}
	rec, _, _ := tx.Read(ctx, addr)
	if got := rec.(*ir.UsernameRecord).Username; got != "alice2" {
		t.Errorf("username = %q, want alice2", got)
	}
}

func TestUpdate_Missing(t *testing.T) {
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	err := tx.Update(context.Background(), recordAddr(t, "ghost"), alice, func(ir.Record) error { return nil })
	if !ir.IsCode(err, ir.CodeAddressNotFound) {
		t.Errorf("Update() = %v, want AddressNotFound", err)
	}
}

func TestUpdate_OwnerImmutable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	addr := recordAddr(t, "alice")
	if err := tx.Create(ctx, addr, &ir.UsernameRecord{Authority: alice, Username: "alice"}, alice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	err := tx.Update(ctx, addr, alice, func(r ir.Record) error {
		r.(*ir.UsernameRecord).Authority = bob
		return nil
	})
	if err == nil {
		t.Error("Update() allowed changing the owner")
	}
}

func TestUpdate_MutatorErrorPropagates(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	addr := recordAddr(t, "alice")
	if err := tx.Create(ctx, addr, &ir.UsernameRecord{Authority: alice, Username: "alice"}, alice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	boom := errors.New("boom")
	if err := tx.Update(ctx, addr, alice, func(ir.Record) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Update() = %v, want boom", err)
	}
}

func TestClose_RefundsAndFreesAddress(t *testing.T) {
	ctx := context.Background()
	rent := host.Rent{LamportsPerByte: 2, OverheadBytes: 10}
	s := createTestStore(t, rent)
	tx := begin(t, s)

	edge := followEdge(alice, bob)
	deposit := rent.Deposit(edge.Size())
	if err := tx.Airdrop(ctx, alice, deposit); err != nil {
		t.Fatalf("Airdrop() failed: %v", err)
	}

	addr := recordAddr(t, "edge")
	if err := tx.Create(ctx, addr, edge, alice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := tx.Close(ctx, addr, carol); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	if got, _ := tx.Balance(ctx, carol); got != deposit {
		t.Errorf("beneficiary balance = %d, want %d", got, deposit)
	}
	if _, ok, _ := tx.Read(ctx, addr); ok {
		t.Error("record still readable after Close")
	}

	// Closed addresses are creatable again.
	if err := tx.Airdrop(ctx, alice, deposit); err != nil {
		t.Fatalf("Airdrop() failed: %v", err)
	}
	if err := tx.Create(ctx, addr, edge, alice); err != nil {
		t.Errorf("re-Create() after Close failed: %v", err)
	}
}

func TestClose_Missing(t *testing.T) {
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	err := tx.Close(context.Background(), recordAddr(t, "ghost"), alice)
	if !ir.IsCode(err, ir.CodeAddressNotFound) {
		t.Errorf("Close() = %v, want AddressNotFound", err)
	}
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	tx := begin(t, s)

	if err := tx.Airdrop(ctx, alice, 100); err != nil {
		t.Fatalf("Airdrop() failed: %v", err)
	}
	if err := tx.Transfer(ctx, alice, bob, 30); err != nil {
		t.Fatalf("Transfer() failed: %v", err)
	}
	a, _ := tx.Balance(ctx, alice)
	b, _ := tx.Balance(ctx, bob)
	if a != 70 || b != 30 {
		t.Errorf("balances = %d/%d, want 70/30", a, b)
	}

	err := tx.Transfer(ctx, bob, alice, 31)
	if !ir.IsCode(err, ir.CodeInsufficientFunds) {
		t.Errorf("overdraft Transfer() = %v, want InsufficientFunds", err)
	}
}

func TestRollback_DiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	addr := recordAddr(t, "edge")
	if err := tx.Airdrop(ctx, alice, 100); err != nil {
		t.Fatalf("Airdrop() failed: %v", err)
	}
	if err := tx.Create(ctx, addr, followEdge(alice, bob), alice); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}

	check := begin(t, s)
	if _, ok, _ := check.Read(ctx, addr); ok {
		t.Error("record survived rollback")
	}
	if got, _ := check.Balance(ctx, alice); got != 0 {
		t.Errorf("balance after rollback = %d, want 0", got)
	}
}

func TestRollback_AfterCommitIsNoop(t *testing.T) {
	s := createTestStore(t, host.FreeRent())
	tx, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback() after Commit() = %v, want nil", err)
	}
}
