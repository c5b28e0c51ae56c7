package store

import (
	"context"
	"testing"

	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

func testEvent(t *testing.T, seq int64, transition string) ir.Event {
	t.Helper()
	ev, err := ir.NewEvent(seq, transition, ir.Followed{Follower: alice, Following: bob})
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}
	return ev
}

func TestReadEvents_Empty(t *testing.T) {
	s := createTestStore(t, host.FreeRent())

	events, err := s.ReadEvents(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if events == nil || len(events) != 0 {
		t.Errorf("ReadEvents() = %v, want empty non-nil slice", events)
	}

	last, err := s.LastSeq(context.Background())
	if err != nil || last != 0 {
		t.Errorf("LastSeq() = %d, %v; want 0", last, err)
	}
}

func TestAppendEvent_ReadBackInOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())

	// Append out of order; reads are ordered by seq.
	for _, seq := range []int64{3, 1, 2} {
		if err := s.AppendEvent(ctx, testEvent(t, seq, "tr-1")); err != nil {
			t.Fatalf("AppendEvent(%d) failed: %v", seq, err)
		}
	}

	events, err := s.ReadEvents(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
		if ev.Kind != ir.KindFollowed {
			t.Errorf("events[%d].Kind = %s", i, ev.Kind)
		}
		if ev.ID != ir.MustEventID(ev.Payload, ev.Seq) {
			t.Errorf("events[%d].ID does not match its content", i)
		}
	}

	last, err := s.LastSeq(ctx)
	if err != nil || last != 3 {
		t.Errorf("LastSeq() = %d, %v; want 3", last, err)
	}
}

func TestReadEvents_AfterAndLimit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	for seq := int64(1); seq <= 5; seq++ {
		if err := s.AppendEvent(ctx, testEvent(t, seq, "tr")); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}

	events, err := s.ReadEvents(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 2 || events[0].Seq != 3 || events[1].Seq != 4 {
		t.Errorf("ReadEvents(2, 2) returned seqs %v", seqs(events))
	}
}

func TestAppendEvent_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())

	ev := testEvent(t, 1, "tr")
	if err := s.AppendEvent(ctx, ev); err != nil {
		t.Fatalf("first AppendEvent() failed: %v", err)
	}
	if err := s.AppendEvent(ctx, ev); err != nil {
		t.Errorf("repeat AppendEvent() failed: %v", err)
	}

	other, err := ir.NewEvent(1, "tr", ir.Unfollowed{Follower: alice, Following: bob})
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}
	if err := s.AppendEvent(ctx, other); err == nil {
		t.Error("AppendEvent() accepted a different event at an occupied seq")
	}
}

func TestReadTransition(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, host.FreeRent())
	for i, tr := range []string{"a", "b", "a"} {
		if err := s.AppendEvent(ctx, testEvent(t, int64(i+1), tr)); err != nil {
			t.Fatalf("AppendEvent() failed: %v", err)
		}
	}

	events, err := s.ReadTransition(ctx, "a")
	if err != nil {
		t.Fatalf("ReadTransition() failed: %v", err)
	}
	if got := seqs(events); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("ReadTransition(a) seqs = %v, want [1 3]", got)
	}
}

func seqs(events []ir.Event) []int64 {
	out := make([]int64, len(events))
	for i, ev := range events {
		out[i] = ev.Seq
	}
	return out
}
