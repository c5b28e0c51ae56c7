package store

import (
	"math"
	"testing"

	"github.com/xuxxeth/sx/internal/ir"
)

func TestMarshalPayload_Canonical(t *testing.T) {
	got, err := marshalPayload(ir.Tipped{From: alice, To: bob, TipID: 1, Amount: 10})
	if err != nil {
		t.Fatalf("marshalPayload() failed: %v", err)
	}

	expected := `{"amount_lamports":10,"from":"` + alice.String() + `","tip_id":1,"to":"` + bob.String() + `"}`
	if got != expected {
		t.Errorf("marshalPayload() = %q, want %q", got, expected)
	}
}

func TestUnmarshalPayload_UnknownKind(t *testing.T) {
	if _, err := unmarshalPayload("Nope", "{}"); err == nil {
		t.Error("unmarshalPayload() should fail on unknown kind")
	}
}

func TestUnmarshalRecord_UnknownNamespace(t *testing.T) {
	if _, err := unmarshalRecord("nope", "{}"); err == nil {
		t.Error("unmarshalRecord() should fail on unknown namespace")
	}
}

func TestToLamports_Range(t *testing.T) {
	if _, err := toLamports(math.MaxInt64); err != nil {
		t.Errorf("toLamports(MaxInt64) failed: %v", err)
	}
	if _, err := toLamports(math.MaxInt64 + 1); err == nil {
		t.Error("toLamports(MaxInt64+1) should fail")
	}
}
