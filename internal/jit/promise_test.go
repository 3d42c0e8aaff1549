package jit

import (
	"testing"

	"sentrabf/internal/ir"
)

func TestPromisePoolDedup(t *testing.T) {
	var pool promisePool

	bodyA := []ir.Node{{Op: ir.Incr, Byte: 1}}
	bodyB := []ir.Node{{Op: ir.Incr, Byte: 1}}
	bodyC := []ir.Node{{Op: ir.Decr, Byte: 1}}

	idA, err := pool.add(bodyA)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	idB, err := pool.add(bodyB)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idA != idB {
		t.Fatalf("structurally equal bodies got distinct IDs: %d != %d", idA, idB)
	}

	idC, err := pool.add(bodyC)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idC == idA {
		t.Fatal("distinct bodies shared an ID")
	}
}

func TestPromisePoolAddSkipsCheckedOutSlot(t *testing.T) {
	var pool promisePool

	body := []ir.Node{{Op: ir.Incr, Byte: 1}}
	id, err := pool.add(body)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	entry := pool.take(id)
	if entry.source == nil {
		t.Fatal("expected entry with source body")
	}

	// While checked out, adding the same body again must not match the
	// nil slot: it must allocate a fresh entry.
	idAgain, err := pool.add(body)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idAgain == id {
		t.Fatal("add() matched a checked-out (nil) slot")
	}

	pool.put(id, entry)

	idThird, err := pool.add(body)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idThird != id && idThird != idAgain {
		t.Fatalf("expected dedup against one of the two existing entries, got new id %d", idThird)
	}
}

func TestPromiseIDNeverReused(t *testing.T) {
	var pool promisePool

	first, err := pool.add([]ir.Node{{Op: ir.Incr, Byte: 1}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	_ = pool.take(first)
	// Do not put it back: the slot stays nil forever (simulating a
	// promise whose target never finishes compiling in this test).

	second, err := pool.add([]ir.Node{{Op: ir.Decr, Byte: 1}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if second == first {
		t.Fatal("expected a fresh ID, not a reused one")
	}
}
