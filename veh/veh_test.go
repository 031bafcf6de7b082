//go:build windows

package veh

import "testing"

type fakeRecord struct{ target uintptr }

func (f fakeRecord) DetourTarget() uintptr { return f.target }

func resetState() {
	global = state{}
}

func TestInsertRejectsDoubleHook(t *testing.T) {
	resetState()
	defer resetState()

	const addr = uintptr(0x1000)
	if err := Insert(addr, fakeRecord{target: 0x2000}); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := Insert(addr, fakeRecord{target: 0x3000}); err == nil {
		t.Fatal("second Insert at same address succeeded, want ErrDoubleHook")
	}
}

func TestRemoveThenReinsert(t *testing.T) {
	resetState()
	defer resetState()

	const addr = uintptr(0x1000)
	if err := Insert(addr, fakeRecord{target: 0x2000}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	Remove(addr)
	if err := Insert(addr, fakeRecord{target: 0x3000}); err != nil {
		t.Fatalf("Insert after Remove: %v", err)
	}
}

func TestDebugSnapshot(t *testing.T) {
	resetState()
	defer resetState()

	Insert(0x1000, fakeRecord{})
	Insert(0x2000, fakeRecord{})

	snap := DebugSnapshot()
	if len(snap) != 2 {
		t.Fatalf("DebugSnapshot returned %d entries, want 2", len(snap))
	}
}

func TestDrSlotGenerationMismatchRejected(t *testing.T) {
	resetState()
	defer resetState()

	SetDrSlot(42, 1, 5)
	if ClearDrSlot(42, 6) {
		t.Fatal("ClearDrSlot with wrong generation succeeded")
	}
	if !ClearDrSlot(42, 5) {
		t.Fatal("ClearDrSlot with matching generation failed")
	}
	if ClearDrSlot(42, 5) {
		t.Fatal("ClearDrSlot succeeded twice for the same arm")
	}
}
