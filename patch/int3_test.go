//go:build windows

package patch

import (
	"bytes"
	"testing"

	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

func TestInt3ApplyOverwritesOnlyFirstByte(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	before, err := process.ReadAt(target, 16)
	if err != nil {
		t.Fatalf("ReadAt before Apply: %v", err)
	}

	h := NewInt3(process, target, hookFn)
	if err := h.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := h.GetPatchSize(); got != 1 {
		t.Fatalf("GetPatchSize = %d, want 1", got)
	}

	after, err := process.ReadAt(target, 16)
	if err != nil {
		t.Fatalf("ReadAt after Apply: %v", err)
	}
	if after[0] != int3Opcode {
		t.Fatalf("target[0] = %#x, want %#x", after[0], int3Opcode)
	}
	if !bytes.Equal(after[1:], before[1:]) {
		t.Fatal("Int3 Apply touched bytes beyond the first")
	}

	if err := h.Remove(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	restored, err := process.ReadAt(target, 16)
	if err != nil {
		t.Fatalf("ReadAt after Remove: %v", err)
	}
	if !bytes.Equal(restored, before) {
		t.Fatalf("after Remove, got %x want %x", restored, before)
	}
}

func TestInt3DoubleHookRejected(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	h1 := NewInt3(process, target, hookFn)
	if err := h1.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	defer h1.Close()

	h2 := NewInt3(process, target, hookFn)
	if err := h2.Apply(winapi.GetCurrentThreadId()); err == nil {
		t.Fatal("second Apply on the same target succeeded, want ErrDoubleHook")
	}
}
