//go:build windows

package patch

import (
	"bytes"
	"testing"

	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

// seedPage allocates an executable page near nothing in particular and
// fills it with a short run of NOPs followed by a RET, a valid
// (if pointless) x86 function body that Decode can walk across without
// ever encountering a control-transfer instruction.
func seedPage(t *testing.T, process *proc.Process) uintptr {
	t.Helper()
	page, err := process.Alloc(0, 0x1000, uint32(winapi.PageExecuteReadWrite))
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	t.Cleanup(func() { process.Free(page) })

	body := bytes.Repeat([]byte{0x90}, 16)
	body = append(body, 0xC3)
	if err := process.WriteAt(page, body); err != nil {
		t.Fatalf("seed WriteAt: %v", err)
	}
	return page
}

func TestDetourApplyWritesJumpAndRemoveRestores(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	before, err := process.ReadAt(target, 16)
	if err != nil {
		t.Fatalf("ReadAt before Apply: %v", err)
	}

	d := NewDetour(process, target, hookFn)
	if err := d.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	size := d.GetPatchSize()
	if size != 5 && size != 6 {
		t.Fatalf("GetPatchSize = %d, want 5 or 6", size)
	}

	patched, err := process.ReadAt(target, size)
	if err != nil {
		t.Fatalf("ReadAt after Apply: %v", err)
	}
	if bytes.Equal(patched, before[:size]) {
		t.Fatal("target bytes unchanged after Apply")
	}

	if trampoline := d.GetTrampoline(); trampoline == 0 {
		t.Fatal("GetTrampoline returned 0 after Apply")
	}

	if err := d.Remove(winapi.GetCurrentThreadId()); err != nil {
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

func TestDetourCanHookChainFalse(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	d := NewDetour(process, target, hookFn)
	if d.CanHookChain() {
		t.Fatal("CanHookChain = true, want false before Apply")
	}
	if err := d.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer d.Close()

	if d.CanHookChain() {
		t.Fatal("CanHookChain = true, want false")
	}
	if got := d.RefCount(); got != 1 {
		t.Fatalf("RefCount = %d, want 1", got)
	}
}

func TestDetourApplyIsIdempotent(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	d := NewDetour(process, target, hookFn)
	if err := d.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	defer d.Close()

	if err := d.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	if got := d.RefCount(); got != 1 {
		t.Fatalf("RefCount after double Apply = %d, want 1", got)
	}
}

func TestDetourTakeTransfersOwnership(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	d := NewDetour(process, target, hookFn)
	if err := d.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	trampoline := d.GetTrampoline()

	moved, err := d.Take()
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if got := moved.GetTrampoline(); got != trampoline {
		t.Fatalf("moved.GetTrampoline = %#x, want %#x", got, trampoline)
	}
	if got := d.GetTrampoline(); got != 0 {
		t.Fatalf("source GetTrampoline after Take = %#x, want 0", got)
	}

	if err := d.Apply(winapi.GetCurrentThreadId()); err == nil {
		t.Fatal("Apply on a taken record succeeded, want error")
	}
	if _, err := d.Take(); err == nil {
		t.Fatal("second Take on the same source succeeded, want error")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close on a taken record: %v", err)
	}

	if err := moved.Close(); err != nil {
		t.Fatalf("Close on the moved record: %v", err)
	}
}
