//go:build windows

package patch

import (
	"bytes"
	"testing"

	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

func TestDrApplyLeavesTargetUntouched(t *testing.T) {
	process := proc.Current()
	target := seedPage(t, process)
	hookFn := seedPage(t, process)

	before, err := process.ReadAt(target, 16)
	if err != nil {
		t.Fatalf("ReadAt before Apply: %v", err)
	}

	h, err := NewDr(process, target, hookFn)
	if err != nil {
		t.Fatalf("NewDr: %v", err)
	}
	if err := h.Apply(winapi.GetCurrentThreadId()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer h.Close()

	if got := h.GetPatchSize(); got != 1 {
		t.Fatalf("GetPatchSize = %d, want 1", got)
	}
	if got := h.GetTrampoline(); got != target {
		t.Fatalf("GetTrampoline = %#x, want target %#x", got, target)
	}

	after, err := process.ReadAt(target, 16)
	if err != nil {
		t.Fatalf("ReadAt after Apply: %v", err)
	}
	if !bytes.Equal(after, before) {
		t.Fatal("Dr Apply modified target memory")
	}
}
