//go:build windows

package patch

import (
	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
	"github.com/andreievg/dethook/veh"
)

// Dr redirects via a hardware execution breakpoint on the calling
// thread: it writes nothing to target's memory at all, instead arming a
// free debug register on the thread that calls Apply and registering
// with the VEH dispatcher so the resulting single-step exception
// redirects to hookFn. Grounded on hadesmem's PatchVeh debug-register
// breakpoints, limited here (as there) to current-process targets
// only and to the calling thread only: other threads of the process
// keep running the unpatched target, matching the source's own
// single-thread scope rather than generalizing it to "every thread."
type Dr struct {
	*Detour
}

// NewDr prepares a hardware-breakpoint hook from target to hookFn
// against process, which must be the calling process: debug registers
// are per-thread CPU state, so a hardware breakpoint can only ever be
// armed on a thread of the process that's doing the arming.
func NewDr(process *proc.Process, target, hookFn uintptr) (*Dr, error) {
	if !process.IsLocal() {
		return nil, herr.ErrCrossProcessUnsupported
	}
	d := NewDetour(process, target, hookFn)
	d.strategy = &drStrategy{}
	return &Dr{Detour: d}, nil
}

// Take transfers ownership of the armed breakpoint to a newly returned
// Dr, leaving this one inert. Returns ErrAlreadyTaken if called twice.
func (d *Dr) Take() (*Dr, error) {
	moved, err := d.Detour.Take()
	if err != nil {
		return nil, err
	}
	return &Dr{Detour: moved}, nil
}

type drStrategy struct {
	tid   uint32
	slot  int
	armed bool
}

// patchSize reports 1: no bytes of target are actually overwritten, but
// GetPatchSize must still return a nonzero value so callers that probe
// it to decide whether a hook is installed don't mistake an armed
// breakpoint for an unpatched target.
func (s *drStrategy) patchSize(d *Detour) int { return 1 }

// minRelocLen is 0: nothing in target's memory ever moves, so there is
// nothing to relocate and GetTrampoline simply returns target itself.
func (s *drStrategy) minRelocLen(d *Detour) int { return 0 }

func (s *drStrategy) canHookChain() bool { return false }

func (s *drStrategy) writePatch(d *Detour, callingTID uint32) error {
	if err := veh.Register(); err != nil {
		return err
	}
	if err := veh.Insert(d.target, d); err != nil {
		return err
	}

	th, err := d.process.OpenThread(callingTID)
	if err != nil {
		veh.Remove(d.target)
		return err
	}
	defer th.Close()

	var ctx winapi.Context
	ctx.ContextFlags = contextDebugFlags
	if err := th.GetContext(&ctx); err != nil {
		veh.Remove(d.target)
		return err
	}

	slot, err := acquireDrSlot(&ctx)
	if err != nil {
		veh.Remove(d.target)
		return err
	}
	writeDrContext(&ctx, slot, d.target)

	if err := th.SetContext(&ctx); err != nil {
		veh.Remove(d.target)
		return err
	}

	s.tid = callingTID
	s.slot = slot
	s.armed = true
	veh.SetDrSlot(callingTID, slot, d.process.ThreadGeneration(callingTID))

	d.trampoline = d.target
	return nil
}

// removePatch clears the armed debug register, refusing (logging rather
// than erroring, since Remove is never on a propagating path per this
// package's lifecycle contract) if the calling thread's generation has
// since moved on: the TID was recycled and the register it once held no
// longer has anything to do with this hook.
func (s *drStrategy) removePatch(d *Detour, callingTID uint32) error {
	veh.Remove(d.target)

	if !s.armed {
		return nil
	}

	generation := d.process.ThreadGeneration(s.tid)
	if !veh.ClearDrSlot(s.tid, generation) {
		logf("patch: dr hook at %#x: thread %d generation changed, skipping register cleanup", d.target, s.tid)
		s.armed = false
		d.trampoline = 0
		return nil
	}

	th, err := d.process.OpenThread(s.tid)
	if err != nil {
		logf("patch: dr hook at %#x: OpenThread(%d) for cleanup: %v", d.target, s.tid, err)
		s.armed = false
		d.trampoline = 0
		return nil
	}
	defer th.Close()

	var ctx winapi.Context
	ctx.ContextFlags = contextDebugFlags
	if err := th.GetContext(&ctx); err == nil {
		clearDrContext(&ctx, s.slot)
		th.SetContext(&ctx)
	}

	s.armed = false
	d.trampoline = 0
	return nil
}
