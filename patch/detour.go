//go:build windows

// Package patch implements the redirect techniques C6, C8 and C9: a
// direct-jump detour that overwrites a target's prologue, an INT3 trap
// that overwrites only its first byte, and a hardware-breakpoint trap
// that overwrites nothing at all. All three share the same relocate-
// then-redirect shape from hadesmem's PatchDetour, generalized into a
// single Detour type plus a patchStrategy a caller swaps in instead of
// hadesmem's virtual WritePatch/RemovePatch override.
package patch

import (
	"sync"
	"sync/atomic"

	"github.com/andreievg/dethook/alloc"
	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
	"github.com/andreievg/dethook/quiesce"
	"github.com/andreievg/dethook/reloc"
)

// patchStrategy customizes how a Detour installs and removes its
// redirect. A nil strategy on a Detour means "use the built-in direct-
// jump behavior"; Int3 and Dr set one to change only that behavior
// while reusing every other Detour method (relocation, quiescing,
// refcounting) unmodified.
type patchStrategy interface {
	minRelocLen(d *Detour) int
	writePatch(d *Detour, callingTID uint32) error
	removePatch(d *Detour, callingTID uint32) error
	patchSize(d *Detour) int
	canHookChain() bool
}

// Detour overwrites a target function's prologue to redirect execution
// to hookFn, after relocating however many original bytes its strategy
// needs to preserve into an executable trampoline the hook can call
// through to resume original behavior. Only JMP/CALL control transfers
// in the relocated prologue are fixed up; other RIP-relative
// instructions (e.g. MOV reg, [RIP+d]) are copied verbatim and read
// from the wrong address once relocated.
type Detour struct {
	process  *proc.Process
	target   uintptr
	hookFn   uintptr
	strategy patchStrategy

	allocator *alloc.NearPageAllocator
	relocator *reloc.Relocator

	mu             sync.Mutex
	applied        bool
	detached       bool
	taken          bool
	trampoline     uintptr
	ownsTrampoline bool
	auxTrampolines []uintptr
	entryAux       uintptr
	relocSize      int
	orig           []byte
	refCount       int32
}

// NewDetour prepares a detour from target to hookFn against process. No
// memory is touched until Apply.
func NewDetour(process *proc.Process, target, hookFn uintptr) *Detour {
	a := alloc.New(process)
	return &Detour{
		process:   process,
		target:    target,
		hookFn:    hookFn,
		allocator: a,
		relocator: reloc.New(process, a),
	}
}

// DetourTarget implements veh.Record: both Int3 and Dr redirect a
// trapped thread's instruction pointer here.
func (d *Detour) DetourTarget() uintptr { return d.hookFn }

// GetPatchSize returns the patch size the strategy reports: the bytes
// Apply overwrites at target for the default jump (5 or 6) and Int3
// (1), and 1 for Dr, which overwrites nothing.
func (d *Detour) GetPatchSize() int {
	if d.strategy != nil {
		return d.strategy.patchSize(d)
	}
	return d.defaultPatchSize()
}

// GetTrampoline returns the address at which the relocated original
// prologue (followed by a jump back into the untouched remainder of
// target) can be called, or 0 if this strategy never needed one.
func (d *Detour) GetTrampoline() uintptr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trampoline
}

// RelocatedLen returns how many original bytes at target were
// relocated into the trampoline, 0 if this strategy never relocated
// any.
func (d *Detour) RelocatedLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.relocSize
}

// RefCount reports how many times Apply has succeeded without a
// matching Remove; always 0 or 1, since hooks on a given target never
// chain.
func (d *Detour) RefCount() int32 { return atomic.LoadInt32(&d.refCount) }

// CanHookChain reports whether a second hook may be installed on the
// same target while this one is active. Every strategy in this package
// rejects chaining; the method exists so callers can branch on it
// uniformly instead of special-casing by type.
func (d *Detour) CanHookChain() bool {
	if d.strategy != nil {
		return d.strategy.canHookChain()
	}
	return false
}

func (d *Detour) minRelocLen() int {
	if d.strategy != nil {
		return d.strategy.minRelocLen(d)
	}
	return d.defaultPatchSize()
}

// Apply installs the redirect: free whatever trampoline and auxiliary
// slots a previous Apply/Remove cycle left allocated, quiesce every
// other thread, verify none of them is executing inside the bytes about
// to be overwritten, relocate that many original bytes (if the strategy
// needs any) into a freshly allocated trampoline, run the strategy's
// writePatch, and flush the instruction cache. The other threads stay
// suspended until Apply returns.
func (d *Detour) Apply(callingTID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.detached {
		return herr.ErrDetached
	}
	if d.taken {
		return herr.ErrAlreadyTaken
	}
	if d.applied {
		return nil
	}

	d.freeTrampolineState()

	minLen := d.minRelocLen()

	susp, err := quiesce.SuspendAll(d.process, callingTID)
	if err != nil {
		return err
	}
	defer susp.Close()
	if err := susp.VerifyNotExecutingIn(d.target, uintptr(maxInt(minLen, 1))); err != nil {
		return err
	}

	if minLen > 0 {
		trampoline, size, auxSlots, err := d.allocateAndRelocate(callingTID, minLen)
		if err != nil {
			return err
		}
		d.trampoline = trampoline
		d.ownsTrampoline = true
		d.relocSize = size
		d.auxTrampolines = auxSlots
	}

	orig, err := d.process.ReadAt(d.target, maxInt(minLen, 1))
	if err != nil {
		d.freeTrampolineState()
		return err
	}
	d.orig = orig

	if d.strategy != nil {
		err = d.strategy.writePatch(d, callingTID)
	} else {
		err = d.defaultWritePatch()
	}
	if err != nil {
		d.freeTrampolineState()
		return err
	}

	if err := d.process.FlushInstructionCache(d.target, uintptr(maxInt(minLen, 1))); err != nil {
		return err
	}

	d.applied = true
	atomic.StoreInt32(&d.refCount, 1)
	return nil
}

// freeTrampolineState releases the trampoline this Detour allocated
// (never one a strategy pointed at the target itself, e.g. Dr's
// trampoline-equals-target case) along with every auxiliary
// indirect-slot cell a relocation or continuation jump needed, and
// clears the bookkeeping. Safe to call when nothing was ever allocated.
func (d *Detour) freeTrampolineState() {
	if d.ownsTrampoline && d.trampoline != 0 {
		d.allocator.Free(d.trampoline)
	}
	d.freeSlots(d.auxTrampolines)
	d.trampoline = 0
	d.ownsTrampoline = false
	d.auxTrampolines = nil
	d.relocSize = 0
}

func (d *Detour) freeSlots(slots []uintptr) {
	for _, slot := range slots {
		d.allocator.Free(slot)
	}
}

// trampolineScratchSize is the fixed size of every trampoline
// allocation: three times the maximum x86 instruction length (15
// bytes), generous enough for the relocated prologue (at most a
// handful of short instructions before minLen is satisfied) plus the
// continuation jump appended after it. Matches hadesmem's PatchDetour,
// which also over-allocates a fixed scratch size rather than computing
// an exact fit.
const trampolineScratchSize = 3 * 15

func (d *Detour) allocateAndRelocate(callingTID uint32, minLen int) (uintptr, int, []uintptr, error) {
	susp, err := quiesce.SuspendAll(d.process, callingTID)
	if err != nil {
		return 0, 0, nil, err
	}
	defer susp.Close()

	if err := susp.VerifyNotExecutingIn(d.target, uintptr(minLen)); err != nil {
		return 0, 0, nil, err
	}

	trampoline, err := d.allocator.AllocateNear(d.target, trampolineScratchSize)
	if err != nil {
		return 0, 0, nil, err
	}

	consumed, emitted, auxSlots, err := d.relocator.Relocate(d.target, minLen, trampoline)
	if err != nil {
		d.freeSlots(auxSlots)
		d.allocator.Free(trampoline)
		return 0, 0, nil, err
	}

	contSlot, err := d.writeContinuation(trampoline+uintptr(emitted), d.target+uintptr(consumed))
	if err != nil {
		d.freeSlots(auxSlots)
		d.allocator.Free(trampoline)
		return 0, 0, nil, err
	}
	if contSlot != 0 {
		auxSlots = append(auxSlots, contSlot)
	}

	if err := d.process.FlushInstructionCache(trampoline, trampolineScratchSize); err != nil {
		d.freeSlots(auxSlots)
		d.allocator.Free(trampoline)
		return 0, 0, nil, err
	}

	return trampoline, consumed, auxSlots, nil
}

// Remove restores target's original bytes (if any were overwritten).
// The trampoline, if one was allocated, is deliberately left in place:
// a caller may still hold a pointer into it (e.g. a hook function that
// captured GetTrampoline's return value before Remove ran), and there
// is no safe point at which this package can know that pointer has
// gone out of use. It is idempotent: calling it twice, or before Apply
// ever succeeded, is a no-op.
func (d *Detour) Remove(callingTID uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removeLocked(callingTID)
}

// removeLocked quiesces both the target's overwritten range and the
// trampoline range before restoring target's bytes: a thread that
// entered the detour and is still running inside the trampoline's
// relocated prologue must not have either range rewritten or (on a
// later Apply) freed out from under it.
func (d *Detour) removeLocked(callingTID uint32) error {
	if !d.applied {
		return nil
	}

	susp, err := quiesce.SuspendAll(d.process, callingTID)
	if err != nil {
		return err
	}
	defer susp.Close()

	targetLen := maxInt(d.minRelocLen(), 1)
	if err := susp.VerifyNotExecutingIn(d.target, uintptr(targetLen)); err != nil {
		return err
	}
	if d.trampoline != 0 {
		if err := susp.VerifyNotExecutingIn(d.trampoline, trampolineScratchSize); err != nil {
			return err
		}
	}

	if d.strategy != nil {
		err = d.strategy.removePatch(d, callingTID)
	} else {
		err = d.defaultRemovePatch()
	}
	if err != nil {
		return err
	}

	d.applied = false
	atomic.StoreInt32(&d.refCount, 0)
	return nil
}

// Detach releases ownership of the installed patch without undoing it:
// after Detach the Detour no longer touches target on Close, leaving
// the redirect permanently installed under the caller's management.
func (d *Detour) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detached = true
}

// Close removes the patch unless it has been Detached, quiescing under
// the calling OS thread's own id since a destructor-style call has no
// caller-supplied one to thread through, and — since no further Apply
// is expected once a caller closes the record — releases the
// trampoline and any auxiliary slots it still owns.
func (d *Detour) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached {
		return nil
	}
	err := d.removeLocked(winapi.GetCurrentThreadId())
	d.freeTrampolineState()
	return err
}

// Take transfers ownership of the installed patch to a newly returned
// Detour and zeroes this one's live state, so the caller cannot end up
// with two records both believing they own the same trampoline and
// target bytes. Returns ErrAlreadyTaken if called twice. The source
// record is left harmlessly inert: Apply on it fails, and Remove/Close
// are no-ops since it no longer believes itself applied.
func (d *Detour) Take() (*Detour, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.taken {
		return nil, herr.ErrAlreadyTaken
	}

	moved := &Detour{
		process:        d.process,
		target:         d.target,
		hookFn:         d.hookFn,
		strategy:       d.strategy,
		allocator:      d.allocator,
		relocator:      d.relocator,
		applied:        d.applied,
		detached:       d.detached,
		trampoline:     d.trampoline,
		ownsTrampoline: d.ownsTrampoline,
		auxTrampolines: d.auxTrampolines,
		entryAux:       d.entryAux,
		relocSize:      d.relocSize,
		orig:           d.orig,
		refCount:       d.refCount,
	}

	d.taken = true
	d.applied = false
	d.trampoline = 0
	d.ownsTrampoline = false
	d.auxTrampolines = nil
	d.entryAux = 0
	d.orig = nil
	atomic.StoreInt32(&d.refCount, 0)

	return moved, nil
}

// writeContinuation appends the jump from the end of the relocated
// prologue back into the untouched remainder of target, the step that
// turns a copied prologue into a callable trampoline. It returns the
// auxiliary slot address the jump needed, or 0 if it reached directly.
func (d *Detour) writeContinuation(src, dst uintptr) (uintptr, error) {
	bytes, slot, err := writeDefaultJump(d.process, d.allocator, src, dst)
	if err != nil {
		return 0, err
	}
	if err := d.process.WriteAt(src, bytes); err != nil {
		if slot != 0 {
			d.allocator.Free(slot)
		}
		return 0, err
	}
	return slot, nil
}

func (d *Detour) defaultPatchSize() int {
	return defaultJumpSize(d.target, d.hookFn)
}

func (d *Detour) defaultWritePatch() error {
	bytes, slot, err := writeDefaultJump(d.process, d.allocator, d.target, d.hookFn)
	if err != nil {
		return err
	}
	if err := d.process.WriteAt(d.target, bytes); err != nil {
		if slot != 0 {
			d.allocator.Free(slot)
		}
		return err
	}
	d.entryAux = slot
	return nil
}

// defaultRemovePatch restores target's original bytes and frees the
// auxiliary slot the entry jump used, if any: once the original bytes
// are back, nothing ever reads that cell again, unlike the trampoline's
// own auxiliary slots which a still-running call may still be using.
func (d *Detour) defaultRemovePatch() error {
	if err := d.process.WriteAt(d.target, d.orig); err != nil {
		return err
	}
	if d.entryAux != 0 {
		d.allocator.Free(d.entryAux)
		d.entryAux = 0
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
