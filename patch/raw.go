//go:build windows

package patch

import (
	"sync"

	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
	"github.com/andreievg/dethook/quiesce"
)

// Raw overwrites an arbitrary byte range with caller-supplied bytes and
// can restore the original on Remove. It is the simplest redirect
// technique (C5): no relocation, no trampoline, just a quiesced write.
// Detour, Int3 and Dr do not use Raw; they write through proc.Process
// directly.
type Raw struct {
	process *proc.Process
	addr    uintptr

	mu       sync.Mutex
	applied  bool
	detached bool
	taken    bool
	orig     []byte
}

// NewRaw prepares a raw patch at addr against process. No memory is
// touched until Apply.
func NewRaw(process *proc.Process, addr uintptr) *Raw {
	return &Raw{process: process, addr: addr}
}

// Apply quiesces every other thread, verifies none of them is
// executing inside [addr, addr+len(data)), writes data, and flushes the
// instruction cache.
func (r *Raw) Apply(callingTID uint32, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.detached {
		return herr.ErrDetached
	}
	if r.taken {
		return herr.ErrAlreadyTaken
	}
	if r.applied {
		return herr.ErrDoubleHook
	}

	susp, err := quiesce.SuspendAll(r.process, callingTID)
	if err != nil {
		return err
	}
	defer susp.Close()

	if err := susp.VerifyNotExecutingIn(r.addr, uintptr(len(data))); err != nil {
		return err
	}

	orig, err := r.process.ReadAt(r.addr, len(data))
	if err != nil {
		return err
	}

	if err := r.process.WriteAt(r.addr, data); err != nil {
		return err
	}
	if err := r.process.FlushInstructionCache(r.addr, uintptr(len(data))); err != nil {
		return err
	}

	r.orig = orig
	r.applied = true
	return nil
}

// Remove restores the bytes Apply overwrote, quiescing the range first:
// a release of a patched range is itself a write that must not race a
// thread still executing inside it. Idempotent.
func (r *Raw) Remove(callingTID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(callingTID)
}

func (r *Raw) removeLocked(callingTID uint32) error {
	if !r.applied {
		return nil
	}

	susp, err := quiesce.SuspendAll(r.process, callingTID)
	if err != nil {
		return err
	}
	defer susp.Close()

	if err := susp.VerifyNotExecutingIn(r.addr, uintptr(len(r.orig))); err != nil {
		return err
	}

	if err := r.process.WriteAt(r.addr, r.orig); err != nil {
		return err
	}
	if err := r.process.FlushInstructionCache(r.addr, uintptr(len(r.orig))); err != nil {
		return err
	}
	r.applied = false
	return nil
}

// Detach releases ownership without undoing the write, leaving it
// permanently installed under the caller's management.
func (r *Raw) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = true
}

// Take transfers ownership of the installed write to a newly returned
// Raw and zeroes this one's live state, so the caller cannot end up
// with two records both believing they own the same range. Returns
// ErrAlreadyTaken if called twice.
func (r *Raw) Take() (*Raw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken {
		return nil, herr.ErrAlreadyTaken
	}

	moved := &Raw{
		process:  r.process,
		addr:     r.addr,
		applied:  r.applied,
		detached: r.detached,
		orig:     r.orig,
	}

	r.taken = true
	r.applied = false
	r.orig = nil

	return moved, nil
}

// Close removes the patch unless it has been Detached, quiescing under
// the calling OS thread's own id since a destructor-style call has no
// caller-supplied one to thread through.
func (r *Raw) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return nil
	}
	return r.removeLocked(winapi.GetCurrentThreadId())
}
