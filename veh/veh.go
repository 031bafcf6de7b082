//go:build windows

// Package veh implements the VEH dispatcher (C7): a process-wide
// vectored exception handler that routes INT3 and single-step
// exceptions raised by Int3 and DR patches to the hook responsible for
// the faulting address, redirecting execution to its hook function.
// Grounded on castaneai-hinako's single global handler + registration
// table, generalized from hinako's single-hook assumption to a table
// supporting any number of concurrent hooks keyed by address.
package veh

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
)

// Record is the subset of a patch's state the dispatcher needs: the
// hook function address a trapped thread's instruction pointer is
// redirected to.
type Record interface {
	DetourTarget() uintptr
}

// drSlot tracks which debug register slot a thread's single-step trap
// belongs to, plus the thread generation observed when the slot was
// armed, so ClearDrSlot can tell the entry this arm recorded apart from
// one left for a reused TID. The exception handler does not consult the
// generation.
type drSlot struct {
	slot       int
	generation uint64
}

type state struct {
	mu             sync.RWMutex
	hooksByAddress map[uintptr]Record
	drByThread     map[uint32]drSlot
	handle         uintptr
}

var global state

// Register installs the process-wide vectored exception handler. It is
// safe to call more than once; only the first call actually registers.
func Register() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.handle != 0 {
		return nil
	}
	if global.hooksByAddress == nil {
		global.hooksByAddress = make(map[uintptr]Record)
		global.drByThread = make(map[uint32]drSlot)
	}

	cb := syscall.NewCallback(vehCallback)
	h, err := winapi.AddVectoredExceptionHandler(1, cb)
	if err != nil {
		return fmt.Errorf("%w: AddVectoredExceptionHandler: %v", herr.ErrVehRegisterFailed, err)
	}
	global.handle = h
	return nil
}

// Insert registers rec as the hook responsible for addr. It fails with
// herr.ErrDoubleHook if addr is already hooked, since Int3/Dr patches
// do not chain.
func Insert(addr uintptr, rec Record) error {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.hooksByAddress == nil {
		global.hooksByAddress = make(map[uintptr]Record)
	}
	if _, exists := global.hooksByAddress[addr]; exists {
		return herr.ErrDoubleHook
	}
	global.hooksByAddress[addr] = rec
	return nil
}

// Remove unregisters the hook at addr, if any.
func Remove(addr uintptr) {
	global.mu.Lock()
	defer global.mu.Unlock()
	delete(global.hooksByAddress, addr)
}

// SetDrSlot records that tid's next single-step trap belongs to the DR
// breakpoint in slot, armed while tid was at generation.
func SetDrSlot(tid uint32, slot int, generation uint64) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.drByThread == nil {
		global.drByThread = make(map[uint32]drSlot)
	}
	global.drByThread[tid] = drSlot{slot: slot, generation: generation}
}

// ClearDrSlot removes tid's recorded slot if its generation still
// matches, reporting whether it actually cleared anything. A mismatch
// means tid has since exited and a new thread reused the TID; the
// caller must not treat the trap as belonging to its own breakpoint.
func ClearDrSlot(tid uint32, generation uint64) bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	cur, ok := global.drByThread[tid]
	if !ok || cur.generation != generation {
		return false
	}
	delete(global.drByThread, tid)
	return true
}

// DebugSnapshot returns every currently hooked address, for
// introspection and tests.
func DebugSnapshot() []uintptr {
	global.mu.RLock()
	defer global.mu.RUnlock()
	out := make([]uintptr, 0, len(global.hooksByAddress))
	for addr := range global.hooksByAddress {
		out = append(out, addr)
	}
	return out
}

func lookup(addr uintptr) (Record, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	rec, ok := global.hooksByAddress[addr]
	return rec, ok
}

func drSlotFor(tid uint32) (drSlot, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	s, ok := global.drByThread[tid]
	return s, ok
}

func vehCallback(ep uintptr) uintptr {
	p := winapi.FromPointer(ep)
	if p == nil || p.ExceptionRecord == nil || p.ContextRecord == nil {
		return winapi.ExceptionContinueSearch
	}

	switch p.ExceptionRecord.ExceptionCode {
	case winapi.ExceptionBreakpoint:
		return handleBreakpoint(p)
	case winapi.ExceptionSingleStep:
		return handleSingleStep(p)
	default:
		return winapi.ExceptionContinueSearch
	}
}

// handleBreakpoint handles an INT3 trap: ExceptionAddress is the
// address of the INT3 opcode itself, i.e. the hooked target, so the
// hook is looked up by it, and on a hit execution resumes at the hook
// function instead of falling through to the overwritten original
// byte.
func handleBreakpoint(p *winapi.ExceptionPointers) uintptr {
	addr := p.ExceptionRecord.ExceptionAddress
	rec, ok := lookup(addr)
	if !ok {
		return winapi.ExceptionContinueSearch
	}
	p.ContextRecord.SetIP(rec.DetourTarget())
	return winapi.ExceptionContinueExecution
}

// handleSingleStep handles a hardware breakpoint trap: the faulting
// thread's recorded DR slot, confirmed by that slot's Dr6 status bit,
// identifies which hook fired. The slot's generation is not checked
// here. On a hit it zeroes Dr6, sets the resume flag and redirects IP
// to the hook function, same as the INT3 path.
func handleSingleStep(p *winapi.ExceptionPointers) uintptr {
	tid := winapi.GetCurrentThreadId()
	slot, ok := drSlotFor(tid)
	if !ok {
		return winapi.ExceptionContinueSearch
	}
	if !p.ContextRecord.DR6BitSet(slot.slot) {
		return winapi.ExceptionContinueSearch
	}

	addr := p.ContextRecord.DrSlot(slot.slot)
	rec, ok := lookup(addr)
	if !ok {
		return winapi.ExceptionContinueSearch
	}

	p.ContextRecord.ClearDr6()
	p.ContextRecord.SetResumeFlag()
	p.ContextRecord.SetIP(rec.DetourTarget())
	return winapi.ExceptionContinueExecution
}
