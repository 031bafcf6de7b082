// Package herr defines the sentinel error taxonomy shared by every patch
// kind, so callers can errors.Is against a stable set instead of matching
// on formatted strings.
package herr

import "errors"

var (
	// ErrThreadInRange means a non-calling thread's instruction pointer
	// lies inside a range the engine was about to rewrite or free.
	ErrThreadInRange = errors.New("dethook: thread executing in patch range")

	// ErrDisassemblyFailed means the instruction decoder returned a
	// zero-length instruction while walking a target's prologue.
	ErrDisassemblyFailed = errors.New("dethook: disassembly failed")

	// ErrNoReachablePage means the trampoline allocator exhausted both
	// the forward and backward scan without finding a page within
	// reach of the anchor address.
	ErrNoReachablePage = errors.New("dethook: no reachable page for trampoline")

	// ErrNoFreeDebugRegisters means all four hardware breakpoint slots
	// on the calling thread are already in use.
	ErrNoFreeDebugRegisters = errors.New("dethook: no free debug registers")

	// ErrVehRegisterFailed means AddVectoredExceptionHandler failed.
	ErrVehRegisterFailed = errors.New("dethook: vectored exception handler registration failed")

	// ErrCrossProcessUnsupported means a VEH or DR flavored patch was
	// attempted against a process other than the current one.
	ErrCrossProcessUnsupported = errors.New("dethook: VEH/DR hooks only support the current process")

	// ErrUnimplemented means a PatchVeh base operation was invoked
	// without a concrete strategy (Int3/Dr) bound to it.
	ErrUnimplemented = errors.New("dethook: unimplemented")

	// ErrIOFailed wraps a rejected read/write/protect call to the
	// target process.
	ErrIOFailed = errors.New("dethook: io failed")

	// ErrDoubleHook means a VEH-flavored patch was already installed at
	// this address; the engine does not chain through a prior INT3/DR
	// hook at the same address.
	ErrDoubleHook = errors.New("dethook: address already hooked")

	// ErrDetached means an operation was attempted on a record that has
	// already been permanently detached.
	ErrDetached = errors.New("dethook: patch record is detached")

	// ErrAlreadyTaken means Take was called a second time on a record
	// whose ownership was already moved to an earlier Take call.
	ErrAlreadyTaken = errors.New("dethook: patch record ownership already taken")
)
