//go:build windows

// Package proc implements the process handle collaborator the rest of
// this engine builds on: reading/writing a process's address space,
// allocating and protecting memory in it, enumerating its threads, and
// flushing the instruction cache, with a local-process fast path (direct
// pointer access) alongside the ReadProcessMemory/WriteProcessMemory
// remote path so the same type serves both current-process VEH/DR hooks
// and remote-process raw/detour patches.
package proc

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
)

// syscallHandle is the handle type winapi's kernel32 wrappers expect;
// golang.org/x/sys/windows.Handle and syscall.Handle are both defined as
// uintptr and convert freely between each other.
type syscallHandle = syscall.Handle

// Process is a non-owning handle to a Windows process, local or remote.
type Process struct {
	pid    uint32
	handle syscallHandle
	local  bool

	genMu      sync.Mutex
	gen        map[uint32]uint64
	lastSeen   map[uint32]bool
	genCounter uint64
}

// Current wraps the calling process.
func Current() *Process {
	return newProcess(windows.GetCurrentProcessId(), syscallHandle(windows.CurrentProcess()), true)
}

// processAccess is the access mask the engine needs against a remote
// process: VM read/write/operation plus query-information for
// GetSystemInfo-adjacent calls and thread enumeration.
const processAccess = winapi.ProcessVMOperation | winapi.ProcessVMRead |
	winapi.ProcessVMWrite | winapi.ProcessQueryInfo

// Open opens pid for the access the engine needs. Local-process
// specialization (§6) means VEH/DR hooks built on the result are only
// valid if pid happens to be the caller's own; Raw/Detour patches work
// against any pid this returns.
func Open(pid uint32) (*Process, error) {
	h, err := winapi.OpenProcess(processAccess, false, pid)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenProcess: %v", herr.ErrIOFailed, err)
	}
	return newProcess(pid, h, pid == windows.GetCurrentProcessId()), nil
}

func newProcess(pid uint32, handle syscallHandle, local bool) *Process {
	return &Process{
		pid:      pid,
		handle:   handle,
		local:    local,
		gen:      make(map[uint32]uint64),
		lastSeen: make(map[uint32]bool),
	}
}

func (p *Process) Pid() uint32   { return p.pid }
func (p *Process) IsLocal() bool { return p.local }

// ReadAt reads n bytes from addr, via a direct pointer read when the
// process is local and via ReadProcessMemory otherwise.
func (p *Process) ReadAt(addr uintptr, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if p.local {
		copy(buf, unsafe.Slice((*byte)(unsafe.Pointer(addr)), n))
		return buf, nil
	}
	if _, err := winapi.ReadProcessMemory(p.handle, addr, buf); err != nil {
		return nil, fmt.Errorf("%w: ReadProcessMemory: %v", herr.ErrIOFailed, err)
	}
	return buf, nil
}

// WriteAt writes data at addr, temporarily relaxing page protection
// around the write and restoring it afterward.
func (p *Process) WriteAt(addr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	old, err := p.Protect(addr, uintptr(len(data)), winapi.PageExecuteReadWrite)
	if err != nil {
		return err
	}
	defer p.Protect(addr, uintptr(len(data)), old)

	if p.local {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data)), data)
		return nil
	}
	if _, err := winapi.WriteProcessMemory(p.handle, addr, data); err != nil {
		return fmt.Errorf("%w: WriteProcessMemory: %v", herr.ErrIOFailed, err)
	}
	return nil
}

// Protect changes the protection of [addr, addr+size) and returns the
// previous protection. VirtualProtectEx accepts the current-process
// pseudo-handle too, so this path serves both local and remote targets.
func (p *Process) Protect(addr, size uintptr, newProtect uint32) (uint32, error) {
	old, err := winapi.VirtualProtectEx(p.handle, addr, size, newProtect)
	if err != nil {
		return 0, fmt.Errorf("%w: VirtualProtectEx: %v", herr.ErrIOFailed, err)
	}
	return old, nil
}

// Alloc commits size bytes of addr-hinted memory with the given
// protection, per C2's contract.
func (p *Process) Alloc(addr, size uintptr, protect uint32) (uintptr, error) {
	a, err := winapi.VirtualAllocEx(p.handle, addr, size, winapi.MemCommit|winapi.MemReserve, protect)
	if err != nil {
		return 0, fmt.Errorf("%w: VirtualAllocEx: %v", herr.ErrIOFailed, err)
	}
	return a, nil
}

// Free releases memory previously returned by Alloc.
func (p *Process) Free(addr uintptr) error {
	if addr == 0 {
		return nil
	}
	if err := winapi.VirtualFreeEx(p.handle, addr, 0, winapi.MemRelease); err != nil {
		return fmt.Errorf("%w: VirtualFreeEx: %v", herr.ErrIOFailed, err)
	}
	return nil
}

// FlushInstructionCache flushes [addr, addr+size) after a code write.
func (p *Process) FlushInstructionCache(addr, size uintptr) error {
	if err := winapi.FlushInstructionCache(p.handle, addr, size); err != nil {
		return fmt.Errorf("%w: FlushInstructionCache: %v", herr.ErrIOFailed, err)
	}
	return nil
}

// Threads enumerates the process's threads via a Toolhelp32 snapshot,
// and updates the thread-generation bookkeeping ThreadGeneration reads
// so a later lookup can tell a still-live thread id apart from one that
// has since been recycled by a new thread.
func (p *Process) Threads() ([]uint32, error) {
	snap, err := winapi.CreateToolhelp32Snapshot(winapi.ThCS_SnapThread, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateToolhelp32Snapshot: %v", herr.ErrIOFailed, err)
	}
	defer winapi.CloseHandle(snap)

	var tids []uint32
	var entry winapi.ThreadEntry32
	for ok := winapi.Thread32First(snap, &entry); ok; ok = winapi.Thread32Next(snap, &entry) {
		if entry.OwnerProcessID == p.pid {
			tids = append(tids, entry.ThreadID)
		}
	}
	p.observe(tids)
	return tids, nil
}

func (p *Process) observe(tids []uint32) {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	seen := make(map[uint32]bool, len(tids))
	for _, tid := range tids {
		seen[tid] = true
		if !p.lastSeen[tid] {
			p.genCounter++
			p.gen[tid] = p.genCounter
		}
	}
	p.lastSeen = seen
}

// ThreadGeneration returns the generation counter for tid as observed by
// the most recent Threads() call: it increases whenever tid appears
// after having been absent, so a caller can detect TID reuse between a
// WritePatch and a later RemovePatch.
func (p *Process) ThreadGeneration(tid uint32) uint64 {
	p.genMu.Lock()
	defer p.genMu.Unlock()
	return p.gen[tid]
}

// ThreadHandle is an opened handle to one of the process's threads,
// used by the thread quiescer (C4) and the DR patch (C9).
type ThreadHandle struct {
	tid    uint32
	handle syscallHandle
}

const threadAccess = winapi.ThreadSuspendResume | winapi.ThreadGetContext |
	winapi.ThreadSetContext | winapi.ThreadQueryInfo

// OpenThread opens tid for suspend/resume and context read/write.
func (p *Process) OpenThread(tid uint32) (*ThreadHandle, error) {
	h, err := winapi.OpenThread(threadAccess, false, tid)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenThread: %v", herr.ErrIOFailed, err)
	}
	return &ThreadHandle{tid: tid, handle: h}, nil
}

func (t *ThreadHandle) TID() uint32 { return t.tid }

func (t *ThreadHandle) Close() error {
	if err := winapi.CloseHandle(t.handle); err != nil {
		return fmt.Errorf("%w: CloseHandle: %v", herr.ErrIOFailed, err)
	}
	return nil
}

func (t *ThreadHandle) Suspend() error {
	if err := winapi.SuspendThread(t.handle); err != nil {
		return fmt.Errorf("%w: SuspendThread: %v", herr.ErrIOFailed, err)
	}
	return nil
}

func (t *ThreadHandle) Resume() error {
	if err := winapi.ResumeThread(t.handle); err != nil {
		return fmt.Errorf("%w: ResumeThread: %v", herr.ErrIOFailed, err)
	}
	return nil
}

// GetContext fills ctx, which must have ContextFlags already set to the
// record groups wanted (CONTEXT_CONTROL for IP checks, plus
// CONTEXT_DEBUG_REGISTERS for the DR patch).
func (t *ThreadHandle) GetContext(ctx *winapi.Context) error {
	if err := winapi.GetThreadContext(t.handle, unsafe.Pointer(ctx)); err != nil {
		return fmt.Errorf("%w: GetThreadContext: %v", herr.ErrIOFailed, err)
	}
	return nil
}

func (t *ThreadHandle) SetContext(ctx *winapi.Context) error {
	if err := winapi.SetThreadContext(t.handle, unsafe.Pointer(ctx)); err != nil {
		return fmt.Errorf("%w: SetThreadContext: %v", herr.ErrIOFailed, err)
	}
	return nil
}
