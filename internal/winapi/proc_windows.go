//go:build windows

// Package winapi collects the Windows entry points this module needs.
// Most go straight through golang.org/x/sys/windows, the way
// stavinski-winhook calls windows.ReadProcessMemory/WriteProcessMemory
// and projektckmt-silkwire-c2 calls windows.OpenProcess/CloseHandle/
// CreateToolhelp32Snapshot/Thread32First/Thread32Next/ResumeThread. A
// handful of APIs that package doesn't wrap — VirtualAllocEx,
// VirtualFreeEx, VirtualProtectEx, OpenThread, SuspendThread,
// GetThreadContext/SetThreadContext, AddVectoredExceptionHandler,
// FlushInstructionCache — are hand-declared against kernel32.dll here,
// the same fallback every one of those pack repos uses for exactly
// this same set of calls.
package winapi

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var kernel32 = syscall.NewLazyDLL("kernel32.dll")

var (
	procVirtualAllocEx              = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx               = kernel32.NewProc("VirtualFreeEx")
	procVirtualProtectEx            = kernel32.NewProc("VirtualProtectEx")
	procOpenThread                  = kernel32.NewProc("OpenThread")
	procSuspendThread                = kernel32.NewProc("SuspendThread")
	procGetThreadContext            = kernel32.NewProc("GetThreadContext")
	procSetThreadContext            = kernel32.NewProc("SetThreadContext")
	procFlushInstructionCache       = kernel32.NewProc("FlushInstructionCache")
	procAddVectoredExceptionHandler = kernel32.NewProc("AddVectoredExceptionHandler")
)

func VirtualAllocEx(hProcess syscall.Handle, addr uintptr, size uintptr, allocType uint32, protect uint32) (uintptr, error) {
	ret, _, err := procVirtualAllocEx.Call(uintptr(hProcess), addr, size, uintptr(allocType), uintptr(protect))
	if ret == 0 {
		return 0, err
	}
	return ret, nil
}

func VirtualFreeEx(hProcess syscall.Handle, addr uintptr, size uintptr, freeType uint32) error {
	ret, _, err := procVirtualFreeEx.Call(uintptr(hProcess), addr, size, uintptr(freeType))
	if ret == 0 {
		return err
	}
	return nil
}

func VirtualProtectEx(hProcess syscall.Handle, addr uintptr, size uintptr, newProtect uint32) (uint32, error) {
	var old uint32
	ret, _, err := procVirtualProtectEx.Call(uintptr(hProcess), addr, size, uintptr(newProtect), uintptr(unsafe.Pointer(&old)))
	if ret == 0 {
		return 0, err
	}
	return old, nil
}

// ReadProcessMemory delegates to golang.org/x/sys/windows, which wraps
// this call with the same (process, addr, *buf[0], size, *n) shape
// stavinski-winhook uses directly.
func ReadProcessMemory(hProcess syscall.Handle, addr uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n uintptr
	err := windows.ReadProcessMemory(windows.Handle(hProcess), addr, &buf[0], uintptr(len(buf)), &n)
	return int(n), err
}

func WriteProcessMemory(hProcess syscall.Handle, addr uintptr, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	var n uintptr
	err := windows.WriteProcessMemory(windows.Handle(hProcess), addr, &buf[0], uintptr(len(buf)), &n)
	return int(n), err
}

func OpenProcess(access uint32, inherit bool, pid uint32) (syscall.Handle, error) {
	h, err := windows.OpenProcess(access, inherit, pid)
	return syscall.Handle(h), err
}

func OpenThread(access uint32, inherit bool, tid uint32) (syscall.Handle, error) {
	var inh uintptr
	if inherit {
		inh = 1
	}
	ret, _, err := procOpenThread.Call(uintptr(access), inh, uintptr(tid))
	if ret == 0 {
		return 0, err
	}
	return syscall.Handle(ret), nil
}

func SuspendThread(h syscall.Handle) error {
	ret, _, err := procSuspendThread.Call(uintptr(h))
	if int32(ret) == -1 {
		return err
	}
	return nil
}

func ResumeThread(h syscall.Handle) error {
	_, err := windows.ResumeThread(windows.Handle(h))
	return err
}

// GetThreadContext fills ctx, which must point at a CONTEXT_AMD64 or
// CONTEXT_386 with ContextFlags already set to the record groups wanted.
func GetThreadContext(h syscall.Handle, ctx unsafe.Pointer) error {
	ret, _, err := procGetThreadContext.Call(uintptr(h), uintptr(ctx))
	if ret == 0 {
		return err
	}
	return nil
}

func SetThreadContext(h syscall.Handle, ctx unsafe.Pointer) error {
	ret, _, err := procSetThreadContext.Call(uintptr(h), uintptr(ctx))
	if ret == 0 {
		return err
	}
	return nil
}

func CloseHandle(h syscall.Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func FlushInstructionCache(hProcess syscall.Handle, addr uintptr, size uintptr) error {
	ret, _, err := procFlushInstructionCache.Call(uintptr(hProcess), addr, size)
	if ret == 0 {
		return err
	}
	return nil
}

// AddVectoredExceptionHandler registers handler (a callback produced by
// syscall.NewCallback) ahead of the process's other handlers when first
// is nonzero.
func AddVectoredExceptionHandler(first uintptr, handler uintptr) (uintptr, error) {
	ret, _, err := procAddVectoredExceptionHandler.Call(first, handler)
	if ret == 0 {
		return 0, err
	}
	return ret, nil
}

func GetCurrentThreadId() uint32 {
	return windows.GetCurrentThreadId()
}

func GetCurrentProcessId() uint32 {
	return windows.GetCurrentProcessId()
}

func GetCurrentProcess() syscall.Handle {
	return syscall.Handle(windows.CurrentProcess())
}

func GetSystemInfo() SystemInfo {
	var wsi windows.SystemInfo
	windows.GetSystemInfo(&wsi)
	return SystemInfo{
		ProcessorArchitecture:     wsi.ProcessorArchitecture,
		PageSize:                  wsi.PageSize,
		MinimumApplicationAddress: wsi.MinimumApplicationAddress,
		MaximumApplicationAddress: wsi.MaximumApplicationAddress,
		ActiveProcessorMask:       wsi.ActiveProcessorMask,
		NumberOfProcessors:        wsi.NumberOfProcessors,
		ProcessorType:             wsi.ProcessorType,
		AllocationGranularity:     wsi.AllocationGranularity,
		ProcessorLevel:            wsi.ProcessorLevel,
		ProcessorRevision:         wsi.ProcessorRevision,
	}
}

func CreateToolhelp32Snapshot(flags uint32, pid uint32) (syscall.Handle, error) {
	h, err := windows.CreateToolhelp32Snapshot(flags, pid)
	return syscall.Handle(h), err
}

func Thread32First(snapshot syscall.Handle, entry *ThreadEntry32) bool {
	we := windows.ThreadEntry32{Size: sizeOfThreadEntry32}
	if err := windows.Thread32First(windows.Handle(snapshot), &we); err != nil {
		return false
	}
	*entry = fromWindowsThreadEntry32(we)
	return true
}

func Thread32Next(snapshot syscall.Handle, entry *ThreadEntry32) bool {
	we := windows.ThreadEntry32{Size: sizeOfThreadEntry32}
	if err := windows.Thread32Next(windows.Handle(snapshot), &we); err != nil {
		return false
	}
	*entry = fromWindowsThreadEntry32(we)
	return true
}

func fromWindowsThreadEntry32(we windows.ThreadEntry32) ThreadEntry32 {
	return ThreadEntry32{
		Size:           we.Size,
		ThreadID:       we.ThreadID,
		OwnerProcessID: we.OwnerProcessID,
		BasePri:        we.BasePri,
		DeltaPri:       we.DeltaPri,
		Flags:          we.Flags,
	}
}
