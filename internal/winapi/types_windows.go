//go:build windows

package winapi

// Win32 constants used by the proc, alloc, quiesce, and veh packages.
const (
	MemCommit  = 0x00001000
	MemReserve = 0x00002000
	MemRelease = 0x00008000

	PageExecuteReadWrite = 0x40
	PageExecuteRead      = 0x20
	PageReadWrite        = 0x04

	ThCS_SnapThread = 0x00000004

	ThreadSuspendResume  = 0x0002
	ThreadGetContext     = 0x0008
	ThreadSetContext     = 0x0010
	ThreadQueryInfo      = 0x0040
	ThreadAllAccess      = 0x001F03FF

	ProcessVMOperation = 0x0008
	ProcessVMRead      = 0x0010
	ProcessVMWrite     = 0x0020
	ProcessQueryInfo   = 0x0400
	ProcessAllAccess   = 0x001FFFFF

	ContextAMD64 = 0x00100000
	ContextI386  = 0x00010000

	ContextControl  = 0x00000001
	ContextInteger  = 0x00000002
	ContextSegments = 0x00000004
	ContextDebugReg = 0x00000010

	ContextAMD64Full  = ContextAMD64 | ContextControl | ContextInteger | ContextSegments
	ContextAMD64Debug = ContextAMD64 | ContextDebugReg
	ContextI386Debug  = ContextI386 | ContextDebugReg

	ExceptionBreakpoint          = 0x80000003
	ExceptionSingleStep          = 0x80000004
	ExceptionContinueExecution   = 0xFFFFFFFF
	ExceptionContinueSearch      = 0x00000000

	EFlagsResumeFlag = 1 << 16
)

// SystemInfo mirrors Win32's SYSTEM_INFO, used to derive the page size
// and usable address range when the near-page allocator scans outward
// from an anchor address.
type SystemInfo struct {
	ProcessorArchitecture     uint16
	Reserved                  uint16
	PageSize                  uint32
	MinimumApplicationAddress uintptr
	MaximumApplicationAddress uintptr
	ActiveProcessorMask       uintptr
	NumberOfProcessors        uint32
	ProcessorType             uint32
	AllocationGranularity     uint32
	ProcessorLevel            uint16
	ProcessorRevision         uint16
}

// ThreadEntry32 mirrors Win32's THREADENTRY32, the record
// CreateToolhelp32Snapshot + Thread32First/Next walk.
type ThreadEntry32 struct {
	Size           uint32
	usage          uint32
	ThreadID       uint32
	OwnerProcessID uint32
	BasePri        int32
	DeltaPri       int32
	Flags          uint32
}

const sizeOfThreadEntry32 = 28
