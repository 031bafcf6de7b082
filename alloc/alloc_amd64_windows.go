//go:build windows && amd64

package alloc

import (
	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

// allocateNear performs a strict two-pass search: scan every page from
// anchor's page forward to the window edge first, and only once that
// pass is exhausted scan backward. The candidate order itself is pure
// arithmetic (CandidateAddresses, tested independently of Windows);
// this function just drives a live allocation attempt over it.
func allocateNear(process *proc.Process, anchor uintptr, size uintptr) (uintptr, error) {
	info := winapi.GetSystemInfo()
	pageSize := uintptr(info.PageSize)
	if pageSize == 0 {
		pageSize = 0x1000
	}

	startPage, minAddr, maxAddr := SearchBounds(anchor, pageSize, searchWindow, info.MinimumApplicationAddress, info.MaximumApplicationAddress)

	const protect = uint32(winapi.PageExecuteReadWrite)

	for _, base := range CandidateAddresses(startPage, minAddr, maxAddr, pageSize) {
		if addr, err := process.Alloc(base, size, protect); err == nil && addr != 0 {
			return addr, nil
		}
	}

	return 0, herr.ErrNoReachablePage
}
