//go:build windows && 386

package alloc

import (
	"github.com/andreievg/dethook/internal/winapi"
	"github.com/andreievg/dethook/proc"
)

// allocateNear skips the directional scan entirely on x86: every
// address is within reach of every other address via a rel32 form, so
// any allocation satisfies the reach constraint trivially.
func allocateNear(process *proc.Process, _ uintptr, size uintptr) (uintptr, error) {
	return process.Alloc(0, size, uint32(winapi.PageExecuteReadWrite))
}
