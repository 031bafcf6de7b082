//go:build windows && 386

package patch

import (
	"github.com/andreievg/dethook/alloc"
	"github.com/andreievg/dethook/codegen"
	"github.com/andreievg/dethook/proc"
)

// defaultJumpSize is always a 5-byte rel32 on x86: every address is
// within reach of every other.
func defaultJumpSize(target, hookFn uintptr) int {
	return codegen.SizeRelJmp32
}

// writeDefaultJump always emits a direct rel32 JMP on x86; allocator and
// process are accepted only so the signature matches the amd64 build.
// The returned slot is always 0: x86 never needs an auxiliary indirect
// cell to reach any address.
func writeDefaultJump(process *proc.Process, allocator *alloc.NearPageAllocator, src, dst uintptr) ([]byte, uintptr, error) {
	return codegen.RelJmp32(src, dst), 0, nil
}
