//go:build windows && amd64

package patch

import (
	"encoding/binary"

	"github.com/andreievg/dethook/alloc"
	"github.com/andreievg/dethook/codegen"
	"github.com/andreievg/dethook/proc"
)

// defaultJumpSize reports how many bytes writeDefaultJump will need:
// a 5-byte rel32 when hookFn is within reach, otherwise the 6-byte
// indirect-slot form. The 14-byte PUSH/MOV/RET fallback is deliberately
// excluded from this automatic chain: GetPatchSize must stay in sync
// with the bytes actually overwritten, and growing to 14 bytes here
// without also growing the relocated prologue by the same amount would
// let the patch clobber unrelocated original instructions.
func defaultJumpSize(target, hookFn uintptr) int {
	if codegen.Reach(target, hookFn) {
		return codegen.SizeRelJmp32
	}
	return codegen.SizeIndirectJmp
}

// writeDefaultJump emits the bytes for a JMP from src to dst, using an
// indirect slot allocated near src when a direct rel32 cannot reach. The
// returned slot is the address of that auxiliary cell, or 0 if none was
// needed, so the caller can track and eventually free it.
func writeDefaultJump(process *proc.Process, allocator *alloc.NearPageAllocator, src, dst uintptr) ([]byte, uintptr, error) {
	if codegen.Reach(src, dst) {
		return codegen.RelJmp32(src, dst), 0, nil
	}

	slot, err := allocator.AllocateNear(src, 8)
	if err != nil {
		return nil, 0, err
	}
	cell := make([]byte, 8)
	binary.LittleEndian.PutUint64(cell, uint64(dst))
	if err := process.WriteAt(slot, cell); err != nil {
		allocator.Free(slot)
		return nil, 0, err
	}
	return codegen.IndirectJmp(src, slot), slot, nil
}
