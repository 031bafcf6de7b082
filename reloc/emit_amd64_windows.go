//go:build windows && amd64

package reloc

import "github.com/andreievg/dethook/codegen"

// archMode is the x86asm decode width for amd64: 64.
const archMode = 64

// emitJumpOrCall returns the bytes a JMP/CALL at from must be rewritten
// to in order to still reach target: a direct rel32 form when target is
// within ±2 GiB reach, otherwise a 6-byte indirect-slot form through an
// allocated pointer cell. The returned slot is that cell's address, or 0
// if none was allocated, so the caller can track and eventually free it.
func emitJumpOrCall(r *Relocator, from uintptr, target uintptr, isCall bool) ([]byte, uintptr, error) {
	if codegen.Reach(from, target) {
		if isCall {
			return codegen.RelCall32(from, target), 0, nil
		}
		return codegen.RelJmp32(from, target), 0, nil
	}

	slot, err := r.allocator.AllocateNear(from, 8)
	if err != nil {
		return nil, 0, err
	}
	if err := r.process.WriteAt(slot, encodeUint64(uint64(target))); err != nil {
		r.allocator.Free(slot)
		return nil, 0, err
	}

	if isCall {
		return codegen.IndirectCall(from, slot), slot, nil
	}
	return codegen.IndirectJmp(from, slot), slot, nil
}

func encodeUint64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}
