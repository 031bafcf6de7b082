//go:build windows

package reloc

import (
	"github.com/andreievg/dethook/alloc"
	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/proc"
)

// mode reports the x86asm decode width for the running architecture.
// Relocation always targets the calling process's own bitness: the
// engine never relocates a remote process's code of a different
// arch-ness than itself.
const mode = archMode

// overreadSlack covers the largest instruction-fixup growth a single
// decoded instruction can need (amd64's 14-byte PUSH/MOV/RET absolute
// form) plus a little headroom, so Relocate never runs out of
// already-read bytes mid-decode.
const overreadSlack = 14 + 16

// Relocator copies a target's prologue to a trampoline, decoding each
// instruction and fixing up any IP-relative JMP/CALL so it still
// reaches its original destination from the trampoline's address
// instead of the target's.
type Relocator struct {
	process   *proc.Process
	allocator *alloc.NearPageAllocator
}

// New returns a relocator bound to process, using allocator to satisfy
// any indirect-slot fallback an emitted JMP/CALL needs.
func New(process *proc.Process, allocator *alloc.NearPageAllocator) *Relocator {
	return &Relocator{process: process, allocator: allocator}
}

// Relocate reads at least minLen bytes of the target's prologue,
// decodes whole instructions until it has covered minLen bytes (never
// splitting an instruction), and writes the relocated form to dst.
// It returns the number of original bytes consumed (the patch size a
// caller must overwrite), the number of bytes written at dst, and the
// address of every auxiliary indirect-slot cell a fixup had to allocate
// along the way (nil if every fixup fit in a direct rel32 form). The
// caller owns those cells for as long as the relocated code in dst can
// run and must free them itself once dst is no longer reachable.
func (r *Relocator) Relocate(target uintptr, minLen int, dst uintptr) (consumed int, emitted int, auxSlots []uintptr, err error) {
	// Over-read: the last instruction decoded may extend past minLen, and
	// a JMP/CALL fixup can grow an instruction, so read generously.
	raw, err := r.process.ReadAt(target, minLen+overreadSlack)
	if err != nil {
		return 0, 0, nil, err
	}

	out := make([]byte, 0, len(raw)+overreadSlack)

	for consumed < minLen {
		if consumed >= len(raw) {
			return 0, 0, auxSlots, herr.ErrDisassemblyFailed
		}
		inst, derr := Decode(raw[consumed:], mode)
		if derr != nil {
			return 0, 0, auxSlots, derr
		}

		srcAddr := target + uintptr(consumed)
		dstAddr := dst + uintptr(len(out))

		switch {
		case inst.Kind == KindJump && inst.Operand == OperandRelImm:
			absTarget := uintptr(int64(srcAddr) + int64(inst.Len) + inst.Rel)
			bytes, slot, emitErr := emitJumpOrCall(r, dstAddr, absTarget, false)
			if emitErr != nil {
				return 0, 0, auxSlots, emitErr
			}
			if slot != 0 {
				auxSlots = append(auxSlots, slot)
			}
			out = append(out, bytes...)

		case inst.Kind == KindCall && inst.Operand == OperandRelImm:
			absTarget := uintptr(int64(srcAddr) + int64(inst.Len) + inst.Rel)
			bytes, slot, emitErr := emitJumpOrCall(r, dstAddr, absTarget, true)
			if emitErr != nil {
				return 0, 0, auxSlots, emitErr
			}
			if slot != 0 {
				auxSlots = append(auxSlots, slot)
			}
			out = append(out, bytes...)

		case inst.Kind == KindJump && inst.Operand == OperandRIPIndirect:
			cellAddr := srcAddr + uintptr(inst.Len) + uintptr(inst.Disp)
			cell, rerr := r.process.ReadAt(cellAddr, 8)
			if rerr != nil {
				return 0, 0, auxSlots, rerr
			}
			absTarget := uintptr(decodeUint64(cell))
			bytes, slot, emitErr := emitJumpOrCall(r, dstAddr, absTarget, false)
			if emitErr != nil {
				return 0, 0, auxSlots, emitErr
			}
			if slot != 0 {
				auxSlots = append(auxSlots, slot)
			}
			out = append(out, bytes...)

		case inst.Kind == KindCall && inst.Operand == OperandRIPIndirect:
			cellAddr := srcAddr + uintptr(inst.Len) + uintptr(inst.Disp)
			cell, rerr := r.process.ReadAt(cellAddr, 8)
			if rerr != nil {
				return 0, 0, auxSlots, rerr
			}
			absTarget := uintptr(decodeUint64(cell))
			bytes, slot, emitErr := emitJumpOrCall(r, dstAddr, absTarget, true)
			if emitErr != nil {
				return 0, 0, auxSlots, emitErr
			}
			if slot != 0 {
				auxSlots = append(auxSlots, slot)
			}
			out = append(out, bytes...)

		default:
			out = append(out, inst.Raw...)
		}

		consumed += inst.Len
	}

	if err := r.process.WriteAt(dst, out); err != nil {
		return 0, 0, auxSlots, err
	}
	return consumed, len(out), auxSlots, nil
}

// decodeUint64 reads a little-endian 8-byte pointer value, the form an
// indirect JMP/CALL's referenced cell stores its absolute target in.
func decodeUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
