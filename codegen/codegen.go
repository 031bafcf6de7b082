// Package codegen emits fixed-form jump/call byte sequences: the rel32
// JMP/CALL and indirect-slot JMP/CALL through a RIP-relative cell that
// the detour engine writes into a target's prologue or its trampoline,
// plus the PUSH/RET absolute-jump forms. Every emitting function is
// pure: given the addresses involved it returns position-specific bytes
// and never touches memory itself.
package codegen

import "encoding/binary"

// Sizes of the byte forms this package emits, exported so callers can
// size scratch buffers and patch windows without re-deriving them.
const (
	SizeRelJmp32  = 5
	SizeRelCall32 = 5
	SizePushRet32 = 6
)

// RelJmp32 emits a 5-byte rel32 JMP at src targeting dst: E9 <disp32>.
func RelJmp32(src, dst uintptr) []byte {
	return relForm(0xE9, src, dst)
}

// RelCall32 emits a 5-byte rel32 CALL at src targeting dst: E8 <disp32>.
func RelCall32(src, dst uintptr) []byte {
	return relForm(0xE8, src, dst)
}

func relForm(opcode byte, src, dst uintptr) []byte {
	buf := make([]byte, 5)
	buf[0] = opcode
	disp := int32(int64(dst) - int64(src) - 5)
	binary.LittleEndian.PutUint32(buf[1:], uint32(disp))
	return buf
}

// PushRet32 emits "PUSH imm32; RET" (68 <imm32> C3), usable only when
// dst fits in 32 bits. Callers must check Fits32(dst) first; PushRet32
// panics otherwise since that is a programmer error, not a runtime
// condition a caller recovers from.
func PushRet32(dst uintptr) []byte {
	if !Fits32(dst) {
		panic("codegen: PushRet32 target does not fit in 32 bits")
	}
	buf := make([]byte, SizePushRet32)
	buf[0] = 0x68
	binary.LittleEndian.PutUint32(buf[1:5], uint32(dst))
	buf[5] = 0xC3
	return buf
}

// Fits32 reports whether dst fits losslessly in an unsigned 32-bit
// immediate, the precondition for PushRet32.
func Fits32(dst uintptr) bool {
	return uintptr(uint32(dst)) == dst
}
