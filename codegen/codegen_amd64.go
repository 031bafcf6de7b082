//go:build amd64

package codegen

import (
	"encoding/binary"
	"math"
)

// Sizes of the amd64-only forms: the indirect-slot jump/call (needed
// because x64 has no direct absolute jump) and the 14-byte PUSH+MOV+RET
// absolute form, which reaches any address without an auxiliary slot.
const (
	SizeIndirectJmp  = 6
	SizeIndirectCall = 6
	SizePushMovRet64 = 14
)

// reachLimit is the largest displacement a rel32 JMP/CALL can encode
// once the 5 bytes of the instruction itself are accounted for:
// |d| <= 0x7FFFFFFF - 6.
const reachLimit = math.MaxInt32 - 6

// Reach reports whether a rel32 JMP/CALL at src can reach dst directly.
func Reach(src, dst uintptr) bool {
	delta := int64(dst) - int64(src) - 5
	return delta >= -reachLimit && delta <= reachLimit
}

// IndirectJmp emits "JMP [RIP+disp32]" (FF 25 <disp32>) at src, where
// slot is a writable/executable 8-byte cell holding the absolute target.
func IndirectJmp(src, slot uintptr) []byte {
	return indirectForm(0x25, src, slot)
}

// IndirectCall emits "CALL [RIP+disp32]" (FF 15 <disp32>) at src.
func IndirectCall(src, slot uintptr) []byte {
	return indirectForm(0x15, src, slot)
}

func indirectForm(modrm byte, src, slot uintptr) []byte {
	buf := make([]byte, 6)
	buf[0] = 0xFF
	buf[1] = modrm
	disp := int32(int64(slot) - int64(src) - 6)
	binary.LittleEndian.PutUint32(buf[2:], uint32(disp))
	return buf
}

// PushMovRet64 emits "PUSH lo32; MOV [RSP+4], hi32; RET"
// (68 <lo32> C7 44 24 04 <hi32> C3), usable for any absolute 64-bit
// target without an auxiliary allocation.
func PushMovRet64(dst uintptr) []byte {
	buf := make([]byte, SizePushMovRet64)
	buf[0] = 0x68
	binary.LittleEndian.PutUint32(buf[1:5], uint32(uint64(dst)))
	buf[5], buf[6], buf[7], buf[8] = 0xC7, 0x44, 0x24, 0x04
	binary.LittleEndian.PutUint32(buf[9:13], uint32(uint64(dst)>>32))
	buf[13] = 0xC3
	return buf
}
