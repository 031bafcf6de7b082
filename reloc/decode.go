// Package reloc implements the instruction relocator (C3): decoding a
// target's prologue and, for each instruction, either copying it
// verbatim or re-emitting it with a fixed-up absolute/rel-target when it
// is a rel8/rel16/rel32 JMP/CALL or a JMP/CALL [RIP+disp32]. The decode
// step (this file) is pure and OS-independent, grounded on
// k2io-hookingo's analysis()/ensureLength() use of
// golang.org/x/arch/x86/x86asm; the process-mutating Relocate step lives
// in relocate_windows.go since it reads/writes a live process.
package reloc

import (
	"github.com/andreievg/dethook/herr"
	"golang.org/x/arch/x86/x86asm"
)

// Kind classifies a decoded instruction's mnemonic for relocation
// purposes: only JMP and CALL ever need a fixup.
type Kind int

const (
	KindOther Kind = iota
	KindJump
	KindCall
)

// Operand classifies a JMP/CALL's operand: a relative immediate (rel8/
// rel16/rel32) or a RIP-relative indirect memory operand
// (JMP/CALL [RIP+disp32]) — the two forms that need a fixup once moved
// to a new address. Anything else (register-indirect, absolute far) is
// IP-independent and copied verbatim.
type Operand int

const (
	OperandOther Operand = iota
	OperandRelImm
	OperandRIPIndirect
)

// Instruction is the narrow view of a decoded instruction the
// relocator needs: its length, its control-transfer classification, and
// either the signed rel-immediate or the RIP-relative displacement.
type Instruction struct {
	Len     int
	Kind    Kind
	Operand Operand
	Rel     int64
	Disp    int64
	Raw     []byte
}

// Decode decodes a single instruction at the head of code. Rel and Disp
// are returned as raw signed displacements; the caller adds the
// instruction's real address and length to resolve them. mode is 32
// or 64, matching the target's bitness. A zero-length or failed decode
// is reported as herr.ErrDisassemblyFailed, signalling that the caller
// cannot safely relocate past this point.
func Decode(code []byte, mode int) (Instruction, error) {
	inst, err := x86asm.Decode(code, mode)
	if err != nil || inst.Len == 0 {
		return Instruction{}, herr.ErrDisassemblyFailed
	}

	out := Instruction{
		Len: inst.Len,
		Raw: append([]byte(nil), code[:inst.Len]...),
	}

	switch inst.Op {
	case x86asm.JMP:
		out.Kind = KindJump
	case x86asm.CALL:
		out.Kind = KindCall
	default:
		return out, nil
	}

	for _, a := range inst.Args {
		if a == nil {
			continue
		}
		switch arg := a.(type) {
		case x86asm.Rel:
			out.Operand = OperandRelImm
			out.Rel = int64(arg)
		case x86asm.Mem:
			// JMP/CALL [RIP+disp32]: base RIP, no index, no scale.
			// Recognized regardless of operand width since x86asm always
			// reports a 64-bit-wide Mem.Base == RIP on amd64.
			if arg.Base == x86asm.RIP && arg.Index == 0 && arg.Scale == 0 {
				out.Operand = OperandRIPIndirect
				out.Disp = int64(arg.Disp)
			}
		}
	}

	return out, nil
}
