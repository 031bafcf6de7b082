//go:build windows && 386

package reloc

import "github.com/andreievg/dethook/codegen"

// archMode is the x86asm decode width for 386: 32.
const archMode = 32

// emitJumpOrCall always uses the direct rel32 form on x86: every address
// in a 32-bit address space is within rel32 reach of every other, so
// there is no indirect-slot fallback to fall back to. The returned slot
// is always 0.
func emitJumpOrCall(r *Relocator, from uintptr, target uintptr, isCall bool) ([]byte, uintptr, error) {
	if isCall {
		return codegen.RelCall32(from, target), 0, nil
	}
	return codegen.RelJmp32(from, target), 0, nil
}
