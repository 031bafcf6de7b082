//go:build 386

package codegen

// On x86-32 every address is within a 32-bit displacement of every
// other address, so a rel32 JMP/CALL always reaches and the directional
// near-page search in alloc is skipped entirely.
func Reach(src, dst uintptr) bool {
	return true
}
