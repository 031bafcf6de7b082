//go:build windows

package patch

import (
	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/proc"
	"github.com/andreievg/dethook/veh"
)

// Int3 redirects by overwriting only the target's first byte with an
// INT3 opcode and registering with the process-wide VEH dispatcher
// (C7) so the resulting breakpoint exception redirects execution to
// hookFn. Grounded on castaneai-hinako's single-byte-overwrite
// technique, generalized behind the same Detour relocate/trampoline
// machinery Detour and Dr use so the hook function gets a working
// GetTrampoline regardless of which redirect technique installed it.
type Int3 struct {
	*Detour
}

const int3Opcode = 0xCC

// NewInt3 prepares an INT3 hook from target to hookFn against process.
func NewInt3(process *proc.Process, target, hookFn uintptr) *Int3 {
	d := NewDetour(process, target, hookFn)
	d.strategy = &int3Strategy{}
	return &Int3{Detour: d}
}

// Take transfers ownership of the installed hook to a newly returned
// Int3, leaving this one inert. Returns ErrAlreadyTaken if called twice.
func (i *Int3) Take() (*Int3, error) {
	moved, err := i.Detour.Take()
	if err != nil {
		return nil, err
	}
	return &Int3{Detour: moved}, nil
}

type int3Strategy struct{}

func (s *int3Strategy) patchSize(d *Detour) int { return 1 }

// minRelocLen still relocates a full instruction, not just the single
// overwritten byte: the trampoline's continuation must resume at a
// clean instruction boundary, and Relocate never splits one.
func (s *int3Strategy) minRelocLen(d *Detour) int { return 1 }

func (s *int3Strategy) canHookChain() bool { return false }

func (s *int3Strategy) writePatch(d *Detour, callingTID uint32) error {
	if err := veh.Register(); err != nil {
		return err
	}
	if err := veh.Insert(d.target, d); err != nil {
		return err
	}
	if err := d.process.WriteAt(d.target, []byte{int3Opcode}); err != nil {
		veh.Remove(d.target)
		return err
	}
	return nil
}

func (s *int3Strategy) removePatch(d *Detour, callingTID uint32) error {
	if len(d.orig) == 0 {
		veh.Remove(d.target)
		return herr.ErrIOFailed
	}
	if err := d.process.WriteAt(d.target, d.orig[:1]); err != nil {
		return err
	}
	veh.Remove(d.target)
	return nil
}
