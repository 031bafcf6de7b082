//go:build windows

package patch

import (
	"github.com/andreievg/dethook/herr"
	"github.com/andreievg/dethook/internal/winapi"
)

// drExecuteRW is the DR7 RW field value for an execute (instruction
// fetch) breakpoint; length is ignored by the CPU for execute
// breakpoints but Windows still expects 0 (byte length) encoded.
const drExecuteRW = 0

// acquireDrSlot returns the index of the first of DR0-DR3 where both
// the Dr7 local-enable bit is clear and the register itself is zero, or
// herr.ErrNoFreeDebugRegisters if no such slot exists: a slot is free
// only if neither condition shows another user of it.
func acquireDrSlot(ctx *winapi.Context) (int, error) {
	for i := 0; i < 4; i++ {
		if !ctx.DR7SlotEnabled(i) && ctx.DrSlot(i) == 0 {
			return i, nil
		}
	}
	return 0, herr.ErrNoFreeDebugRegisters
}

// writeDrContext arms slot to trap on execution of addr.
func writeDrContext(ctx *winapi.Context, slot int, addr uintptr) {
	ctx.SetDrSlot(slot, addr)
	ctx.SetDr7Slot(slot, true, drExecuteRW, 0)
}

// clearDrContext disarms slot.
func clearDrContext(ctx *winapi.Context, slot int) {
	ctx.SetDr7Slot(slot, false, drExecuteRW, 0)
	ctx.SetDrSlot(slot, 0)
}
