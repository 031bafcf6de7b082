//go:build windows

// Package alloc implements the trampoline allocator (C2): given an
// anchor address, reserve an executable page whose start lies within
// ±2 GiB of the anchor, scanning forward first and backward only once
// the forward pass is exhausted.
package alloc

import "github.com/andreievg/dethook/proc"

// searchWindow is the ±2 GiB (minus slack) reach budget a rel32
// JMP/CALL or a FF25 indirect-slot jump needs from its anchor.
const searchWindow = 0x7FFFFF00

// NearPageAllocator allocates executable pages within reach of a given
// anchor address against a specific process, local or remote.
type NearPageAllocator struct {
	process *proc.Process
}

// New returns an allocator bound to process.
func New(process *proc.Process) *NearPageAllocator {
	return &NearPageAllocator{process: process}
}

// AllocateNear reserves and commits an executable page of at least size
// bytes whose address is reachable from anchor via a rel32 displacement,
// per the directional scan C2 mandates.
func (a *NearPageAllocator) AllocateNear(anchor uintptr, size uintptr) (uintptr, error) {
	return allocateNear(a.process, anchor, size)
}

// Free releases a page previously returned by AllocateNear.
func (a *NearPageAllocator) Free(addr uintptr) error {
	return a.process.Free(addr)
}
