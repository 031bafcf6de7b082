package alloc

// SearchBounds computes the forward/backward scan window around an
// anchor address: the page containing anchor, and the lowest/highest
// addresses within reach of it (clamped to the process's allocatable
// address-space limits), which CandidateAddresses treats as exclusive
// bounds; they are not rounded to page boundaries. Pure address arithmetic, so it
// needs no OS access and runs on any GOOS.
func SearchBounds(anchor, pageSize, window, minAppAddr, maxAppAddr uintptr) (startPage, minAddr, maxAddr uintptr) {
	startPage = anchor &^ (pageSize - 1)

	minAddr = minAppAddr
	if startPage > window {
		if cand := startPage - window; cand > minAddr {
			minAddr = cand
		}
	}

	maxAddr = maxAppAddr
	if cand := startPage + window; cand < maxAddr {
		maxAddr = cand
	}

	return startPage, minAddr, maxAddr
}

// CandidateAddresses returns, in the order an allocator must try them,
// every page-aligned address a trampoline allocation should probe:
// first every page from startPage forward to maxAddr (exclusive), then
// every page from startPage backward to minAddr (exclusive). Scanning
// forward first avoids handing out a trampoline below the anchor to
// callers (some third-party code fails to sign-extend a negative
// disp32 when resolving JMP [RIP+d], crashing if the slot lies below
// the reader's RIP); backward addresses are only ever tried once the
// entire forward pass has failed. Pure arithmetic — no allocation is
// actually attempted here, which is what makes the search order
// testable without an OS.
func CandidateAddresses(startPage, minAddr, maxAddr, pageSize uintptr) []uintptr {
	var out []uintptr
	for base := startPage; base < maxAddr; base += pageSize {
		out = append(out, base)
	}
	for base := startPage; base > minAddr+pageSize; base -= pageSize {
		out = append(out, base-pageSize)
	}
	return out
}
