package alloc

import "testing"

func TestCandidateAddressesScansForwardBeforeBackward(t *testing.T) {
	const pageSize = 0x1000
	anchor := uintptr(0x1_0000_0000)
	startPage, minAddr, maxAddr := SearchBounds(anchor, pageSize, 0x7FFFFF00, 0, 0xFFFF_FFFF_FFFF)

	candidates := CandidateAddresses(startPage, minAddr, maxAddr, pageSize)
	if len(candidates) == 0 {
		t.Fatal("CandidateAddresses returned no candidates")
	}

	if candidates[0] != startPage {
		t.Fatalf("first candidate = %#x, want startPage %#x", candidates[0], startPage)
	}

	lastForward := -1
	for i, c := range candidates {
		if c < startPage {
			lastForward = i
			break
		}
	}
	if lastForward == -1 {
		t.Fatal("no backward candidates found")
	}

	for i := 0; i < lastForward; i++ {
		if candidates[i] < startPage {
			t.Fatalf("candidate %d = %#x lies below startPage %#x before the forward pass finished", i, candidates[i], startPage)
		}
	}
	for i := lastForward; i < len(candidates); i++ {
		if candidates[i] >= startPage {
			t.Fatalf("candidate %d = %#x lies at or above startPage %#x during the backward pass", i, candidates[i], startPage)
		}
	}
}

func TestCandidateAddressesForwardPassIsMonotonicallyIncreasing(t *testing.T) {
	const pageSize = 0x1000
	startPage := uintptr(0x2000_0000)
	maxAddr := startPage + 4*pageSize
	candidates := CandidateAddresses(startPage, 0, maxAddr, pageSize)

	var forward []uintptr
	for _, c := range candidates {
		if c >= startPage {
			forward = append(forward, c)
		} else {
			break
		}
	}

	for i := 1; i < len(forward); i++ {
		if forward[i] <= forward[i-1] {
			t.Fatalf("forward pass not strictly increasing at %d: %#x then %#x", i, forward[i-1], forward[i])
		}
	}
	want := (maxAddr - startPage) / pageSize
	if uintptr(len(forward)) != want {
		t.Fatalf("forward pass produced %d candidates, want %d", len(forward), want)
	}
}

func TestCandidateAddressesBackwardPassStopsAtMinAddr(t *testing.T) {
	const pageSize = 0x1000
	startPage := uintptr(0x2000_0000)
	minAddr := startPage - 3*pageSize
	candidates := CandidateAddresses(startPage, minAddr, startPage, pageSize)

	for _, c := range candidates {
		if c <= minAddr {
			t.Fatalf("candidate %#x at or below minAddr %#x", c, minAddr)
		}
	}

	want := (startPage - minAddr) / pageSize
	if uintptr(len(candidates)) != want {
		t.Fatalf("got %d candidates, want %d", len(candidates), want)
	}
}

func TestSearchBoundsClampsToApplicationAddressLimits(t *testing.T) {
	const pageSize = 0x1000
	anchor := uintptr(0x1000)
	startPage, minAddr, maxAddr := SearchBounds(anchor, pageSize, 0x7FFFFF00, 0x2000, 0xFFFF)

	if startPage != 0 {
		t.Fatalf("startPage = %#x, want 0", startPage)
	}
	if minAddr != 0x2000 {
		t.Fatalf("minAddr = %#x, want the application minimum 0x2000 (window would go negative)", minAddr)
	}
	if maxAddr != 0xFFFF {
		t.Fatalf("maxAddr = %#x, want the application maximum 0xFFFF (window exceeds it)", maxAddr)
	}
}
