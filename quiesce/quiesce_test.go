//go:build windows

package quiesce

import "testing"

func TestSuspensionCloseIdempotent(t *testing.T) {
	s := &Suspension{}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestVerifyNotExecutingInEmpty(t *testing.T) {
	s := &Suspension{}
	if err := s.VerifyNotExecutingIn(0x1000, 16); err != nil {
		t.Fatalf("VerifyNotExecutingIn with no threads: %v", err)
	}
}
