//go:build amd64

package codegen

import (
	"reflect"
	"testing"
)

func TestIndirectJmp(t *testing.T) {
	got := IndirectJmp(0, 0x12345678)
	want := []byte{0xFF, 0x25, 0x72, 0x56, 0x34, 0x12}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IndirectJmp(0, 0x12345678) = %v, want %v", got, want)
	}
}

func TestIndirectCall(t *testing.T) {
	got := IndirectCall(0, 0x12345678)
	want := []byte{0xFF, 0x15, 0x72, 0x56, 0x34, 0x12}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("IndirectCall(0, 0x12345678) = %v, want %v", got, want)
	}
}

func TestPushMovRet64(t *testing.T) {
	got := PushMovRet64(0x1122334455667788)
	want := []byte{
		0x68, 0x88, 0x77, 0x66, 0x55,
		0xC7, 0x44, 0x24, 0x04, 0x44, 0x33, 0x22, 0x11,
		0xC3,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PushMovRet64(...) = %v, want %v", got, want)
	}
}

func TestReach(t *testing.T) {
	if !Reach(0x1000, 0x2000) {
		t.Errorf("expected a nearby target to be reachable")
	}
	if Reach(0x1000, 0x1000+1<<32) {
		t.Errorf("expected a 4GiB-distant target to be unreachable")
	}
}

func TestReachBoundary(t *testing.T) {
	src := uintptr(0x1000)
	dst := src + reachLimit + 5
	if !Reach(src, dst) {
		t.Errorf("expected the maximum reachable displacement to be reachable")
	}
	if Reach(src, dst+1) {
		t.Errorf("expected one byte beyond the maximum displacement to be unreachable")
	}
}
