package codegen

import (
	"reflect"
	"testing"
)

func TestRelJmp32(t *testing.T) {
	got := RelJmp32(100, 150)
	want := []byte{0xE9, 45, 0, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RelJmp32(100, 150) = %v, want %v", got, want)
	}
}

func TestRelCall32(t *testing.T) {
	got := RelCall32(1000, 900)
	off := int32(900 - 1000 - 5)
	want := []byte{0xE8, byte(off), 0xFF, 0xFF, 0xFF}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RelCall32(1000, 900) = %v, want %v", got, want)
	}
}

func TestPushRet32(t *testing.T) {
	got := PushRet32(0x12345678)
	want := []byte{0x68, 0x78, 0x56, 0x34, 0x12, 0xC3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PushRet32(0x12345678) = %v, want %v", got, want)
	}
}

func TestPushRet32PanicsOnOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for a target that does not fit in 32 bits")
		}
	}()
	PushRet32(uintptr(0x1_0000_0001))
}

func TestFits32(t *testing.T) {
	cases := []struct {
		addr uintptr
		want bool
	}{
		{0, true},
		{0xFFFFFFFF, true},
		{0x100000000, false},
	}
	for _, c := range cases {
		if got := Fits32(c.addr); got != c.want {
			t.Errorf("Fits32(%#x) = %v, want %v", c.addr, got, c.want)
		}
	}
}
