package reloc

import "testing"

func TestDecode(t *testing.T) {
	cases := []struct {
		name    string
		code    []byte
		mode    int
		wantLen int
		wantOp  Kind
		wantRel int64
	}{
		{
			name:    "rel32 jmp",
			code:    []byte{0xE9, 0x05, 0x00, 0x00, 0x00, 0x90},
			mode:    64,
			wantLen: 5,
			wantOp:  KindJump,
			wantRel: 5,
		},
		{
			name:    "rel32 call",
			code:    []byte{0xE8, 0x0A, 0x00, 0x00, 0x00, 0x90},
			mode:    64,
			wantLen: 5,
			wantOp:  KindCall,
			wantRel: 10,
		},
		{
			name:    "rel8 jmp",
			code:    []byte{0xEB, 0x02, 0x90, 0x90},
			mode:    32,
			wantLen: 2,
			wantOp:  KindJump,
			wantRel: 2,
		},
		{
			name:    "nop is not a branch",
			code:    []byte{0x90},
			mode:    64,
			wantLen: 1,
			wantOp:  KindOther,
		},
		{
			name:    "push rbp",
			code:    []byte{0x55},
			mode:    64,
			wantLen: 1,
			wantOp:  KindOther,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst, err := Decode(tc.code, tc.mode)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if inst.Len != tc.wantLen {
				t.Errorf("Len = %d, want %d", inst.Len, tc.wantLen)
			}
			if inst.Kind != tc.wantOp {
				t.Errorf("Kind = %v, want %v", inst.Kind, tc.wantOp)
			}
			if tc.wantOp == KindJump || tc.wantOp == KindCall {
				if inst.Operand != OperandRelImm {
					t.Errorf("Operand = %v, want OperandRelImm", inst.Operand)
				}
				if inst.Rel != tc.wantRel {
					t.Errorf("Rel = %d, want %d", inst.Rel, tc.wantRel)
				}
			}
		})
	}
}

func TestDecodeRIPIndirectJump(t *testing.T) {
	// FF 25 00 00 00 00: JMP [RIP+0]
	code := []byte{0xFF, 0x25, 0x00, 0x00, 0x00, 0x00}
	inst, err := Decode(code, 64)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if inst.Kind != KindJump {
		t.Fatalf("Kind = %v, want KindJump", inst.Kind)
	}
	if inst.Operand != OperandRIPIndirect {
		t.Fatalf("Operand = %v, want OperandRIPIndirect", inst.Operand)
	}
	if inst.Disp != 0 {
		t.Errorf("Disp = %d, want 0", inst.Disp)
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	if _, err := Decode(nil, 64); err == nil {
		t.Fatal("Decode(nil) succeeded, want error")
	}
}
