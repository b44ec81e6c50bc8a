package meta

import "testing"

func TestAllRealOpsPopulated(t *testing.T) {
	for i := 0; i < RealOps; i++ {
		entry := Table[i]
		if entry.Op == "" {
			t.Errorf("opcode %#02x: mnemonic not set", i)
		}
		if entry.Cycles == 0 {
			t.Errorf("opcode %#02x (%s): cycles not set", i, entry.Op)
		}
	}
}

func TestWidth(t *testing.T) {
	cases := []struct {
		opcode byte
		want   int
	}{
		{0x00, 1}, // NOP
		{0x06, 2}, // MVI B
		{0x01, 3}, // LXI B
		{0x09, 1}, // DAD B (no immediate; the register pair is in the opcode)
		{0xc3, 3}, // JMP
	}
	for _, c := range cases {
		if got := Find(c.opcode).Width(); got != c.want {
			t.Errorf("Find(%#02x).Width() = %d, want %d", c.opcode, got, c.want)
		}
	}
}

func TestFromArgsAndSPPSW(t *testing.T) {
	cases := []struct {
		inst       string
		arg0, arg1 uint16
		sp, psw    bool
		want       int
	}{
		{"MOV", 0, 1, false, false, 0x41},  // MOV B, C
		{"ADD", 7, 0, false, false, 0x87},  // ADD A
		{"MVI", 7, 0, false, false, 0x3e},  // MVI A
		{"LXI", 0, 0, false, false, 0x01},  // LXI B
		{"LXI", 0, 0, true, false, 0x31},   // LXI SP
		{"DAD", 4, 0, false, false, 0x29},  // DAD H
		{"INX", 0, 0, true, false, 0x33},   // INX SP
		{"PUSH", 0, 0, false, true, 0xf5},  // PUSH PSW
		{"POP", 2, 0, false, false, 0xd1},  // POP D
		{"LDAX", 0, 0, false, false, 0x0a}, // LDAX B
		{"STAX", 2, 0, false, false, 0x12}, // STAX D
		{"RST", 3, 0, false, false, 0xdf},  // RST 3
		{"NOP", 0, 0, false, false, 0x00},
	}
	for _, c := range cases {
		got, err := FromArgsAndSPPSW(c.inst, c.arg0, c.arg1, c.sp, c.psw)
		if err != nil {
			t.Errorf("FromArgsAndSPPSW(%q) error: %v", c.inst, err)
			continue
		}
		if got != c.want {
			t.Errorf("FromArgsAndSPPSW(%q, %d, %d, %v, %v) = %#02x, want %#02x",
				c.inst, c.arg0, c.arg1, c.sp, c.psw, got, c.want)
		}
	}
}

func TestMovAsHaltRejected(t *testing.T) {
	if _, err := FromArgsAndSPPSW("MOV", 6, 6, false, false); err == nil {
		t.Fatal("expected error for MOV M, M")
	}
}

func TestLdaxRejectsNonBD(t *testing.T) {
	if _, err := FromArgsAndSPPSW("LDAX", 4, 0, false, false); err == nil {
		t.Fatal("expected error for LDAX H")
	}
}

func TestNoSuchInstruction(t *testing.T) {
	if _, err := FromArgsAndSPPSW("FROB", 0, 0, false, false); err == nil {
		t.Fatal("expected error for unknown mnemonic")
	}
}
