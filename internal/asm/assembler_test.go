package asm

import (
	"bytes"
	"testing"
)

func assembleOrFatal(t *testing.T, src string, opts Options) []byte {
	t.Helper()
	a := New(opts)
	out, err := a.Assemble(src)
	if err != nil {
		t.Fatalf("Assemble(%q) error: %v", src, err)
	}
	return out
}

func TestAssembleSimpleProgram(t *testing.T) {
	src := "MVI A, 0x3e\nMVI B, 6\nADD B\nHLT\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{0x3e, 0x3e, 0x06, 0x06, 0x80, 0x76}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAssembleLabelAndJump(t *testing.T) {
	src := "START: NOP\nJMP START\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{0x00, 0xc3, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAssembleEquAndOrg(t *testing.T) {
	src := "VAL: EQU 5\nORG 0x10\nMVI A, VAL\n"
	got := assembleOrFatal(t, src, Options{})
	if len(got) != 0x12 {
		t.Fatalf("len(got) = %#x, want 0x12", len(got))
	}
	if got[0x10] != 0x3e || got[0x11] != 0x05 {
		t.Errorf("got[0x10:] = % x, want 3e 05", got[0x10:])
	}
}

func TestAssembleMacro(t *testing.T) {
	src := "DOUBLE: MACRO\nADD A\nENDM\nDOUBLE\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{0x87}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAssembleDBStringAndBytes(t *testing.T) {
	src := "DB 'hi', 0\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{'h', 'i', 0}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAssembleDW(t *testing.T) {
	src := "DW 0x1234\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{0x34, 0x12}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAssembleDS(t *testing.T) {
	src := "DS 3\nHLT\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{0, 0, 0, 0x76}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestAssembleAppendHLT(t *testing.T) {
	got := assembleOrFatal(t, "NOP\n", Options{AppendHLT: true})
	want := []byte{0x00, 0x76}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestLabelRedefinitionRejected(t *testing.T) {
	src := "START: NOP\nSTART: NOP\n"
	a := New(Options{})
	if _, err := a.Assemble(src); err == nil {
		t.Fatal("expected error for redefined address label")
	}
}

func TestSetLabelRedefinitionAllowed(t *testing.T) {
	src := "V: SET 1\nV: SET 2\n"
	a := New(Options{})
	if _, err := a.Assemble(src); err != nil {
		t.Fatalf("expected SET redefinition to be allowed: %v", err)
	}
}

func TestUnmatchedEndifRejected(t *testing.T) {
	a := New(Options{})
	if _, err := a.Assemble("ENDIF\n"); err == nil {
		t.Fatal("expected error for ENDIF without IF")
	}
}

func TestUnterminatedMacroRejected(t *testing.T) {
	a := New(Options{})
	if _, err := a.Assemble("MAC: MACRO\nNOP\n"); err == nil {
		t.Fatal("expected error for MACRO without ENDM")
	}
}

func TestIfFalseSkipsLine(t *testing.T) {
	src := "IF 0\nHLT\nENDIF\nNOP\n"
	got := assembleOrFatal(t, src, Options{})
	want := []byte{0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestMovAsHaltRejectedByAssembler(t *testing.T) {
	a := New(Options{})
	if _, err := a.Assemble("MOV M, M\n"); err == nil {
		t.Fatal("expected MOV M, M to be rejected")
	}
}
