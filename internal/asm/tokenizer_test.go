package asm

import "testing"

func TestTokenizeEmptyLine(t *testing.T) {
	lm, err := Tokenize("", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if lm != nil {
		t.Fatalf("expected nil LineMeta for empty line, got %+v", lm)
	}
}

func TestTokenizeMov(t *testing.T) {
	lm, err := Tokenize("mov b, c", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if lm.Inst != "MOV" {
		t.Errorf("Inst = %q, want MOV", lm.Inst)
	}
	if len(lm.Args) != 2 || lm.Args[0] != "B" || lm.Args[1] != "C" {
		t.Errorf("Args = %v, want [B C]", lm.Args)
	}
}

func TestTokenizeLabelAndCommentWithLine(t *testing.T) {
	lm, err := Tokenize("START: MOV A, B ; copy B into A", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if !lm.HasLabel || lm.Label != "START" {
		t.Errorf("Label = %q (has=%v), want START", lm.Label, lm.HasLabel)
	}
	if lm.Inst != "MOV" {
		t.Errorf("Inst = %q, want MOV", lm.Inst)
	}
	if !lm.HasComment || lm.Comment != "copy B into A" {
		t.Errorf("Comment = %q, want %q", lm.Comment, "copy B into A")
	}
}

func TestTokenizeLabelAndCommentOnly(t *testing.T) {
	lm, err := Tokenize("LOOP: ; just a label", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if !lm.LabelOnly || lm.Label != "LOOP" {
		t.Errorf("expected label-only LOOP, got %+v", lm)
	}
}

func TestTokenizeStringArg(t *testing.T) {
	lm, err := Tokenize("DB 'hello'", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(lm.Args) != 1 || lm.Args[0] != "'hello'" {
		t.Errorf("Args = %v, want ['hello']", lm.Args)
	}
}

func TestTokenizeStringArgWithComma(t *testing.T) {
	lm, err := Tokenize("DB 'a,b', 1", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(lm.Args) != 2 || lm.Args[0] != "'a,b'" || lm.Args[1] != "1" {
		t.Errorf("Args = %v, want ['a,b' 1]", lm.Args)
	}
}

func TestTokenizeCaseFolding(t *testing.T) {
	lm, err := Tokenize("start: mov a, b", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if lm.Label != "START" || lm.Inst != "MOV" || lm.Args[0] != "A" || lm.Args[1] != "B" {
		t.Errorf("expected uppercased label/inst/args, got %+v", lm)
	}
}

func TestTokenizeCasePreservedInStrings(t *testing.T) {
	lm, err := Tokenize("DB 'Hello'", 1)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if lm.Args[0] != "'Hello'" {
		t.Errorf("Args = %v, want case preserved inside quotes", lm.Args)
	}
}

func TestTokenizeInvalidLabel(t *testing.T) {
	if _, err := Tokenize("1START: NOP", 1); err == nil {
		t.Fatal("expected error for label starting with a digit")
	}
}
