// Package disasm turns a byte image back into assembly text, sharing the
// opcode metadata table with the assembler so the two stay in lock-step.
package disasm

import (
	"fmt"

	"github.com/sofiane-h/i8080/internal/meta"
)

// Error reports why disassembly could not proceed at a given offset.
type Error struct {
	Offset int
	Want   int
	Have   []byte
}

func (e *Error) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("no bytes remaining at offset %d", e.Offset)
	}
	return fmt.Sprintf("not enough bytes at offset %d: need %d, have %v", e.Offset, e.Want, e.Have)
}

// Instruction formats one decoded instruction and reports how many bytes
// it consumed.
func Instruction(data []byte, from int) (string, int, error) {
	if from >= len(data) {
		return "", 0, &Error{Offset: from}
	}
	opcode := data[from]
	info := meta.Find(opcode)
	width := info.Width()
	if from+width > len(data) {
		return "", 0, &Error{Offset: from, Want: width, Have: data[from:]}
	}

	switch {
	case info.ArgB:
		imm := data[from+1]
		sep := ", "
		if info.AsmArgCount < 2 {
			sep = " "
		}
		return fmt.Sprintf("%s%s0x%02x", info.Op, sep, imm), width, nil
	case info.ArgW:
		imm := uint16(data[from+1]) | uint16(data[from+2])<<8
		sep := ", "
		if info.AsmArgCount < 2 {
			sep = " "
		}
		return fmt.Sprintf("%s%s0x%04x", info.Op, sep, imm), width, nil
	default:
		return info.Op, width, nil
	}
}

// All disassembles an entire byte image into one line of text per
// instruction, starting at offset 0 and continuing until the bytes are
// exhausted.
func All(data []byte) ([]string, error) {
	var lines []string
	for offset := 0; offset < len(data); {
		text, width, err := Instruction(data, offset)
		if err != nil {
			return nil, err
		}
		lines = append(lines, text)
		offset += width
	}
	return lines, nil
}
