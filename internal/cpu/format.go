package cpu

import (
	"fmt"

	"github.com/sofiane-h/i8080/internal/meta"
)

// printableRune renders b as itself if it falls in the printable ASCII
// range, or a space placeholder otherwise - used by DescribeSystem's
// register dump.
func printableRune(b byte) rune {
	if b >= 0x20 && b < 0x7f {
		return rune(b)
	}
	return ' '
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DescribeSystem renders the full register/flag file as a fixed-width
// box, the interactive debugger's "s"/"sys"/"system" command.
func (s *State) DescribeSystem() string {
	return fmt.Sprintf(`   +-------------------------+      +------------+
PC | 0x%04x                  |      | Sign:   %d  |
   +-------------------------+      +------------+
SP | 0x%04x                  |      | Zero:   %d  |
   +------------+------------+      +------------+
B  | 0x%02x ('%c') | 0x%02x ('%c') | C    | Aux:    %d  |
   +------------+------------+      +------------+
D  | 0x%02x ('%c') | 0x%02x ('%c') | E    | Parity: %d  |
   +------------+------------+      +------------+
H  | 0x%02x ('%c') | 0x%02x ('%c') | L    | Carry:  %d  |
   +------------+------------+      +------------+
A  | 0x%02x ('%c') |
   +------------+
`,
		s.PC, boolBit(s.Flags.Sign),
		s.SP, boolBit(s.Flags.Zero),
		s.B, printableRune(s.B), s.C, printableRune(s.C), boolBit(s.Flags.AuxCarry),
		s.D, printableRune(s.D), s.E, printableRune(s.E), boolBit(s.Flags.Parity),
		s.H, printableRune(s.H), s.L, printableRune(s.L), boolBit(s.Flags.Carry),
		s.A, printableRune(s.A),
	)
}

// FmtInstruction renders the opcode about to execute (or just executed, for
// interrupt-injected ones) as a hex-bytes-plus-mnemonic line, the
// interactive debugger's per-step trace and the emulator's debug-level log
// line.
func (s *State) FmtInstruction(opcode byte, isInterrupt bool) string {
	info := meta.Find(opcode)
	hexBytes := fmt.Sprintf("%02x", opcode)
	op := info.Op
	switch {
	case info.ArgW:
		w := s.Mem.ReadWord(s.PC + 1)
		hexBytes += fmt.Sprintf(" %02x %02x", byte(w), byte(w>>8))
		op += fmt.Sprintf(" %#06x", w)
	case info.ArgB:
		b := s.Mem.ReadByte(s.PC + 1)
		hexBytes += fmt.Sprintf(" %02x", b)
		op += fmt.Sprintf(" %#04x", b)
	}
	if isInterrupt {
		return fmt.Sprintf("%-8s %-16s (interrupt)", hexBytes, op)
	}
	return fmt.Sprintf("%#06x  %-8s %-16s", s.PC, hexBytes, op)
}
