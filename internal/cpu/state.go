// Package cpu implements the 8080 register/flag state and its
// decode-dispatch execution loop.
package cpu

import (
	"log/slog"
	"math/rand/v2"

	"github.com/sofiane-h/i8080/internal/device"
)

// State is the complete machine state: the seven 8-bit registers (M is
// not a register but the memory cell addressed by HL), the stack pointer
// and program counter, and the condition flags.
type State struct {
	A, B, C, D, E, H, L byte
	SP, PC              uint16
	Flags               Flags

	// InterruptsBlocked gates whether PendingInterrupt will be serviced.
	// Its sense is inverted from what DI/EI suggest: executing DI sets
	// this true (and so blocks interrupts), EI clears it. This mirrors
	// the reference emulator's flip-flop convention bit-for-bit rather
	// than renaming around it.
	InterruptsBlocked bool
	PendingInterrupt  bool
	PendingOpcode     byte

	Halted bool
	Cycles uint64

	Mem *Memory
	Bus *device.Bus

	// Log is consulted at Debug/Trace level on every Step when non-nil;
	// a nil Log (the zero value) disables tracing entirely rather than
	// discarding formatted output, so callers that never set it pay no
	// formatting cost.
	Log *slog.Logger

	// Interactive mirrors the reference's bool of the same name: when
	// set, Step always renders CurrentState regardless of the log level,
	// for the interactive debugger's per-cycle prompt.
	Interactive  bool
	CurrentState string

	// jumped is set for the duration of one Step when execute redirected
	// PC itself (a taken jump/call/ret/RST/PCHL), so Step skips the
	// normal width-based advance instead of running both.
	jumped bool

	// retAddr is the address CALL/RST should push this Step: PC after the
	// current instruction for a normally fetched opcode, or the
	// unmodified PC for an interrupt-injected one.
	retAddr uint16
}

// NewState returns a zeroed machine with the given backing memory and I/O
// bus.
func NewState(mem *Memory, bus *device.Bus) *State {
	return &State{Mem: mem, Bus: bus}
}

// IssueInterrupt arms a pending interrupt carrying the given instruction
// (typically a one-byte RST opcode). It does not touch InterruptsBlocked:
// whether it is serviced this cycle or held until EI still depends on the
// DI/EI state.
func (s *State) IssueInterrupt(opcode byte) {
	s.PendingInterrupt = true
	s.PendingOpcode = opcode
}

// Randomize fills every register and flag, and the entire memory image,
// with random bytes - the --randomize run flag's effect, for shaking out
// programs that assume a zeroed machine. PC is left untouched since the
// caller loads it separately (the reference leaves its own registers.pc
// randomization commented out for the same reason).
func (s *State) Randomize() {
	s.A = byte(rand.IntN(256))
	s.SetBC(uint16(rand.IntN(0x10000)))
	s.SetDE(uint16(rand.IntN(0x10000)))
	s.SetHL(uint16(rand.IntN(0x10000)))
	s.SP = uint16(rand.IntN(0x10000))
	s.Flags = UnpackFlags(byte(rand.IntN(256)))
	for i := range s.Mem.Bytes {
		s.Mem.Bytes[i] = byte(rand.IntN(256))
	}
}

func (s *State) BC() uint16 { return uint16(s.B)<<8 | uint16(s.C) }
func (s *State) DE() uint16 { return uint16(s.D)<<8 | uint16(s.E) }
func (s *State) HL() uint16 { return uint16(s.H)<<8 | uint16(s.L) }

func (s *State) SetBC(v uint16) { s.B = byte(v >> 8); s.C = byte(v) }
func (s *State) SetDE(v uint16) { s.D = byte(v >> 8); s.E = byte(v) }
func (s *State) SetHL(v uint16) { s.H = byte(v >> 8); s.L = byte(v) }

// PSW is the accumulator and packed flags treated as one 16-bit word, as
// pushed/popped by PUSH PSW / POP PSW.
func (s *State) PSW() uint16 { return uint16(s.A)<<8 | uint16(s.Flags.Pack()) }

func (s *State) SetPSW(v uint16) {
	s.A = byte(v >> 8)
	s.Flags = UnpackFlags(byte(v))
}

// reg8 fetches one of the eight 8080 register-encoding slots (B,C,D,E,H,L,M,A).
func (s *State) reg8(code uint8) byte {
	switch code {
	case 0:
		return s.B
	case 1:
		return s.C
	case 2:
		return s.D
	case 3:
		return s.E
	case 4:
		return s.H
	case 5:
		return s.L
	case 6:
		return s.Mem.ReadByte(s.HL())
	default:
		return s.A
	}
}

func (s *State) setReg8(code uint8, v byte) {
	switch code {
	case 0:
		s.B = v
	case 1:
		s.C = v
	case 2:
		s.D = v
	case 3:
		s.E = v
	case 4:
		s.H = v
	case 5:
		s.L = v
	case 6:
		s.Mem.WriteByte(s.HL(), v)
	default:
		s.A = v
	}
}
