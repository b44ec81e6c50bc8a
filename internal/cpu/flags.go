package cpu

import "math/bits"

// Flags holds the five condition bits the 8080 tracks. PSW packs them
// into a single byte: bit 7 sign, bit 6 zero, bit 5 always 0, bit 4
// auxiliary carry, bit 3 always 0, bit 2 parity, bit 1 always 1, bit 0
// carry.
type Flags struct {
	Sign     bool
	Zero     bool
	AuxCarry bool
	Parity   bool
	Carry    bool
}

func (f Flags) Pack() byte {
	var b byte
	if f.Sign {
		b |= 1 << 7
	}
	if f.Zero {
		b |= 1 << 6
	}
	if f.AuxCarry {
		b |= 1 << 4
	}
	if f.Parity {
		b |= 1 << 2
	}
	b |= 1 << 1 // always set
	if f.Carry {
		b |= 1 << 0
	}
	return b
}

func UnpackFlags(b byte) Flags {
	return Flags{
		Sign:     b&(1<<7) != 0,
		Zero:     b&(1<<6) != 0,
		AuxCarry: b&(1<<4) != 0,
		Parity:   b&(1<<2) != 0,
		Carry:    b&(1<<0) != 0,
	}
}

// evenParity reports whether v has an even number of set bits, the 8080's
// parity flag convention.
func evenParity(v byte) bool {
	return bits.OnesCount8(v)%2 == 0
}

// setZSP sets Zero, Sign and Parity from a computed 8-bit result, the
// three flags nearly every ALU and INR/DCR instruction updates together.
func (f *Flags) setZSP(result byte) {
	f.Zero = result == 0
	f.Sign = result&0x80 != 0
	f.Parity = evenParity(result)
}
