// Package meta holds the static opcode metadata table shared by the
// assembler, disassembler and emulator: for every real 8080 opcode plus the
// assembler's meta-instructions it records the mnemonic, how many operands
// the ASM form takes, whether an immediate byte or word follows in the
// binary, and the T-state count used by the emulator's clock model.
package meta

// Index space: 0x00-0xFF are real opcodes, 0x100-0x10A are the eleven
// assembler meta-instructions (DB, DW, DS, EQU, SET, ORG, END, IF, ENDIF,
// MACRO, ENDM). They share one table because both the tokenizer's opcode
// probe and the assembler's code generator look mnemonics up by the same
// index space.
const (
	Count    = 0x10b
	RealOps  = 0x100
	DB       = 0x100
	DW       = 0x101
	DS       = 0x102
	EQU      = 0x103
	SET      = 0x104
	ORG      = 0x105
	END      = 0x106
	IF       = 0x107
	ENDIF    = 0x108
	MACRO    = 0x109
	ENDM     = 0x10a
)

// Info describes one opcode or meta-instruction entry.
type Info struct {
	Op          string // canonical mnemonic, e.g. "MOV B, C" or "DAD B"
	AsmArgCount int    // number of comma-separated operands in the ASM form
	ArgB        bool   // binary form is followed by one immediate byte
	ArgW        bool   // binary form is followed by one immediate word (LE)
	Define      bool   // meta-instruction that defines bytes (DB/DW/DS)
	Labelled    bool   // meta-instruction that requires a preceding label
	Cycles      int    // base T-states; 0 for meta-instructions
}

// Width returns the instruction's encoded length in bytes: 3 when it carries
// a word operand, 2 when it carries a byte operand, 1 otherwise.
func (i Info) Width() int {
	switch {
	case i.ArgW:
		return 3
	case i.ArgB:
		return 2
	default:
		return 1
	}
}

// Table is indexed by opcode (0x00-0xFF) or meta-instruction index
// (0x100-0x10A). Unused real-opcode slots are left as the zero Info, which
// never occurs in practice since every byte 0x00-0xFF is assigned below,
// including the twelve undocumented slots that decode as plain NOPs.
var Table [Count]Info

func op(i int, name string, argCount int, cycles int) {
	Table[i] = Info{Op: name, AsmArgCount: argCount, Cycles: cycles}
}

func opArgB(i int, name string, argCount int, cycles int) {
	Table[i] = Info{Op: name, AsmArgCount: argCount, ArgB: true, Cycles: cycles}
}

func opArgW(i int, name string, argCount int, cycles int) {
	Table[i] = Info{Op: name, AsmArgCount: argCount, ArgW: true, Cycles: cycles}
}

func define(i int, name string, argCount int, argb bool) {
	Table[i] = Info{Op: name, AsmArgCount: argCount, Define: true, ArgB: argb}
}

func labelled(i int, name string, argCount int, argw bool) {
	Table[i] = Info{Op: name, AsmArgCount: argCount, Labelled: true, ArgW: argw}
}

func init() {
	// ------------------------------------------ MOV

	op(0x40, "MOV B, B", 2, 5)
	op(0x41, "MOV B, C", 2, 5)
	op(0x42, "MOV B, D", 2, 5)
	op(0x43, "MOV B, E", 2, 5)
	op(0x44, "MOV B, H", 2, 5)
	op(0x45, "MOV B, L", 2, 5)
	op(0x46, "MOV B, M", 2, 7)
	op(0x47, "MOV B, A", 2, 5)

	op(0x48, "MOV C, B", 2, 5)
	op(0x49, "MOV C, C", 2, 5)
	op(0x4a, "MOV C, D", 2, 5)
	op(0x4b, "MOV C, E", 2, 5)
	op(0x4c, "MOV C, H", 2, 5)
	op(0x4d, "MOV C, L", 2, 5)
	op(0x4e, "MOV C, M", 2, 7)
	op(0x4f, "MOV C, A", 2, 5)

	op(0x50, "MOV D, B", 2, 5)
	op(0x51, "MOV D, C", 2, 5)
	op(0x52, "MOV D, D", 2, 5)
	op(0x53, "MOV D, E", 2, 5)
	op(0x54, "MOV D, H", 2, 5)
	op(0x55, "MOV D, L", 2, 5)
	op(0x56, "MOV D, M", 2, 7)
	op(0x57, "MOV D, A", 2, 5)

	op(0x58, "MOV E, B", 2, 5)
	op(0x59, "MOV E, C", 2, 5)
	op(0x5a, "MOV E, D", 2, 5)
	op(0x5b, "MOV E, E", 2, 5)
	op(0x5c, "MOV E, H", 2, 5)
	op(0x5d, "MOV E, L", 2, 5)
	op(0x5e, "MOV E, M", 2, 7)
	op(0x5f, "MOV E, A", 2, 5)

	op(0x60, "MOV H, B", 2, 5)
	op(0x61, "MOV H, C", 2, 5)
	op(0x62, "MOV H, D", 2, 5)
	op(0x63, "MOV H, E", 2, 5)
	op(0x64, "MOV H, H", 2, 5)
	op(0x65, "MOV H, L", 2, 5)
	op(0x66, "MOV H, M", 2, 7)
	op(0x67, "MOV H, A", 2, 5)

	op(0x68, "MOV L, B", 2, 5)
	op(0x69, "MOV L, C", 2, 5)
	op(0x6a, "MOV L, D", 2, 5)
	op(0x6b, "MOV L, E", 2, 5)
	op(0x6c, "MOV L, H", 2, 5)
	op(0x6d, "MOV L, L", 2, 5)
	op(0x6e, "MOV L, M", 2, 7)
	op(0x6f, "MOV L, A", 2, 5)

	op(0x70, "MOV M, B", 2, 7)
	op(0x71, "MOV M, C", 2, 7)
	op(0x72, "MOV M, D", 2, 7)
	op(0x73, "MOV M, E", 2, 7)
	op(0x74, "MOV M, H", 2, 7)
	op(0x75, "MOV M, L", 2, 7)
	// 0x76 is HLT, not MOV M, M - see CONTROL below.
	op(0x77, "MOV M, A", 2, 7)

	op(0x78, "MOV A, B", 2, 5)
	op(0x79, "MOV A, C", 2, 5)
	op(0x7a, "MOV A, D", 2, 5)
	op(0x7b, "MOV A, E", 2, 5)
	op(0x7c, "MOV A, H", 2, 5)
	op(0x7d, "MOV A, L", 2, 5)
	op(0x7e, "MOV A, M", 2, 7)
	op(0x7f, "MOV A, A", 2, 5)

	// ------------------------------------------ CONDITIONALS

	opArgW(0xc3, "JMP", 1, 10)
	opArgW(0xc2, "JNZ", 1, 10)
	opArgW(0xca, "JZ", 1, 10)
	opArgW(0xd2, "JNC", 1, 10)
	opArgW(0xda, "JC", 1, 10)
	opArgW(0xe2, "JPO", 1, 10)
	opArgW(0xea, "JPE", 1, 10)
	opArgW(0xf2, "JP", 1, 10)
	opArgW(0xfa, "JM", 1, 10)
	op(0xe9, "PCHL", 0, 5)

	opArgW(0xcd, "CALL", 1, 17)
	// Taken conditional calls cost 6 more cycles; the emulator adds the
	// penalty at dispatch time rather than baking two entries here.
	opArgW(0xc4, "CNZ", 1, 11)
	opArgW(0xcc, "CZ", 1, 11)
	opArgW(0xd4, "CNC", 1, 11)
	opArgW(0xdc, "CC", 1, 11)
	opArgW(0xe4, "CPO", 1, 11)
	opArgW(0xec, "CPE", 1, 11)
	opArgW(0xf4, "CP", 1, 11)
	opArgW(0xfc, "CM", 1, 11)

	op(0xc9, "RET", 0, 10)
	op(0xc0, "RNZ", 0, 5)
	op(0xc8, "RZ", 0, 5)
	op(0xd0, "RNC", 0, 5)
	op(0xd8, "RC", 0, 5)
	op(0xe0, "RPO", 0, 5)
	op(0xe8, "RPE", 0, 5)
	op(0xf0, "RP", 0, 5)
	op(0xf8, "RM", 0, 5)

	// ------------------------------------------ IMMEDIATE

	opArgB(0x06, "MVI B", 2, 7)
	opArgB(0x0e, "MVI C", 2, 7)
	opArgB(0x16, "MVI D", 2, 7)
	opArgB(0x1e, "MVI E", 2, 7)
	opArgB(0x26, "MVI H", 2, 7)
	opArgB(0x2e, "MVI L", 2, 7)
	opArgB(0x36, "MVI M", 2, 10)
	opArgB(0x3e, "MVI A", 2, 7)

	opArgB(0xc6, "ADI", 1, 7)
	opArgB(0xce, "ACI", 1, 7)
	opArgB(0xd6, "SUI", 1, 7)
	opArgB(0xde, "SBI", 1, 7)
	opArgB(0xe6, "ANI", 1, 7)
	opArgB(0xee, "XRI", 1, 7)
	opArgB(0xf6, "ORI", 1, 7)
	opArgB(0xfe, "CPI", 1, 7)

	// ------------------------------------------ ACCUMULATOR

	op(0x80, "ADD B", 1, 4)
	op(0x81, "ADD C", 1, 4)
	op(0x82, "ADD D", 1, 4)
	op(0x83, "ADD E", 1, 4)
	op(0x84, "ADD H", 1, 4)
	op(0x85, "ADD L", 1, 4)
	op(0x86, "ADD M", 1, 7)
	op(0x87, "ADD A", 1, 4)

	op(0x88, "ADC B", 1, 4)
	op(0x89, "ADC C", 1, 4)
	op(0x8a, "ADC D", 1, 4)
	op(0x8b, "ADC E", 1, 4)
	op(0x8c, "ADC H", 1, 4)
	op(0x8d, "ADC L", 1, 4)
	op(0x8e, "ADC M", 1, 7)
	op(0x8f, "ADC A", 1, 4)

	op(0x90, "SUB B", 1, 4)
	op(0x91, "SUB C", 1, 4)
	op(0x92, "SUB D", 1, 4)
	op(0x93, "SUB E", 1, 4)
	op(0x94, "SUB H", 1, 4)
	op(0x95, "SUB L", 1, 4)
	op(0x96, "SUB M", 1, 7)
	op(0x97, "SUB A", 1, 4)

	op(0x98, "SBB B", 1, 4)
	op(0x99, "SBB C", 1, 4)
	op(0x9a, "SBB D", 1, 4)
	op(0x9b, "SBB E", 1, 4)
	op(0x9c, "SBB H", 1, 4)
	op(0x9d, "SBB L", 1, 4)
	op(0x9e, "SBB M", 1, 7)
	op(0x9f, "SBB A", 1, 4)

	op(0xa0, "ANA B", 1, 4)
	op(0xa1, "ANA C", 1, 4)
	op(0xa2, "ANA D", 1, 4)
	op(0xa3, "ANA E", 1, 4)
	op(0xa4, "ANA H", 1, 4)
	op(0xa5, "ANA L", 1, 4)
	op(0xa6, "ANA M", 1, 7)
	op(0xa7, "ANA A", 1, 4)

	op(0xa8, "XRA B", 1, 4)
	op(0xa9, "XRA C", 1, 4)
	op(0xaa, "XRA D", 1, 4)
	op(0xab, "XRA E", 1, 4)
	op(0xac, "XRA H", 1, 4)
	op(0xad, "XRA L", 1, 4)
	op(0xae, "XRA M", 1, 7)
	op(0xaf, "XRA A", 1, 4)

	op(0xb0, "ORA B", 1, 4)
	op(0xb1, "ORA C", 1, 4)
	op(0xb2, "ORA D", 1, 4)
	op(0xb3, "ORA E", 1, 4)
	op(0xb4, "ORA H", 1, 4)
	op(0xb5, "ORA L", 1, 4)
	op(0xb6, "ORA M", 1, 7)
	op(0xb7, "ORA A", 1, 4)

	op(0xb8, "CMP B", 1, 4)
	op(0xb9, "CMP C", 1, 4)
	op(0xba, "CMP D", 1, 4)
	op(0xbb, "CMP E", 1, 4)
	op(0xbc, "CMP H", 1, 4)
	op(0xbd, "CMP L", 1, 4)
	op(0xbe, "CMP M", 1, 7)
	op(0xbf, "CMP A", 1, 4)

	// ------------------------------------------ SPECIALS

	op(0x27, "DAA", 0, 4)
	op(0x2f, "CMA", 0, 4)
	op(0x37, "STC", 0, 4)
	op(0x3f, "CMC", 0, 4)
	op(0xeb, "XCHG", 0, 4)

	// ------------------------------------------ UNDOCUMENTED NOP SLOTS

	for _, i := range []int{0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38, 0xcb, 0xd9, 0xdd, 0xed, 0xfd} {
		op(i, "---", 0, 4)
	}

	// ------------------------------------------ CONTROL

	op(0x00, "NOP", 0, 4)
	op(0x76, "HLT", 0, 7)
	op(0xf3, "DI", 0, 4)
	op(0xfb, "EI", 0, 4)

	// ------------------------------------------ LXI

	opArgW(0x01, "LXI B", 2, 10)
	opArgW(0x11, "LXI D", 2, 10)
	opArgW(0x21, "LXI H", 2, 10)
	opArgW(0x31, "LXI SP", 2, 10)

	// ------------------------------------------ LOAD/STORE

	op(0x0a, "LDAX B", 1, 7)
	op(0x1a, "LDAX D", 1, 7)
	// LHLD/SHLD: the reference table this was ported from transposed the
	// letters ("LHDL"/"SHDL"); the glossary's names are used here instead.
	opArgW(0x2a, "LHLD", 1, 16)
	opArgW(0x3a, "LDA", 1, 13)

	op(0x02, "STAX B", 1, 7)
	op(0x12, "STAX D", 1, 7)
	opArgW(0x22, "SHLD", 1, 16)
	opArgW(0x32, "STA", 1, 13)

	// ------------------------------------------ ROTATE

	// 0x07 is RLC (rotate A left through the carry flag); the source table
	// this was ported from names it "RLD", which is not an 8080 mnemonic.
	op(0x07, "RLC", 0, 4)
	op(0x0f, "RRC", 0, 4)
	op(0x17, "RAL", 0, 4)
	op(0x1f, "RAR", 0, 4)

	// ------------------------------------------ DAD

	// DAD takes only a register-pair selector, encoded in the opcode
	// itself; it carries no immediate operand, unlike MVI/LXI.
	op(0x09, "DAD B", 1, 10)
	op(0x19, "DAD D", 1, 10)
	op(0x29, "DAD H", 1, 10)
	op(0x39, "DAD SP", 1, 10)

	// ------------------------------------------ INC

	op(0x04, "INR B", 1, 5)
	op(0x0c, "INR C", 1, 5)
	op(0x14, "INR D", 1, 5)
	op(0x1c, "INR E", 1, 5)
	op(0x24, "INR H", 1, 5)
	op(0x2c, "INR L", 1, 5)
	op(0x34, "INR M", 1, 10)
	op(0x3c, "INR A", 1, 5)

	op(0x03, "INX B", 1, 5)
	op(0x13, "INX D", 1, 5)
	op(0x23, "INX H", 1, 5)
	op(0x33, "INX SP", 1, 5)

	// ------------------------------------------ DEC

	op(0x05, "DCR B", 1, 5)
	op(0x0d, "DCR C", 1, 5)
	op(0x15, "DCR D", 1, 5)
	op(0x1d, "DCR E", 1, 5)
	op(0x25, "DCR H", 1, 5)
	op(0x2d, "DCR L", 1, 5)
	op(0x35, "DCR M", 1, 10)
	op(0x3d, "DCR A", 1, 5)

	op(0x0b, "DCX B", 1, 5)
	op(0x1b, "DCX D", 1, 5)
	op(0x2b, "DCX H", 1, 5)
	op(0x3b, "DCX SP", 1, 5)

	// ------------------------------------------ STACK

	op(0xc5, "PUSH B", 1, 11)
	op(0xd5, "PUSH D", 1, 11)
	op(0xe5, "PUSH H", 1, 11)
	op(0xf5, "PUSH PSW", 1, 11)

	op(0xc1, "POP B", 1, 10)
	op(0xd1, "POP D", 1, 10)
	op(0xe1, "POP H", 1, 10)
	op(0xf1, "POP PSW", 1, 10)

	op(0xe3, "XTHL", 0, 18)
	op(0xf9, "SPHL", 0, 5)

	// ------------------------------------------ IO

	opArgB(0xd3, "OUT", 1, 10)
	opArgB(0xdb, "IN", 1, 10)

	// ------------------------------------------ RESTART

	op(0xc7, "RST 0", 1, 11)
	op(0xcf, "RST 1", 1, 11)
	op(0xd7, "RST 2", 1, 11)
	op(0xdf, "RST 3", 1, 11)
	op(0xe7, "RST 4", 1, 11)
	op(0xef, "RST 5", 1, 11)
	op(0xf7, "RST 6", 1, 11)
	op(0xff, "RST 7", 1, 11)

	// ------------------------------------------ META INSTRUCTIONS

	define(DB, "DB", 0, false)
	define(DW, "DW", 0, false)
	define(DS, "DS", 1, true)
	labelled(EQU, "EQU", 1, true)
	labelled(SET, "SET", 1, true)
	opArgW(ORG, "ORG", 1, 0)
	op(END, "END", 0, 0)
	opArgB(IF, "IF", 1, 0)
	op(ENDIF, "ENDIF", 0, 0)
	labelled(MACRO, "MACRO", 0, false)
	labelled(ENDM, "ENDM", 0, false)
}

// Find returns the table entry for a real opcode byte (0x00-0xFF).
func Find(opcode byte) Info {
	return Table[int(opcode)]
}
