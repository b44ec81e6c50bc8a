package asm

// LabelKind distinguishes an ordinary address label from one bound by EQU
// (fixed for the whole assembly) or SET (re-bindable).
type LabelKind int

const (
	LabelAddr LabelKind = iota
	LabelEqu
	LabelSet
)

// Label is a named value in the assembler's symbol table: an address
// (from a plain "NAME:" line), or a value bound by EQU/SET.
type Label struct {
	Value uint16
	Kind  LabelKind
}

func NewAddrLabel(v uint16) Label { return Label{Value: v, Kind: LabelAddr} }
func NewEquLabel(v uint16) Label  { return Label{Value: v, Kind: LabelEqu} }
func NewSetLabel(v uint16) Label  { return Label{Value: v, Kind: LabelSet} }

// registerLabelDefs seeds the symbol table with the eight 8-bit register
// mnemonics, enabling "MVI B, 1"-style operands to resolve "B" through the
// expression engine. New always calls it; Options.RegisterDefinitions does
// not switch the seeding on or off.
func registerLabelDefs(labels map[string]Label) {
	for name, val := range regDefsOrder {
		labels[name] = NewEquLabel(val)
	}
}

var regDefsOrder = map[string]uint16{
	"B": 0, "C": 1, "D": 2, "E": 3, "H": 4, "L": 5, "M": 6, "A": 7,
}
