package asm

import (
	"strings"

	"github.com/sofiane-h/i8080/internal/expr"
	"github.com/sofiane-h/i8080/internal/meta"
)

// Macro is a captured macro body: the tokenized lines as written, plus the
// generated bytes (cached unless the body references "$", in which case it
// must be regenerated per call site) and whether any line's operand used
// "$".
type Macro struct {
	Lines  []*LineMeta
	Bytes  []byte
	Width  int
	UsesPC bool
}

// Options configures one assembly run.
type Options struct {
	LoadAt              uint16
	AppendHLT           bool
	RegisterDefinitions bool
}

// Assembler holds the symbol table and macro table built across the three
// passes and produces the final byte image.
type Assembler struct {
	opts         Options
	macros       map[string]*Macro
	labels       map[string]Label
	progWidth    uint16
	erroringLine *LineMeta
}

// New creates an assembler with the built-in register-name labels seeded
// (B=0 .. A=7, M=6), since operand parsing for instructions like
// "MOV B, C" resolves register names through the same expression engine
// used for ordinary labels.
func New(opts Options) *Assembler {
	a := &Assembler{
		opts:   opts,
		macros: map[string]*Macro{},
		labels: map[string]Label{},
	}
	registerLabelDefs(a.labels)
	return a
}

// Assemble runs the full three-pass pipeline over source text and returns
// the assembled byte image.
func (a *Assembler) Assemble(source string) ([]byte, error) {
	lines, err := a.loadLines(source)
	if err != nil {
		return nil, err
	}
	resultLines, err := a.parseAt(lines, a.opts.LoadAt)
	if err != nil {
		return nil, err
	}
	if err := a.genMacros(); err != nil {
		return nil, err
	}
	return a.generateProg(resultLines)
}

// ErroringLine returns the line under processing when Assemble last
// returned an error, for caller-side diagnostics.
func (a *Assembler) ErroringLine() *LineMeta { return a.erroringLine }

func (a *Assembler) loadLines(source string) ([]*LineMeta, error) {
	var lines []*LineMeta
	for i, raw := range strings.Split(source, "\n") {
		lm, err := Tokenize(raw, i+1)
		if err != nil {
			return nil, withLine(err, &LineMeta{RawLine: raw, LineNo: i + 1})
		}
		if lm != nil {
			lines = append(lines, lm)
		}
	}
	return lines, nil
}

func (a *Assembler) labelValues() map[string]uint16 {
	vals := make(map[string]uint16, len(a.labels))
	for k, v := range a.labels {
		vals[k] = v.Value
	}
	return vals
}

func (a *Assembler) bindLabel(name string, newLabel Label) error {
	if existing, ok := a.labels[name]; ok {
		if existing.Kind != LabelSet || newLabel.Kind != LabelSet {
			return errLabelAlreadyDefined(name)
		}
	}
	a.labels[name] = newLabel
	return nil
}

func (a *Assembler) evalArg(line *LineMeta, idx int, address uint16) (uint16, expr.Flags, error) {
	if idx >= len(line.Args) {
		return 0, expr.Flags{}, withLine(errWrongNumberOfArgs(idx+1, len(line.Args)), line)
	}
	val, flags, err := expr.EvalString(line.Args[idx], address, a.labelValues())
	if err != nil {
		return 0, flags, withLine(errExpression(err), line)
	}
	return val, flags, nil
}

// instFamilyWidth returns the binary width (in bytes) shared by every
// register/condition variant of a real-opcode mnemonic family. Width never
// depends on which register or condition is selected, only on the family,
// so pass 1 can size a line before operands are evaluated.
func instFamilyWidth(inst string) (int, bool) {
	switch inst {
	case "MOV", "ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP", "INR", "DCR", "RST",
		"LDAX", "STAX", "DAD", "INX", "DCX", "PUSH", "POP",
		"NOP", "HLT", "DI", "EI", "DAA", "CMA", "STC", "CMC", "XCHG", "RLC", "RRC", "RAL", "RAR",
		"PCHL", "SPHL", "XTHL", "RET", "RNZ", "RZ", "RNC", "RC", "RPO", "RPE", "RP", "RM":
		return 1, true
	case "MVI", "ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI", "OUT", "IN":
		return 2, true
	case "LXI", "JMP", "JNZ", "JZ", "JNC", "JC", "JPO", "JPE", "JP", "JM",
		"CALL", "CNZ", "CZ", "CNC", "CC", "CPO", "CPE", "CP", "CM",
		"LHLD", "SHLD", "LDA", "STA":
		return 3, true
	default:
		return 0, false
	}
}

// widthOfDataStorage computes the byte width of a DB/DW/DS line without
// generating its bytes: DB sums each argument's contribution (a quoted
// multi-character string contributes its length, anything else one byte),
// DW is two bytes per argument, and DS evaluates its single numeric
// argument as the count of zero bytes to reserve.
func (a *Assembler) widthOfDataStorage(line *LineMeta, address uint16) (int, error) {
	switch line.Inst {
	case "DB":
		if len(line.Args) == 0 {
			return 0, withLine(errNoArgsForVariadic(), line)
		}
		width := 0
		labels := a.labelValues()
		for _, argText := range line.Args {
			if s, ok := evalMaybeString(argText, address, labels); ok {
				width += len(s)
				continue
			}
			if _, _, err := expr.EvalString(argText, address, labels); err != nil {
				return 0, withLine(errExpression(err), line)
			}
			width++
		}
		return width, nil
	case "DW":
		if len(line.Args) == 0 {
			return 0, withLine(errNoArgsForVariadic(), line)
		}
		return len(line.Args) * 2, nil
	case "DS":
		if len(line.Args) != 1 {
			return 0, withLine(errWrongNumberOfArgs(1, len(line.Args)), line)
		}
		if _, ok := evalMaybeString(line.Args[0], address, a.labelValues()); ok {
			return 0, withLine(errInvalidArgument("DS", line.Args[0]), line)
		}
		val, _, err := expr.EvalString(line.Args[0], address, a.labelValues())
		if err != nil {
			return 0, withLine(errExpression(err), line)
		}
		return int(val), nil
	default:
		return 0, errUnknownDefine()
	}
}

// evalMaybeString evaluates an operand and reports its string contents
// when it is a (multi-character) string literal, so DB/DS can special-case
// string operands without re-lexing twice for the common numeric case.
func evalMaybeString(raw string, address uint16, labels map[string]uint16) (string, bool) {
	tokens, _, err := expr.Lex(raw, address, labels)
	if err != nil || len(tokens) != 1 || tokens[0].Kind != expr.KindString {
		return "", false
	}
	return tokens[0].Str, true
}

// parseAt is pass 1: it resolves every line's address and width, expands
// IF/ENDIF gating, captures MACRO bodies, and binds labels (address, EQU,
// SET) into the symbol table. It returns the sequence of top-level lines
// that will be code-generated and emitted in passes 2 and 3; macro body
// lines are captured into a.macros instead and are not part of the
// returned slice.
func (a *Assembler) parseAt(lines []*LineMeta, loadAddress uint16) ([]*LineMeta, error) {
	address := loadAddress
	var macroAddress uint16
	highestAddress := loadAddress
	insideIf := false
	skipLine := false
	done := false

	inMacro := false
	var curMacroName string
	var macroBuf []*LineMeta

	var resultLines []*LineMeta

	appendResolved := func(line *LineMeta, width int) {
		if inMacro {
			line.Address = macroAddress
			line.Width = width
			macroBuf = append(macroBuf, line)
			macroAddress += uint16(width)
			return
		}
		line.Address = address
		line.Width = width
		resultLines = append(resultLines, line)
		address += uint16(width)
		if address > highestAddress {
			highestAddress = address
		}
	}

	for _, line := range lines {
		if done {
			break
		}
		a.erroringLine = line

		if line.LabelOnly {
			addr := address
			if inMacro {
				addr = macroAddress
			}
			if err := a.bindLabel(line.Label, NewAddrLabel(addr)); err != nil {
				return nil, withLine(err, line)
			}
			continue
		}
		if !line.HasInst {
			continue
		}
		inst := line.Inst

		switch inst {
		case "IF":
			if inMacro {
				return nil, withLine(errIfAndMacroMix(), line)
			}
			if insideIf {
				return nil, withLine(errNestedIf(), line)
			}
			val, _, err := a.evalArg(line, 0, address)
			if err != nil {
				return nil, err
			}
			insideIf = true
			skipLine = val == 0
			continue
		case "ENDIF":
			if !insideIf {
				return nil, withLine(errNotInIf(), line)
			}
			insideIf = false
			skipLine = false
			continue
		}

		if skipLine {
			continue
		}

		if inst == "END" {
			done = true
			continue
		}

		if inst == "MACRO" {
			if inMacro {
				return nil, withLine(errNestedMacro(), line)
			}
			if !line.HasLabel {
				return nil, withLine(errOperationRequiresLabel("MACRO"), line)
			}
			curMacroName = line.Label
			inMacro = true
			macroAddress = 0
			macroBuf = nil
			if err := a.bindLabel(line.Label, NewAddrLabel(address)); err != nil {
				return nil, withLine(err, line)
			}
			continue
		}
		if inst == "ENDM" {
			if !inMacro {
				return nil, withLine(errNotInMacro(), line)
			}
			a.macros[curMacroName] = &Macro{Lines: macroBuf, Width: int(macroAddress)}
			inMacro = false
			continue
		}

		if line.HasLabel && inst != "EQU" && inst != "SET" {
			addr := address
			if inMacro {
				addr = macroAddress
			}
			if err := a.bindLabel(line.Label, NewAddrLabel(addr)); err != nil {
				return nil, withLine(err, line)
			}
		}

		switch inst {
		case "ORG":
			if inMacro {
				return nil, withLine(errOrgInMacro(), line)
			}
			val, _, err := a.evalArg(line, 0, address)
			if err != nil {
				return nil, err
			}
			address = val
			if address > highestAddress {
				highestAddress = address
			}
			continue
		case "EQU", "SET":
			if !line.HasLabel {
				return nil, withLine(errOperationRequiresLabel(inst), line)
			}
			val, _, err := a.evalArg(line, 0, address)
			if err != nil {
				return nil, err
			}
			kind := NewEquLabel(val)
			if inst == "SET" {
				kind = NewSetLabel(val)
			}
			if err := a.bindLabel(line.Label, kind); err != nil {
				return nil, withLine(err, line)
			}
			continue
		case "DB", "DW", "DS":
			if inMacro {
				return nil, withLine(errDefineInMacro(), line)
			}
			width, err := a.widthOfDataStorage(line, address)
			if err != nil {
				return nil, err
			}
			appendResolved(line, width)
			continue
		}

		if w, ok := instFamilyWidth(inst); ok {
			appendResolved(line, w)
			continue
		}

		// Unresolved mnemonic: must be an existing, non-recursive macro
		// invocation with no explicit operands.
		if len(line.Args) != 0 {
			return nil, withLine(errWrongNumberOfArgs(0, len(line.Args)), line)
		}
		if inMacro && inst == curMacroName {
			return nil, withLine(errRecursiveMacro(inst), line)
		}
		m, exists := a.macros[inst]
		if !exists {
			return nil, withLine(errMacroUseBeforeCreation(inst), line)
		}
		appendResolved(line, m.Width)
	}

	if insideIf {
		return nil, errNoEndIf()
	}
	if inMacro {
		return nil, errNoEndMacro()
	}

	a.progWidth = highestAddress
	return resultLines, nil
}

// genMacros is pass 2: it generates the bytes for every captured macro
// body once, ahead of generateProg expanding any call sites.
func (a *Assembler) genMacros() error {
	for name, m := range a.macros {
		var buf []byte
		usesPC := false
		for _, line := range m.Lines {
			bytes, flags, err := a.genForLine(line, line.Address, true)
			if err != nil {
				return err
			}
			if len(bytes) != line.Width {
				return withLine(errUnexpectedLength(line.Width, len(bytes)), line)
			}
			if flags.PC {
				usesPC = true
				line.UsesPC = true
			}
			buf = append(buf, bytes...)
		}
		m.Bytes = buf
		m.UsesPC = usesPC
		a.macros[name] = m
	}
	return nil
}

// generateProg is pass 3: it allocates the final image (ORG gaps are left
// zero-filled) and writes each resolved line's generated bytes at its
// address, expanding macro invocations (regenerating the body in place
// when it references "$", reusing the cached bytes otherwise).
func (a *Assembler) generateProg(lines []*LineMeta) ([]byte, error) {
	out := make([]byte, a.progWidth)
	for _, line := range lines {
		a.erroringLine = line
		bytes, _, err := a.genForLine(line, line.Address, false)
		if err != nil {
			return nil, err
		}
		if len(bytes) != line.Width {
			return nil, withLine(errUnexpectedLength(line.Width, len(bytes)), line)
		}
		copy(out[line.Address:], bytes)
	}
	if a.opts.AppendHLT {
		out = append(out, 0x76)
	}
	return out, nil
}

// genForLine dispatches a single resolved line to its code generator:
// DB/DW/DS build their bytes directly, a real opcode resolves through
// meta.FromArgsAndSPPSW, and anything else is a macro invocation.
func (a *Assembler) genForLine(line *LineMeta, address uint16, inMacroBody bool) ([]byte, expr.Flags, error) {
	switch line.Inst {
	case "DB":
		return a.genDB(line, address)
	case "DW":
		return a.genDW(line, address)
	case "DS":
		return a.genDS(line, address)
	}
	if _, ok := instFamilyWidth(line.Inst); ok {
		return a.genInstruction(line, address)
	}
	return a.genMacroCall(line, address, inMacroBody)
}

func (a *Assembler) genDB(line *LineMeta, address uint16) ([]byte, expr.Flags, error) {
	var out []byte
	var flags expr.Flags
	labels := a.labelValues()
	for _, argText := range line.Args {
		if s, ok := evalMaybeString(argText, address, labels); ok {
			out = append(out, []byte(s)...)
			continue
		}
		val, f, err := expr.EvalString(argText, address, labels)
		if err != nil {
			return nil, flags, withLine(errExpression(err), line)
		}
		flags.PC = flags.PC || f.PC
		out = append(out, byte(val))
	}
	return out, flags, nil
}

func (a *Assembler) genDW(line *LineMeta, address uint16) ([]byte, expr.Flags, error) {
	var out []byte
	var flags expr.Flags
	labels := a.labelValues()
	for _, argText := range line.Args {
		val, f, err := expr.EvalString(argText, address, labels)
		if err != nil {
			return nil, flags, withLine(errExpression(err), line)
		}
		flags.PC = flags.PC || f.PC
		out = append(out, byte(val&0xff), byte(val>>8))
	}
	return out, flags, nil
}

func (a *Assembler) genDS(line *LineMeta, address uint16) ([]byte, expr.Flags, error) {
	val, flags, err := expr.EvalString(line.Args[0], address, a.labelValues())
	if err != nil {
		return nil, flags, withLine(errExpression(err), line)
	}
	return make([]byte, val), flags, nil
}

// genInstruction evaluates every operand, resolves the real opcode and
// appends any trailing immediate byte/word.
func (a *Assembler) genInstruction(line *LineMeta, address uint16) ([]byte, expr.Flags, error) {
	labels := a.labelValues()
	var combined expr.Flags
	values := make([]uint16, len(line.Args))
	for i, argText := range line.Args {
		val, f, err := expr.EvalString(argText, address, labels)
		if err != nil {
			return nil, combined, withLine(errExpression(err), line)
		}
		values[i] = val
		combined.SP = combined.SP || f.SP
		combined.PSW = combined.PSW || f.PSW
		combined.PC = combined.PC || f.PC
	}

	var arg0, arg1 uint16
	if len(values) > 0 {
		arg0 = values[0]
	}
	if len(values) > 1 {
		arg1 = values[1]
	}

	idx, err := meta.FromArgsAndSPPSW(line.Inst, arg0, arg1, combined.SP, combined.PSW)
	if err != nil {
		return nil, combined, withLine(errNoInstructionFound(err), line)
	}
	info := meta.Table[idx]
	out := []byte{byte(idx)}
	if info.ArgB {
		immIdx := info.AsmArgCount - 1
		if immIdx < 0 || immIdx >= len(values) {
			return nil, combined, withLine(errWrongNumberOfArgs(info.AsmArgCount, len(values)), line)
		}
		out = append(out, byte(values[immIdx]))
	} else if info.ArgW {
		immIdx := info.AsmArgCount - 1
		if immIdx < 0 || immIdx >= len(values) {
			return nil, combined, withLine(errWrongNumberOfArgs(info.AsmArgCount, len(values)), line)
		}
		v := values[immIdx]
		out = append(out, byte(v&0xff), byte(v>>8))
	}
	return out, combined, nil
}

// genMacroCall expands an invocation of a previously defined macro. A
// macro whose body references "$" must be regenerated at the call site
// (its cached bytes were only valid for the address it happened to be
// captured at) and cannot be called from inside another macro, since the
// inner body's own addressing would then be ambiguous.
func (a *Assembler) genMacroCall(line *LineMeta, address uint16, inMacroBody bool) ([]byte, expr.Flags, error) {
	m, exists := a.macros[line.Inst]
	if !exists {
		return nil, expr.Flags{}, withLine(errMacroUseBeforeCreation(line.Inst), line)
	}
	if !m.UsesPC {
		out := make([]byte, len(m.Bytes))
		copy(out, m.Bytes)
		return out, expr.Flags{}, nil
	}
	if inMacroBody {
		return nil, expr.Flags{}, withLine(errMacroCallInMacroUsesSP(line.Inst), line)
	}
	var out []byte
	for _, bodyLine := range m.Lines {
		bytes, _, err := a.genForLine(bodyLine, address+bodyLine.Address, true)
		if err != nil {
			return nil, expr.Flags{}, err
		}
		out = append(out, bytes...)
	}
	return out, expr.Flags{PC: true}, nil
}
