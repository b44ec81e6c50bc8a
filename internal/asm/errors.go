package asm

import "fmt"

// Error reports an assembly-time failure. Kind selects which of the
// reference assembler's ParserError/CodeGenError variants this represents;
// the accompanying fields carry the variant's payload.
type Error struct {
	Kind    string
	Text    string
	Text2   string
	Int1    int
	Int2    int
	Line    *LineMeta
	Wrapped error
}

func (e *Error) Error() string {
	msg := e.message()
	if e.Line != nil {
		return fmt.Sprintf("line %d: %s (%q)", e.Line.LineNo, msg, e.Line.RawLine)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Wrapped }

func (e *Error) message() string {
	switch e.Kind {
	case "expression_error":
		return fmt.Sprintf("expression error: %v", e.Wrapped)
	case "unknown_define":
		return "unknown define/meta-instruction"
	case "no_args_for_variadic":
		return "variadic instruction requires at least one argument"
	case "wrong_number_of_args":
		return fmt.Sprintf("wrong number of arguments: expected %d, got %d", e.Int1, e.Int2)
	case "operation_requires_label":
		return fmt.Sprintf("%s requires a preceding label", e.Text)
	case "invalid_argument":
		return fmt.Sprintf("invalid argument %q for %s", e.Text2, e.Text)
	case "unterminated_string":
		return fmt.Sprintf("unterminated string literal: %s", e.Text)
	case "invalid_label":
		return fmt.Sprintf("invalid label: %s", e.Text)
	case "label_already_defined":
		return fmt.Sprintf("label already defined: %s", e.Text)
	case "no_instruction_found":
		return fmt.Sprintf("no instruction found: %v", e.Wrapped)
	case "org_in_macro":
		return "ORG is not allowed inside a macro body"
	case "define_in_macro":
		return "DB/DW/DS is not allowed inside a macro body"
	case "not_in_macro":
		return "ENDM without a matching MACRO"
	case "nested_macro":
		return "nested MACRO definitions are not allowed"
	case "macro_call_in_macro_uses_sp":
		return fmt.Sprintf("macro %s uses $ and cannot be called from inside another macro", e.Text)
	case "macro_use_before_creation":
		return fmt.Sprintf("macro %s used before it was defined", e.Text)
	case "recursive_macro":
		return fmt.Sprintf("macro %s cannot call itself", e.Text)
	case "no_end_macro":
		return "MACRO without a matching ENDM"
	case "if_and_macro_mix":
		return "IF/ENDIF may not straddle a macro definition"
	case "nested_if":
		return "nested IF is not allowed"
	case "not_in_if":
		return "ENDIF without a matching IF"
	case "no_end_if":
		return "IF without a matching ENDIF"
	case "unexpected_length":
		return fmt.Sprintf("code generation produced %d bytes, expected %d", e.Int2, e.Int1)
	default:
		return "assembler error"
	}
}

func errExpression(err error) error { return &Error{Kind: "expression_error", Wrapped: err} }
func errUnknownDefine() error       { return &Error{Kind: "unknown_define"} }
func errNoArgsForVariadic() error   { return &Error{Kind: "no_args_for_variadic"} }
func errWrongNumberOfArgs(want, got int) error {
	return &Error{Kind: "wrong_number_of_args", Int1: want, Int2: got}
}
func errOperationRequiresLabel(inst string) error {
	return &Error{Kind: "operation_requires_label", Text: inst}
}
func errInvalidArgument(inst, arg string) error {
	return &Error{Kind: "invalid_argument", Text: inst, Text2: arg}
}
func errUnterminatedString(s string) error { return &Error{Kind: "unterminated_string", Text: s} }
func errInvalidLabel(s string) error       { return &Error{Kind: "invalid_label", Text: s} }
func errLabelAlreadyDefined(s string) error {
	return &Error{Kind: "label_already_defined", Text: s}
}
func errNoInstructionFound(err error) error { return &Error{Kind: "no_instruction_found", Wrapped: err} }
func errOrgInMacro() error                  { return &Error{Kind: "org_in_macro"} }
func errDefineInMacro() error                { return &Error{Kind: "define_in_macro"} }
func errNotInMacro() error                  { return &Error{Kind: "not_in_macro"} }
func errNestedMacro() error                 { return &Error{Kind: "nested_macro"} }
func errMacroCallInMacroUsesSP(name string) error {
	return &Error{Kind: "macro_call_in_macro_uses_sp", Text: name}
}
func errMacroUseBeforeCreation(name string) error {
	return &Error{Kind: "macro_use_before_creation", Text: name}
}
func errRecursiveMacro(name string) error { return &Error{Kind: "recursive_macro", Text: name} }
func errNoEndMacro() error                { return &Error{Kind: "no_end_macro"} }
func errIfAndMacroMix() error             { return &Error{Kind: "if_and_macro_mix"} }
func errNestedIf() error                  { return &Error{Kind: "nested_if"} }
func errNotInIf() error                   { return &Error{Kind: "not_in_if"} }
func errNoEndIf() error                   { return &Error{Kind: "no_end_if"} }
func errUnexpectedLength(want, got int) error {
	return &Error{Kind: "unexpected_length", Int1: want, Int2: got}
}

// withLine attaches the offending line to an error for %w-style context,
// mirroring the reference assembler's erroring_line/print_err_msg pattern.
func withLine(err error, line *LineMeta) error {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok {
		ae.Line = line
		return ae
	}
	return &Error{Kind: "expression_error", Wrapped: err, Line: line}
}
