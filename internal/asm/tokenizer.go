package asm

import (
	"strings"
	"unicode"

	"github.com/sofiane-h/i8080/internal/meta"
)

// LineMeta is the per-source-line record the tokenizer produces and the
// three assembler passes progressively fill in: label/mnemonic/operand
// text from tokenizing, then Address/Width from pass 1, then UsesPC for
// macro body lines from pass 2. No pass fills in Bytes.
type LineMeta struct {
	RawLine   string
	LineNo    int
	Comment   string
	HasComment bool
	Inst      string
	HasInst   bool
	Args      []string
	Label     string
	HasLabel  bool
	OpCode    int // table index into meta.Table, or -1 if unresolved
	LabelOnly bool
	Address   uint16
	Width     int
	UsesPC    bool
	Bytes     []byte
}

// Tokenize splits one source line into a LineMeta, or returns (nil, nil)
// for a blank line with no label and no comment (a comment-only line yields
// a LineMeta carrying just the comment). It strips the trailing
// comment, extracts a leading "LABEL:" if present, splits the remaining
// text into a mnemonic and comma-separated operands, and uppercases
// everything outside of quoted string literals.
func Tokenize(rawLine string, lineNo int) (*LineMeta, error) {
	body, comment, hasComment := splitComment(rawLine)

	folded, err := foldCaseOutsideQuotes(body)
	if err != nil {
		return nil, err
	}
	folded = strings.TrimSpace(folded)

	label, hasLabel, rest, err := splitLabel(folded)
	if err != nil {
		return nil, err
	}
	rest = strings.TrimSpace(rest)

	if rest == "" {
		if !hasLabel && !hasComment {
			return nil, nil
		}
		return &LineMeta{
			RawLine:    rawLine,
			LineNo:     lineNo,
			Comment:    comment,
			HasComment: hasComment,
			Label:      label,
			HasLabel:   hasLabel,
			LabelOnly:  hasLabel,
			OpCode:     -1,
		}, nil
	}

	instText, argsText := splitFirstWhitespace(rest)

	args, err := splitArgs(argsText)
	if err != nil {
		return nil, err
	}

	lm := &LineMeta{
		RawLine:    rawLine,
		LineNo:     lineNo,
		Comment:    comment,
		HasComment: hasComment,
		Inst:       instText,
		HasInst:    true,
		Args:       args,
		Label:      label,
		HasLabel:   hasLabel,
		OpCode:     -1,
	}

	if opcode, ok := probeOpCode(instText); ok {
		lm.OpCode = opcode
	}

	return lm, nil
}

// probeOpCode performs the tokenizer's best-effort opcode lookup: it does
// not yet know operand values, so it can only succeed for mnemonics whose
// encoding does not depend on a register operand (fixed-encoding
// instructions such as NOP, JMP or ADI, and the meta-instructions beyond
// the real opcode range). Every
// Info.Op string already bakes in its operand shape (e.g. "MOV B, C"), so
// an exact match never needs the operand count to disambiguate.
func probeOpCode(inst string) (int, bool) {
	for i := 0; i < meta.Count; i++ {
		if meta.Table[i].Op == inst {
			return i, true
		}
	}
	return 0, false
}

// splitComment finds the first unquoted ';' and returns the text before it
// (untrimmed) and the trimmed comment text after it, if any.
func splitComment(line string) (body string, comment string, has bool) {
	inQuote := rune(0)
	r := []rune(line)
	for i := 0; i < len(r); i++ {
		c := r[i]
		if inQuote != 0 {
			if c == '\\' && i+1 < len(r) {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			inQuote = c
		case ';':
			return string(r[:i]), strings.TrimSpace(string(r[i+1:])), true
		}
	}
	return line, "", false
}

// foldCaseOutsideQuotes uppercases every rune that is not inside a single-
// or double-quoted string literal, preserving the literal's original case
// and its escape sequences verbatim.
func foldCaseOutsideQuotes(s string) (string, error) {
	var sb strings.Builder
	inQuote := rune(0)
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		c := r[i]
		if inQuote != 0 {
			sb.WriteRune(c)
			if c == '\\' && i+1 < len(r) {
				i++
				sb.WriteRune(r[i])
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			inQuote = c
			sb.WriteRune(c)
			continue
		}
		sb.WriteRune(unicode.ToUpper(c))
	}
	if inQuote != 0 {
		return "", errUnterminatedString(s)
	}
	return sb.String(), nil
}

// splitLabel extracts a leading "LABEL:" from an already case-folded line.
// Labels must be alphabetic or underscore characters only.
func splitLabel(s string) (label string, has bool, rest string, err error) {
	inQuote := rune(0)
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		c := r[i]
		if inQuote != 0 {
			if c == '\\' && i+1 < len(r) {
				i++
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			inQuote = c
		case c == ':':
			candidate := strings.TrimSpace(string(r[:i]))
			if candidate == "" {
				return "", false, s, nil
			}
			for _, lc := range candidate {
				if !unicode.IsLetter(lc) && lc != '_' {
					return "", false, "", errInvalidLabel(candidate)
				}
			}
			return candidate, true, string(r[i+1:]), nil
		}
	}
	return "", false, s, nil
}

func splitFirstWhitespace(s string) (first, rest string) {
	if idx := strings.IndexFunc(s, unicode.IsSpace); idx >= 0 {
		first = s[:idx]
		rest = strings.TrimLeftFunc(s[idx:], unicode.IsSpace)
	} else {
		first = s
	}
	return strings.TrimSpace(first), rest
}

// splitArgs splits a comma-separated operand list, respecting quoted
// string literals so a comma inside a string does not end the operand.
func splitArgs(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var args []string
	var cur strings.Builder
	inQuote := rune(0)
	r := []rune(s)
	for i := 0; i < len(r); i++ {
		c := r[i]
		if inQuote != 0 {
			cur.WriteRune(c)
			if c == '\\' && i+1 < len(r) {
				i++
				cur.WriteRune(r[i])
				continue
			}
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			inQuote = c
			cur.WriteRune(c)
		case c == ',':
			args = append(args, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if inQuote != 0 {
		return nil, errUnterminatedString(s)
	}
	args = append(args, strings.TrimSpace(cur.String()))
	return args, nil
}
