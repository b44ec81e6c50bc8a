package expr

// Transform converts an infix token stream into reverse-Polish order using
// the shunting-yard algorithm, so Eval can walk it with a single operand
// stack.
func Transform(input []Token) ([]Token, error) {
	output := make([]Token, 0, len(input))
	var ops []Token

	popTo := func(pred func(Token) bool) {
		for len(ops) > 0 && pred(ops[len(ops)-1]) {
			output = append(output, ops[len(ops)-1])
			ops = ops[:len(ops)-1]
		}
	}

	for _, tok := range input {
		switch tok.Kind {
		case KindNumber, KindString:
			output = append(output, tok)
		case KindUnary:
			ops = append(ops, tok)
		case KindOperator:
			popTo(func(top Token) bool {
				if top.Kind == KindUnary {
					return true
				}
				if top.Kind != KindOperator {
					return false
				}
				if tok.Assoc == LeftAssoc {
					return tok.Prec <= top.Prec
				}
				return tok.Prec < top.Prec
			})
			ops = append(ops, tok)
		case KindLParen:
			ops = append(ops, tok)
		case KindRParen:
			found := false
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.Kind == KindLParen {
					found = true
					break
				}
				output = append(output, top)
			}
			if !found {
				return nil, errUnmatchedParens()
			}
		}
	}
	for len(ops) > 0 {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if top.Kind == KindLParen || top.Kind == KindRParen {
			return nil, errUnmatchedParens()
		}
		output = append(output, top)
	}
	return output, nil
}
