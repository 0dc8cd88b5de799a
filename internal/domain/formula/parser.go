package formula

import (
	"fmt"
	"strings"
)

type opCode int

const (
	opPush opCode = iota
	opRef
	opAdd
	opSub
	opMul
	opDiv
	opMod
	opPow
	opNeg
	opCall
)

type instr struct {
	op   opCode
	num  float64
	ref  Ref
	fn   string
	argc int
}

const (
	frameOp = iota
	frameNeg
	frameParen
	frameFunc
)

type opFrame struct {
	kind int
	sym  string
	fn   string
	argc int
	pos  int
}

func binaryPrec(sym string) int {
	switch sym {
	case "^":
		return 3
	case "*", "/", "%":
		return 2
	default:
		return 1
	}
}

// rightAssoc reports operators that group right to left, so 2^3^2 is 2^9
func rightAssoc(sym string) bool {
	return sym == "^"
}

func binaryOp(sym string) opCode {
	switch sym {
	case "+":
		return opAdd
	case "-":
		return opSub
	case "*":
		return opMul
	case "%":
		return opMod
	case "^":
		return opPow
	default:
		return opDiv
	}
}

// parse converts a token stream into postfix instructions using the
// shunting-yard algorithm. Unary minus binds tighter than any binary
// operator and function arity is checked here, at compile time.
func parse(tokens []token) ([]instr, error) {
	var output []instr
	var stack []opFrame
	expectOperand := true

	popTop := func() {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.kind == frameNeg {
			output = append(output, instr{op: opNeg})
		} else {
			output = append(output, instr{op: binaryOp(top.sym)})
		}
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.typ {
		case tokenNumber:
			if !expectOperand {
				return nil, newSyntaxError(fmt.Sprintf("unexpected number at position %d", tok.pos))
			}
			output = append(output, instr{op: opPush, num: tok.num})
			expectOperand = false

		case tokenRef:
			if !expectOperand {
				return nil, newSyntaxError(fmt.Sprintf("unexpected reference %s at position %d", tok.ref, tok.pos))
			}
			output = append(output, instr{op: opRef, ref: tok.ref})
			expectOperand = false

		case tokenFunction:
			if !expectOperand {
				return nil, newSyntaxError(fmt.Sprintf("unexpected function %q at position %d", tok.text, tok.pos))
			}
			// The lexer guarantees a "(" follows; consume it together
			// with the function so the frame carries its own arg count.
			i++
			stack = append(stack, opFrame{kind: frameFunc, fn: tok.text, argc: 0, pos: tok.pos})
			expectOperand = true

		case tokenLeftParen:
			if !expectOperand {
				return nil, newSyntaxError(fmt.Sprintf("unexpected %q at position %d", "(", tok.pos))
			}
			stack = append(stack, opFrame{kind: frameParen, pos: tok.pos})
			expectOperand = true

		case tokenComma:
			if expectOperand {
				return nil, newSyntaxError(fmt.Sprintf("unexpected %q at position %d", ",", tok.pos))
			}
			for len(stack) > 0 && stack[len(stack)-1].kind != frameFunc && stack[len(stack)-1].kind != frameParen {
				popTop()
			}
			if len(stack) == 0 || stack[len(stack)-1].kind != frameFunc {
				return nil, newSyntaxError(fmt.Sprintf("unexpected %q at position %d", ",", tok.pos))
			}
			stack[len(stack)-1].argc++
			expectOperand = true

		case tokenRightParen:
			for len(stack) > 0 && stack[len(stack)-1].kind != frameFunc && stack[len(stack)-1].kind != frameParen {
				popTop()
			}
			if len(stack) == 0 {
				return nil, newSyntaxError(fmt.Sprintf("unmatched %q at position %d", ")", tok.pos))
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.kind == frameParen {
				if expectOperand {
					return nil, newSyntaxError(fmt.Sprintf("empty parentheses at position %d", top.pos))
				}
			} else {
				argc := top.argc + 1
				if expectOperand {
					argc = 0
				}
				if err := checkArity(top.fn, argc, top.pos); err != nil {
					return nil, err
				}
				output = append(output, instr{op: opCall, fn: top.fn, argc: argc})
			}
			expectOperand = false

		case tokenOperator:
			if expectOperand {
				switch tok.text {
				case "-":
					stack = append(stack, opFrame{kind: frameNeg, pos: tok.pos})
				case "+":
					// unary plus is a no-op
				default:
					return nil, newSyntaxError(fmt.Sprintf("unexpected %q at position %d", tok.text, tok.pos))
				}
				continue
			}
			prec := binaryPrec(tok.text)
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				topWins := top.kind == frameOp &&
					(binaryPrec(top.sym) > prec ||
						(binaryPrec(top.sym) == prec && !rightAssoc(tok.text)))
				if top.kind == frameNeg || topWins {
					popTop()
					continue
				}
				break
			}
			stack = append(stack, opFrame{kind: frameOp, sym: tok.text, pos: tok.pos})
			expectOperand = true
		}
	}

	if expectOperand {
		return nil, newSyntaxError("expression ends with an operator")
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.kind == frameParen || top.kind == frameFunc {
			return nil, newSyntaxError(fmt.Sprintf("unmatched %q at position %d", "(", top.pos))
		}
		popTop()
	}
	return output, nil
}

func checkArity(fn string, argc, pos int) error {
	spec := allowedFunctions[fn]
	if argc < spec.minArgs {
		return newSyntaxError(fmt.Sprintf("%s expects at least %d argument(s) at position %d", fn, spec.minArgs, pos))
	}
	if spec.maxArgs >= 0 && argc > spec.maxArgs {
		return newSyntaxError(fmt.Sprintf("%s expects at most %d argument(s) at position %d", fn, spec.maxArgs, pos))
	}
	return nil
}

// Compile parses an expression into an executable Program. An empty or
// blank expression yields ErrNoValue, never a zero-valued program.
func Compile(expression string) (*Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrNoValue
	}
	tokens, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	code, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Program{source: expression, code: code}, nil
}
