package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// RefKind distinguishes the two reference syntaxes a formula may use
type RefKind int

const (
	// RefBrace is the id form: {field_id} or {mapped.key}
	RefBrace RefKind = iota
	// RefBracket is the label form: [Field Label] or [Source.Field Label]
	RefBracket
)

// Ref is a single field reference inside a formula
type Ref struct {
	Kind RefKind
	Key  string
}

// String returns the reference in its original source syntax
func (r Ref) String() string {
	if r.Kind == RefBracket {
		return "[" + r.Key + "]"
	}
	return "{" + r.Key + "}"
}

type tokenType int

const (
	tokenNumber tokenType = iota
	tokenRef
	tokenOperator
	tokenFunction
	tokenLeftParen
	tokenRightParen
	tokenComma
)

type token struct {
	typ  tokenType
	num  float64
	ref  Ref
	text string // operator symbol or function name
	pos  int
}

// allowedFunctions is the closed set of callable names. Formulas come from
// user-authored form definitions, so anything outside this set is rejected
// rather than resolved against a wider runtime surface.
var allowedFunctions = map[string]struct {
	minArgs int
	maxArgs int // -1 means variadic
}{
	"abs":   {1, 1},
	"round": {1, 1},
	"floor": {1, 1},
	"ceil":  {1, 1},
	"sqrt":  {1, 1},
	"min":   {1, -1},
	"max":   {1, -1},
	"sum":   {1, -1},
	"avg":   {1, -1},
	"clamp": {3, 3},
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) done() bool {
	return l.pos >= len(l.input)
}

func (l *lexer) peek() byte {
	return l.input[l.pos]
}

// tokenize splits a formula string into tokens. It is the first half of
// Compile and reports syntax, reference, and disallowed-function errors
// with the offending position.
func tokenize(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token

	for !l.done() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c >= '0' && c <= '9' || c == '.':
			tok, err := l.scanNumber()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '{':
			tok, err := l.scanRef('{', '}', RefBrace)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '[':
			tok, err := l.scanRef('[', ']', RefBracket)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '}' || c == ']':
			return nil, newMalformedReferenceError(fmt.Sprintf("unexpected %q at position %d", string(c), l.pos))
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%' || c == '^':
			tokens = append(tokens, token{typ: tokenOperator, text: string(c), pos: l.pos})
			l.pos++
		case c == '(':
			tokens = append(tokens, token{typ: tokenLeftParen, text: "(", pos: l.pos})
			l.pos++
		case c == ')':
			tokens = append(tokens, token{typ: tokenRightParen, text: ")", pos: l.pos})
			l.pos++
		case c == ',':
			tokens = append(tokens, token{typ: tokenComma, text: ",", pos: l.pos})
			l.pos++
		case isIdentStart(rune(c)):
			tok, err := l.scanIdent()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		default:
			return nil, newSyntaxError(fmt.Sprintf("unexpected character %q at position %d", string(c), l.pos))
		}
	}
	return tokens, nil
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	seenDot := false
	for !l.done() {
		c := l.peek()
		if c == '.' {
			if seenDot {
				return token{}, newSyntaxError(fmt.Sprintf("malformed number at position %d", start))
			}
			seenDot = true
			l.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		l.pos++
	}
	text := l.input[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, newSyntaxError(fmt.Sprintf("malformed number %q at position %d", text, start))
	}
	return token{typ: tokenNumber, num: n, pos: start}, nil
}

func (l *lexer) scanRef(open, close byte, kind RefKind) (token, error) {
	start := l.pos
	l.pos++ // consume the opening delimiter
	end := strings.IndexByte(l.input[l.pos:], close)
	if end < 0 {
		return token{}, newMalformedReferenceError(fmt.Sprintf("unclosed %q at position %d", string(open), start))
	}
	key := strings.TrimSpace(l.input[l.pos : l.pos+end])
	if key == "" {
		return token{}, newMalformedReferenceError(fmt.Sprintf("empty reference at position %d", start))
	}
	if strings.IndexByte(key, open) >= 0 {
		return token{}, newMalformedReferenceError(fmt.Sprintf("nested %q at position %d", string(open), start))
	}
	l.pos += end + 1
	return token{typ: tokenRef, ref: Ref{Kind: kind, Key: key}, pos: start}, nil
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for !l.done() && isIdentPart(rune(l.peek())) {
		l.pos++
	}
	name := strings.ToLower(l.input[start:l.pos])

	// Only function calls are legal identifiers; a bare name has nothing
	// to bind to (field references use {..} or [..] syntax).
	rest := strings.TrimLeft(l.input[l.pos:], " \t")
	if !strings.HasPrefix(rest, "(") {
		return token{}, newSyntaxError(fmt.Sprintf("unexpected identifier %q at position %d", name, start))
	}
	if _, ok := allowedFunctions[name]; !ok {
		return token{}, newDisallowedFunctionError(name)
	}
	return token{typ: tokenFunction, text: name, pos: start}, nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
