package formula

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	braceRefPattern   = regexp.MustCompile(`\{([^{}]+)\}`)
	bracketRefPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)
)

// Resolve substitutes every reference in the expression with its bound
// numeric value, returning the substituted expression and the references no
// value was found for. Unresolved references substitute the literal 0 so
// the expression stays evaluable; callers must treat a non-empty unresolved
// list as a data-quality warning, not a legitimate zero.
//
// Substituted values are numeric literals produced by this package, never
// raw caller strings, so substitution cannot inject new syntax.
func Resolve(expression string, binding *Binding) (string, []string) {
	var unresolved []string

	substitute := func(kind RefKind) func(string) string {
		return func(match string) string {
			key := strings.TrimSpace(match[1 : len(match)-1])
			ref := Ref{Kind: kind, Key: key}
			v, ok := binding.Lookup(ref)
			if !ok {
				unresolved = append(unresolved, ref.String())
				return "0"
			}
			return formatNumber(v)
		}
	}

	out := braceRefPattern.ReplaceAllStringFunc(expression, substitute(RefBrace))
	out = bracketRefPattern.ReplaceAllStringFunc(out, substitute(RefBracket))
	return out, unresolved
}

func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v < 0 {
		return "(" + s + ")"
	}
	return s
}

// KnownRefs is the set of declared reference targets a formula may use
type KnownRefs struct {
	IDs    map[string]struct{}
	Labels map[string]struct{}
}

// NewKnownRefs builds the known-reference set from field ids, mapped keys,
// and field labels
func NewKnownRefs(ids, labels []string) KnownRefs {
	k := KnownRefs{
		IDs:    make(map[string]struct{}, len(ids)),
		Labels: make(map[string]struct{}, len(labels)),
	}
	for _, id := range ids {
		k.IDs[id] = struct{}{}
	}
	for _, label := range labels {
		k.Labels[label] = struct{}{}
	}
	return k
}

// ValidateReferences checks that every reference in the expression resolves
// to a declared field. It returns the specific unknown references so the
// caller can pinpoint the broken one, rather than a bare boolean. A blank
// expression has no references and validates clean.
func ValidateReferences(expression string, known KnownRefs) ([]string, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}
	p, err := Compile(expression)
	if err != nil {
		return nil, err
	}
	var unknown []string
	for _, ref := range p.Refs() {
		if ref.Kind == RefBracket {
			if _, ok := known.Labels[ref.Key]; !ok {
				unknown = append(unknown, ref.String())
			}
			continue
		}
		if _, ok := known.IDs[ref.Key]; !ok {
			unknown = append(unknown, ref.String())
		}
	}
	return unknown, nil
}
