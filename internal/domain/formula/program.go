package formula

import (
	"math"
)

// Lookup resolves a field reference to a numeric value. The second return
// reports whether the reference was known; unknown references evaluate as 0
// and are reported back to the caller as unresolved.
type Lookup func(ref Ref) (float64, bool)

// Program is a compiled formula. Programs are immutable after Compile and
// safe for concurrent evaluation.
type Program struct {
	source string
	code   []instr
}

// Source returns the original expression text
func (p *Program) Source() string {
	return p.source
}

// Refs returns every field reference the program reads, in source order,
// with duplicates removed.
func (p *Program) Refs() []Ref {
	seen := make(map[Ref]struct{})
	var refs []Ref
	for _, in := range p.code {
		if in.op != opRef {
			continue
		}
		if _, ok := seen[in.ref]; ok {
			continue
		}
		seen[in.ref] = struct{}{}
		refs = append(refs, in.ref)
	}
	return refs
}

// Eval executes the program against the given lookup. Arithmetic follows
// IEEE-754 double semantics: 1/0 is +Inf, -1/0 is -Inf, 0/0 is NaN. The
// second return lists references the lookup could not resolve; each such
// reference contributed 0 to the result.
func (p *Program) Eval(lookup Lookup) (float64, []string) {
	stack := make([]float64, 0, len(p.code))
	var unresolved []string

	for _, in := range p.code {
		switch in.op {
		case opPush:
			stack = append(stack, in.num)
		case opRef:
			v, ok := 0.0, false
			if lookup != nil {
				v, ok = lookup(in.ref)
			}
			if !ok {
				v = 0
				unresolved = append(unresolved, in.ref.String())
			}
			stack = append(stack, v)
		case opNeg:
			stack[len(stack)-1] = -stack[len(stack)-1]
		case opCall:
			args := stack[len(stack)-in.argc:]
			result := callBuiltin(in.fn, args)
			stack = stack[:len(stack)-in.argc]
			stack = append(stack, result)
		default:
			b := stack[len(stack)-1]
			a := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			var v float64
			switch in.op {
			case opAdd:
				v = a + b
			case opSub:
				v = a - b
			case opMul:
				v = a * b
			case opDiv:
				v = a / b
			case opMod:
				v = math.Mod(a, b)
			case opPow:
				v = math.Pow(a, b)
			}
			stack = append(stack, v)
		}
	}
	return stack[len(stack)-1], unresolved
}

func callBuiltin(fn string, args []float64) float64 {
	switch fn {
	case "abs":
		return math.Abs(args[0])
	case "round":
		return math.Round(args[0])
	case "floor":
		return math.Floor(args[0])
	case "ceil":
		return math.Ceil(args[0])
	case "sqrt":
		return math.Sqrt(args[0])
	case "min":
		v := args[0]
		for _, a := range args[1:] {
			v = math.Min(v, a)
		}
		return v
	case "max":
		v := args[0]
		for _, a := range args[1:] {
			v = math.Max(v, a)
		}
		return v
	case "sum":
		v := 0.0
		for _, a := range args {
			v += a
		}
		return v
	case "avg":
		v := 0.0
		for _, a := range args {
			v += a
		}
		return v / float64(len(args))
	case "clamp":
		return math.Min(math.Max(args[0], args[1]), args[2])
	default:
		return math.NaN()
	}
}
