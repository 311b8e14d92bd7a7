package compiler

import (
	"reflect"

	"github.com/mrtrizer/Abuksigun.UpScript/errz"
	"github.com/mrtrizer/Abuksigun.UpScript/op"
)

// maxConversionCombinations bounds the cartesian search over implicit
// conversions the way spec section 9 requires, so a call with many
// overloads and many convertible argument positions cannot make
// compilation blow up combinatorially.
const maxConversionCombinations = 16

// candidate is one way of supplying a given argument position: either the
// identity (no conversion) or a specific implicit conversion's target
// type and converter function.
type candidate struct {
	resultType reflect.Type
	convert    func(any) (any, error) // nil for identity
}

// resolveCall implements spec section 4.2's method resolution: an exact
// match against the builtin table or a host extension method, and
// failing that, a cartesian search over implicit conversions at each
// argument position, identity-first, capped at
// maxConversionCombinations combinations. It returns an invoker ready to
// be embedded in an ir.Call.
func (c *compiler) resolveCall(name string, argTypes []reflect.Type, loc errz.SourceLocation) (func(args []any) (any, error), reflect.Type, error) {
	if overload, ok := op.Lookup(name, argTypes); ok {
		return overload.Invoke, overload.ReturnType, nil
	}
	if exact := c.findExtensionExact(name, argTypes); exact != nil {
		return exact.Invoke, exact.Type, nil
	}


	candidates := make([][]candidate, len(argTypes))
	for i, t := range argTypes {
		candidates[i] = c.candidatesFor(t)
	}

	combos := cartesian(candidates, maxConversionCombinations)
	for _, combo := range combos {
		convertedTypes := make([]reflect.Type, len(combo))
		for i, cand := range combo {
			convertedTypes[i] = cand.resultType
		}
		if overload, ok := op.Lookup(name, convertedTypes); ok {
			return wrapWithConversions(combo, overload.Invoke), overload.ReturnType, nil
		}
		if m := c.findExtensionExact(name, convertedTypes); m != nil {
			return wrapWithConversions(combo, m.Invoke), m.Type, nil
		}
	}

	return nil, nil, &errz.MethodNotFound{Name: name, ArgTypes: typeNames(argTypes), Location: loc}
}

// extensionMatch adapts a reflection.Member (whose Invoke takes a
// receiver) to the plain args-only shape resolveCall needs for operators,
// which have no receiver.
type extensionMatch struct {
	Type   reflect.Type
	Invoke func(args []any) (any, error)
}

func (c *compiler) findExtensionExact(name string, argTypes []reflect.Type) *extensionMatch {
	if len(argTypes) == 0 {
		return nil
	}
	for _, m := range c.adapter.ExtensionMethods(argTypes[0], name) {
		if !paramsExactMatch(m.ParamTypes, argTypes[1:]) {
			continue
		}
		member := m
		return &extensionMatch{Type: m.Type, Invoke: func(args []any) (any, error) {
			return member.Invoke(args[0], args[1:])
		}}
	}
	return nil
}

// candidatesFor lists every way argument type t can be supplied: identity
// first, then every registered implicit conversion (builtin primitive
// conversions from package op, then host-declared ones), so a combo
// generated in order tries the all-identity combination first.
func (c *compiler) candidatesFor(t reflect.Type) []candidate {
	out := []candidate{{resultType: t}}
	for _, conv := range op.ImplicitConversions(t) {
		out = append(out, candidate{resultType: conv.To, convert: conv.Convert})
	}
	for _, conv := range c.adapter.Conversions(t, false) {
		out = append(out, candidate{resultType: conv.To, convert: conv.Convert})
	}
	return out
}

// cartesian enumerates the product of candidates across positions,
// identity-first, stopping once limit combinations have been produced.
func cartesian(candidates [][]candidate, limit int) [][]candidate {
	if len(candidates) == 0 {
		return [][]candidate{{}}
	}
	var out [][]candidate
	indices := make([]int, len(candidates))
	for len(out) < limit {
		combo := make([]candidate, len(candidates))
		for i, idx := range indices {
			combo[i] = candidates[i][idx]
		}
		out = append(out, combo)

		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(candidates[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
	return out
}

// wrapWithConversions applies each position's conversion (identity
// positions pass the argument through unchanged) before delegating to
// invoke, so the instruction stream's Fn still takes the original,
// unconverted runtime arguments.
func wrapWithConversions(combo []candidate, invoke func(args []any) (any, error)) func(args []any) (any, error) {
	return func(args []any) (any, error) {
		converted := make([]any, len(args))
		for i, a := range args {
			if combo[i].convert == nil {
				converted[i] = a
				continue
			}
			v, err := combo[i].convert(a)
			if err != nil {
				return nil, err
			}
			converted[i] = v
		}
		return invoke(converted)
	}
}
