// Package op is the builtin operator table: a static, read-only registry of
// monomorphic primitive operators (arithmetic, comparison, logical,
// increment/decrement) plus the minimum set of implicit/explicit primitive
// conversions spec section 4.4 requires. It is consulted by the compiler
// before it falls back to the host reflection adapter, and never touched by
// the evaluator, matching spec section 2's leaf-component layering.
package op

import (
	"fmt"
	"reflect"
)

// Overload is one monomorphic entry in the builtin operator table: an exact
// argument type list and the Go function that implements it.
type Overload struct {
	Name       string
	ParamTypes []reflect.Type
	ReturnType reflect.Type
	Invoke     func(args []any) (any, error)
}

// Arity returns the number of arguments this overload expects.
func (o Overload) Arity() int {
	return len(o.ParamTypes)
}

var table = map[string][]Overload{}

func register(name string, paramTypes []reflect.Type, returnType reflect.Type, fn func(args []any) (any, error)) {
	table[name] = append(table[name], Overload{
		Name:       name,
		ParamTypes: paramTypes,
		ReturnType: returnType,
		Invoke:     fn,
	})
}

// Lookup returns the builtin overload registered for name whose parameter
// types exactly match argTypes, if any. This is the exact-match step of
// compiler method resolution (spec section 4.2, step 1) before implicit
// conversions are considered.
func Lookup(name string, argTypes []reflect.Type) (Overload, bool) {
	for _, o := range table[name] {
		if typesEqual(o.ParamTypes, argTypes) {
			return o, true
		}
	}
	return Overload{}, false
}

// Overloads returns every registered overload for an operator name, in
// registration order. The compiler does not use it: its implicit-conversion
// search calls Lookup once per converted argument-type combination.
func Overloads(name string) []Overload {
	return table[name]
}

func typesEqual(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func init() {
	registerArithmetic()
	registerComparison()
	registerEquality()
	registerLogical()
	registerUnary()
	registerIncrementDecrement()
	registerConversions()
}

// numeric pairs addition/subtraction/multiplication/division/modulo over,
// one entry per of the four primitive numeric kinds plus string
// concatenation for Addition. Modulo is registered for int and long only.
func registerArithmetic() {
	registerNumericBinary(Addition, func(a, b int32) (any, error) { return a + b, nil },
		func(a, b int64) (any, error) { return a + b, nil },
		func(a, b float32) (any, error) { return a + b, nil },
		func(a, b float64) (any, error) { return a + b, nil })
	register(Addition, []reflect.Type{stringType, stringType}, stringType, func(args []any) (any, error) {
		return args[0].(string) + args[1].(string), nil
	})

	registerNumericBinary(Subtraction, func(a, b int32) (any, error) { return a - b, nil },
		func(a, b int64) (any, error) { return a - b, nil },
		func(a, b float32) (any, error) { return a - b, nil },
		func(a, b float64) (any, error) { return a - b, nil })

	registerNumericBinary(Multiplication, func(a, b int32) (any, error) { return a * b, nil },
		func(a, b int64) (any, error) { return a * b, nil },
		func(a, b float32) (any, error) { return a * b, nil },
		func(a, b float64) (any, error) { return a * b, nil })

	registerNumericBinary(Division,
		func(a, b int32) (any, error) {
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a / b, nil
		},
		func(a, b int64) (any, error) {
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a / b, nil
		},
		func(a, b float32) (any, error) { return a / b, nil },
		func(a, b float64) (any, error) { return a / b, nil })

	registerNumericBinary(Modulo,
		func(a, b int32) (any, error) {
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a % b, nil
		},
		func(a, b int64) (any, error) {
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return a % b, nil
		},
		nil, nil)
}

// registerNumericBinary registers a binary overload for each of the four
// primitive numeric kinds whose Go implementation is non-nil, saving the
// repetition of register() calls for every arithmetic operator.
func registerNumericBinary(name string,
	intFn func(a, b int32) (any, error),
	longFn func(a, b int64) (any, error),
	floatFn func(a, b float32) (any, error),
	doubleFn func(a, b float64) (any, error)) {
	if intFn != nil {
		register(name, []reflect.Type{intType, intType}, intType, func(args []any) (any, error) {
			return intFn(args[0].(int32), args[1].(int32))
		})
	}
	if longFn != nil {
		register(name, []reflect.Type{longType, longType}, longType, func(args []any) (any, error) {
			return longFn(args[0].(int64), args[1].(int64))
		})
	}
	if floatFn != nil {
		register(name, []reflect.Type{floatType, floatType}, floatType, func(args []any) (any, error) {
			return floatFn(args[0].(float32), args[1].(float32))
		})
	}
	if doubleFn != nil {
		register(name, []reflect.Type{doubleType, doubleType}, doubleType, func(args []any) (any, error) {
			return doubleFn(args[0].(float64), args[1].(float64))
		})
	}
}

func registerComparison() {
	type entry struct {
		name string
		cmp  func(c int) bool
	}
	entries := []entry{
		{LessThan, func(c int) bool { return c < 0 }},
		{LessThanOrEqual, func(c int) bool { return c <= 0 }},
		{GreaterThan, func(c int) bool { return c > 0 }},
		{GreaterThanOrEqual, func(c int) bool { return c >= 0 }},
	}
	for _, e := range entries {
		cmp := e.cmp
		register(e.name, []reflect.Type{intType, intType}, boolType, func(args []any) (any, error) {
			return cmp(compareOrdered(args[0].(int32), args[1].(int32))), nil
		})
		register(e.name, []reflect.Type{longType, longType}, boolType, func(args []any) (any, error) {
			return cmp(compareOrdered(args[0].(int64), args[1].(int64))), nil
		})
		register(e.name, []reflect.Type{floatType, floatType}, boolType, func(args []any) (any, error) {
			return cmp(compareOrdered(args[0].(float32), args[1].(float32))), nil
		})
		register(e.name, []reflect.Type{doubleType, doubleType}, boolType, func(args []any) (any, error) {
			return cmp(compareOrdered(args[0].(float64), args[1].(float64))), nil
		})
		register(e.name, []reflect.Type{stringType, stringType}, boolType, func(args []any) (any, error) {
			a, b := args[0].(string), args[1].(string)
			switch {
			case a < b:
				return cmp(-1), nil
			case a > b:
				return cmp(1), nil
			default:
				return cmp(0), nil
			}
		})
	}
}

func compareOrdered[T int32 | int64 | float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func registerEquality() {
	for _, t := range []reflect.Type{boolType, intType, longType, floatType, doubleType, charType, stringType} {
		register(Equality, []reflect.Type{t, t}, boolType, func(args []any) (any, error) {
			return args[0] == args[1], nil
		})
		register(Inequality, []reflect.Type{t, t}, boolType, func(args []any) (any, error) {
			return args[0] != args[1], nil
		})
	}
}

func registerLogical() {
	register(LogicalAnd, []reflect.Type{boolType, boolType}, boolType, func(args []any) (any, error) {
		return args[0].(bool) && args[1].(bool), nil
	})
	register(LogicalOr, []reflect.Type{boolType, boolType}, boolType, func(args []any) (any, error) {
		return args[0].(bool) || args[1].(bool), nil
	})
	register(LogicalNot, []reflect.Type{boolType}, boolType, func(args []any) (any, error) {
		return !args[0].(bool), nil
	})
}

func registerUnary() {
	register(UnaryNegation, []reflect.Type{intType}, intType, func(args []any) (any, error) {
		return -args[0].(int32), nil
	})
	register(UnaryNegation, []reflect.Type{longType}, longType, func(args []any) (any, error) {
		return -args[0].(int64), nil
	})
	register(UnaryNegation, []reflect.Type{floatType}, floatType, func(args []any) (any, error) {
		return -args[0].(float32), nil
	})
	register(UnaryNegation, []reflect.Type{doubleType}, doubleType, func(args []any) (any, error) {
		return -args[0].(float64), nil
	})
}

func registerIncrementDecrement() {
	register(Increment, []reflect.Type{intType}, intType, func(args []any) (any, error) {
		return args[0].(int32) + 1, nil
	})
	register(Increment, []reflect.Type{longType}, longType, func(args []any) (any, error) {
		return args[0].(int64) + 1, nil
	})
	register(Increment, []reflect.Type{floatType}, floatType, func(args []any) (any, error) {
		return args[0].(float32) + 1, nil
	})
	register(Increment, []reflect.Type{doubleType}, doubleType, func(args []any) (any, error) {
		return args[0].(float64) + 1, nil
	})
	register(Decrement, []reflect.Type{intType}, intType, func(args []any) (any, error) {
		return args[0].(int32) - 1, nil
	})
	register(Decrement, []reflect.Type{longType}, longType, func(args []any) (any, error) {
		return args[0].(int64) - 1, nil
	})
	register(Decrement, []reflect.Type{floatType}, floatType, func(args []any) (any, error) {
		return args[0].(float32) - 1, nil
	})
	register(Decrement, []reflect.Type{doubleType}, doubleType, func(args []any) (any, error) {
		return args[0].(float64) - 1, nil
	})
}
