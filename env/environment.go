// Package env defines the caller-supplied environment the compiler and VM
// consult for variable types/values and host functions (spec sections 3
// and 6). An Environment is owned by the caller and must remain valid for
// both compilation and every run of the resulting program.
package env

import "reflect"

// Environment is a mapping from identifier to host value. A binding may be
// a plain host value or a host function: any Go func value (reflection is
// used to discover its signature) or a value implementing Callable.
type Environment map[string]any

// New returns an empty Environment.
func New() Environment {
	return Environment{}
}

// Get returns the value bound to name and whether it is bound at all.
func (e Environment) Get(name string) (any, bool) {
	v, ok := e[name]
	return v, ok
}

// Set rebinds name to value. The VM calls it to perform a VarPlace write;
// the compiler only reads bindings and never calls Set.
func (e Environment) Set(name string, value any) {
	e[name] = value
}

// TypeOf returns the static type the compiler should assign to a Reference
// token naming a bound variable, or (nil, false) if name is not bound.
func (e Environment) TypeOf(name string) (reflect.Type, bool) {
	v, ok := e[name]
	if !ok {
		return nil, false
	}
	if v == nil {
		return nil, true
	}
	return reflect.TypeOf(v), true
}

// Callable is the interface a host binding may implement instead of being
// a plain Go func value, for hosts that want to avoid reflection-based
// calling or that need to describe a signature reflection cannot recover
// (for example, a function built at runtime from user configuration).
type Callable interface {
	// Call invokes the callable with already-converted arguments.
	Call(args []any) (any, error)

	// Signature reports the callable's parameter types, whether the last
	// parameter is variadic, and its return type (nil for void).
	Signature() (params []reflect.Type, variadic bool, ret reflect.Type)
}
