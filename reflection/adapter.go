// Package reflection defines the host reflection adapter contract the
// compiler uses to resolve members, methods, constructors, conversions,
// extension methods, and indexed access on host types (spec section 6).
//
// The evaluator never calls an Adapter: once the compiler has resolved a
// member/method/constructor/conversion to a concrete Member, Constructor,
// or Conversion value, that value is baked into the instruction stream and
// the VM invokes it directly, matching spec section 2 ("Used by the
// compiler only; the evaluator never reflects").
package reflection

import (
	"reflect"
)

// MemberKind distinguishes the three kinds of member an Adapter can return.
type MemberKind int

const (
	MethodMember MemberKind = iota
	PropertyMember
	FieldMember
)

// Member describes a single resolved member of a host type: a method,
// property, or field. Exactly one of Invoke (for MethodMember) or Get/Set
// (for PropertyMember/FieldMember) is meaningful, selected by Kind.
type Member struct {
	Name       string
	Kind       MemberKind
	Static     bool
	Type       reflect.Type   // property/field type, or method return type
	ParamTypes []reflect.Type // method parameter types; empty for properties/fields
	Variadic   bool

	// Get reads a property or field from receiver.
	Get func(receiver any) (any, error)

	// Set writes a property or field on receiver. Nil if the member is
	// read-only.
	Set func(receiver any, value any) error

	// Invoke calls a method on receiver (nil receiver for a static method
	// or an extension method's first bound argument, per ExtensionMethods)
	// with the given arguments.
	Invoke func(receiver any, args []any) (any, error)
}

// IsVoid returns true for a method with no return value. The compiler
// rejects calls to void methods (spec section 4.2, VoidMethodNotSupported).
func (m Member) IsVoid() bool {
	return m.Kind == MethodMember && m.Type == nil
}

// Constructor describes a resolved constructor for a host type.
type Constructor struct {
	Type       reflect.Type
	ParamTypes []reflect.Type
	New        func(args []any) (any, error)
}

// Conversion describes a resolved implicit or explicit conversion declared
// by a host type (as distinct from the builtin primitive conversions in
// package op, which the compiler also considers).
type Conversion struct {
	From    reflect.Type
	To      reflect.Type
	Convert func(v any) (any, error)
}

// Indexer describes the getter/setter pair backing a type's indexed access,
// either a Go array/slice/map's native indexing or a declared multi-arg
// "Item" indexer property.
type Indexer struct {
	IndexTypes []reflect.Type // type expected for each index argument
	ElemType   reflect.Type
	Get        func(subject any, indices []any) (any, error)
	Set        func(subject any, indices []any, value any) error // nil if read-only
}

// Adapter is the host-provided facility the compiler uses to discover
// members, conversions, constructors, and extension methods on host types.
// It is consulted only at compile time (spec section 6).
type Adapter interface {
	// LookupType returns the host type registered under name, if any. The
	// compiler consults this when a Reference or Constructor/
	// ExplicitConversion identifier does not name a bound variable, since
	// Go's reflect package has no name-keyed type registry of its own
	// (spec section 9).
	LookupType(name string) (reflect.Type, bool)

	// Members returns every member of type t named name. static selects
	// between static (type-level) and instance members. Implementations
	// may return more than one entry only for overloaded methods.
	Members(t reflect.Type, name string, static bool) []Member

	// Method returns the method on type t named name whose parameters
	// exactly match argTypes, if one exists.
	Method(t reflect.Type, name string, argTypes []reflect.Type) (Member, bool)

	// Constructor returns the constructor of type t whose parameters
	// exactly match argTypes, if one exists.
	Constructor(t reflect.Type, argTypes []reflect.Type) (Constructor, bool)

	// Conversions returns every host-declared conversion from type t in
	// the given direction ("implicit" or "explicit").
	Conversions(t reflect.Type, explicit bool) []Conversion

	// ExtensionMethods returns extension-style methods named name whose
	// first parameter accepts a receiver of type t. Spec section 9 allows
	// implementations for host languages lacking extension methods to
	// return nil unconditionally.
	ExtensionMethods(t reflect.Type, name string) []Member

	// Indexer returns the indexer for a multi-argument index expression
	// against subject's type, given the number of index arguments
	// supplied at the call site.
	Indexer(t reflect.Type, numIndices int) (Indexer, bool)
}
