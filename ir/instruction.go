// Package ir defines the compiled instruction stream: the postfix sequence
// of opaque items the compiler emits and the VM consumes (spec section 3's
// Instruction stream table). Each concrete type below corresponds to
// exactly one row of that table.
package ir

import (
	"fmt"
	"reflect"

	"github.com/mrtrizer/Abuksigun.UpScript/reflection"
)

// Instruction is the marker interface every instruction stream item
// implements. The set of implementations is closed and exhaustive with
// respect to spec section 3's table; the VM switches on concrete type.
type Instruction interface {
	fmt.Stringer
	isInstruction()
}

// Const pushes a literal primitive value onto the stack.
type Const struct {
	Value any
}

func (Const) isInstruction() {}
func (c Const) String() string {
	return fmt.Sprintf("CONST %#v", c.Value)
}

// Call pops Arity values (read-through any places, then reversed into
// argument order), invokes Fn, and pushes the result. Fn wraps a resolved
// builtin operator, host method, or host function.
type Call struct {
	Name   string
	Arity  int
	Fn     func(args []any) (any, error)
	Return reflect.Type
}

func (Call) isInstruction() {}
func (c Call) String() string {
	return fmt.Sprintf("CALL %s/%d", c.Name, c.Arity)
}

// Construct pops Arity values (read-through, reversed), constructs a value
// of Type, and pushes it.
type Construct struct {
	Type  reflect.Type
	Arity int
	New   func(args []any) (any, error)
}

func (Construct) isInstruction() {}
func (c Construct) String() string {
	return fmt.Sprintf("CONSTRUCT %s/%d", c.Type, c.Arity)
}

// RunDelegate pops N args (read-through) and passes them in the order they
// were popped, last-pushed first, NOT reversed back into source order; it
// then pops a host-function value (read-through), invokes it with those
// args, and pushes the result. Spec section 4.3 and the open question in spec
// section 9 call out that RunDelegate's argument order is push order while
// Call/Construct reverse; this repository follows the spec's literal
// wording and keeps push order here. See DESIGN.md.
type RunDelegate struct {
	Arity int
}

func (RunDelegate) isInstruction() {}
func (r RunDelegate) String() string {
	return fmt.Sprintf("RUN_DELEGATE/%d", r.Arity)
}

// VarPlace pushes a place-token denoting the variable Name.
type VarPlace struct {
	Name string
	Type reflect.Type
}

func (VarPlace) isInstruction() {}
func (v VarPlace) String() string {
	return fmt.Sprintf("VAR_PLACE %s", v.Name)
}

// MemberPlace pushes a place-token denoting a member of the object on top
// of the stack (the subject is popped lazily, at read/write time).
type MemberPlace struct {
	Member reflection.Member
}

func (MemberPlace) isInstruction() {}
func (m MemberPlace) String() string {
	return fmt.Sprintf("MEMBER_PLACE .%s", m.Member.Name)
}

// IndexPlace pushes a place-token denoting subject[idx1..idxN]. N indices
// and the subject are popped lazily, at read/write time.
type IndexPlace struct {
	Indexer reflection.Indexer
	N       int
}

func (IndexPlace) isInstruction() {}
func (i IndexPlace) String() string {
	return fmt.Sprintf("INDEX_PLACE/%d", i.N)
}

// SetOp pops an r-value (read-through), pops a place, performs the
// assignment, and pushes the assigned value.
type SetOp struct{}

func (SetOp) isInstruction() {}
func (SetOp) String() string {
	return "SET"
}
