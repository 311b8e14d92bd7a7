// Package vm executes a compiled ir.Instruction stream against an
// env.Environment. It is a single-pass stack evaluator: no frames, no
// jumps, no goroutines, and no context.Context, since the instruction
// stream the compiler produces has no branches or calls back into itself
// (spec section 5's Non-goals exclude statements, loops, and closures).
package vm

import (
	"fmt"
	"os"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/mrtrizer/Abuksigun.UpScript/env"
	"github.com/mrtrizer/Abuksigun.UpScript/errz"
	"github.com/mrtrizer/Abuksigun.UpScript/ir"
)

// Option configures a VirtualMachine. Follows the same functional-options
// shape as parser.Option and compiler.Option.
type Option func(*VirtualMachine)

// WithLogger overrides the VM's logger. Instruction execution is logged at
// Trace level, so nothing is emitted unless the host supplies a logger
// enabled at Trace level.
func WithLogger(logger zerolog.Logger) Option {
	return func(v *VirtualMachine) { v.logger = logger }
}

// VirtualMachine evaluates a single instruction stream against an
// Environment. It holds no state between calls to Run other than its
// logger and options, so one VirtualMachine can run many programs.
type VirtualMachine struct {
	logger zerolog.Logger
}

// New creates a VirtualMachine.
func New(opts ...Option) *VirtualMachine {
	v := &VirtualMachine{
		logger: zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run executes instructions against environment and returns the single
// value left on the stack. It is an error, rather than a panic, for the
// stream to leave the stack in any state other than exactly one value:
// that would mean the stream was malformed, which Compile should never
// produce on its own but a caller assembling a stream by hand might.
func (v *VirtualMachine) Run(instructions []ir.Instruction, environment env.Environment) (result any, err error) {
	// Belt-and-suspenders alongside callReflectFunc/callDelegate's own
	// recover: a panic the per-call recovery didn't anticipate (e.g. a
	// place implementation panicking outside of a host call) should still
	// surface as an error, not crash the embedding host (spec section 1).
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic during evaluation: %v", r)
		}
	}()
	ev := &evaluator{env: environment, logger: v.logger}
	for ip, instr := range instructions {
		v.logger.Trace().Int("ip", ip).Str("instr", instr.String()).Int("depth", len(ev.stack)).Msg("exec")
		if err := ev.step(ip, instr); err != nil {
			return nil, err
		}
	}
	if len(ev.stack) != 1 {
		return nil, &errz.InvalidLeftSide{Actual: fmt.Sprintf("%d values left on stack", len(ev.stack))}
	}
	return ev.readThrough(ev.stack[0])
}

// Run is the package-level convenience form of New().Run, the common case
// of a one-shot evaluation that needs no VM reuse beyond a single call.
func Run(instructions []ir.Instruction, environment env.Environment, opts ...Option) (any, error) {
	return New(opts...).Run(instructions, environment)
}

// evaluator holds the mutable state of a single Run call: the operand
// stack and a reference to the environment places read and write through.
type evaluator struct {
	env    env.Environment
	stack  []any
	logger zerolog.Logger
}

func (e *evaluator) push(v any) {
	e.stack = append(e.stack, v)
}

func (e *evaluator) pop() (any, error) {
	n := len(e.stack)
	if n == 0 {
		return nil, &errz.InvalidLeftSide{Actual: "empty stack"}
	}
	v := e.stack[n-1]
	e.stack = e.stack[:n-1]
	return v, nil
}

// readThrough resolves v to a concrete value: if v is a place, it reads
// through it (running the place's Get); otherwise it is already a value.
// The logic lives in place.go's package-level readThrough, since
// memberPlace/indexPlace need the same resolution for their own (lazily
// popped) subject/indices, without access to an evaluator.
func (e *evaluator) readThrough(v any) (any, error) {
	return readThrough(v)
}

// popValue pops the top of the stack and reads through it if it is a
// place. This is the normal way to consume an operand as an r-value.
func (e *evaluator) popValue() (any, error) {
	v, err := e.pop()
	if err != nil {
		return nil, err
	}
	return e.readThrough(v)
}

// popN pops n values off the stack, read-through, and reverses them back
// into their original push (source) order. Used by Call and Construct,
// whose arguments were pushed left to right.
func (e *evaluator) popN(n int) ([]any, error) {
	out := make([]any, n)
	for i := n - 1; i >= 0; i-- {
		v, err := e.popValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// popNRawOrdered pops n items off the stack, restoring them to source
// order, WITHOUT reading through places. Used by IndexPlace, whose
// subject and indices are specified to be read lazily, at the place's
// later get/set, not at the point IndexPlace itself executes.
func (e *evaluator) popNRawOrdered(n int) ([]any, error) {
	out := make([]any, n)
	for i := n - 1; i >= 0; i-- {
		v, err := e.pop()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// popNRaw pops n values off the stack, read-through, WITHOUT reversing,
// leaving them in reverse-of-source order. Used by RunDelegate, per the
// documented quirk in ir.RunDelegate and DESIGN.md: its arguments are
// passed to the host function exactly as popped, not restored to source
// order.
func (e *evaluator) popNRaw(n int) ([]any, error) {
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := e.popValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *evaluator) step(ip int, instr ir.Instruction) error {
	switch in := instr.(type) {
	case ir.Const:
		e.push(in.Value)
		return nil

	case ir.VarPlace:
		e.push(varPlace{env: e.env, name: in.Name})
		return nil

	case ir.MemberPlace:
		subject, err := e.pop()
		if err != nil {
			return err
		}
		e.push(memberPlace{member: in.Member, subject: subject})
		return nil

	case ir.IndexPlace:
		indices, err := e.popNRawOrdered(in.N)
		if err != nil {
			return err
		}
		subject, err := e.pop()
		if err != nil {
			return err
		}
		e.push(indexPlace{indexer: in.Indexer, subject: subject, indices: indices})
		return nil

	case ir.Call:
		args, err := e.popN(in.Arity)
		if err != nil {
			return err
		}
		result, err := in.Fn(args)
		if err != nil {
			return hostFailure(ip, fmt.Sprintf("call %s", in.Name), err)
		}
		e.push(result)
		return nil

	case ir.Construct:
		args, err := e.popN(in.Arity)
		if err != nil {
			return err
		}
		result, err := in.New(args)
		if err != nil {
			return hostFailure(ip, fmt.Sprintf("construct %s", in.Type), err)
		}
		e.push(result)
		return nil

	case ir.RunDelegate:
		args, err := e.popNRaw(in.Arity)
		if err != nil {
			return err
		}
		fn, err := e.popValue()
		if err != nil {
			return err
		}
		result, err := callDelegate(fn, args)
		if err != nil {
			return hostFailure(ip, "run delegate", err)
		}
		e.push(result)
		return nil

	case ir.SetOp:
		value, err := e.popValue()
		if err != nil {
			return err
		}
		target, err := e.pop()
		if err != nil {
			return err
		}
		p, ok := target.(place)
		if !ok {
			return &errz.InvalidLeftSide{Actual: fmt.Sprintf("%T", target)}
		}
		if err := p.set(value); err != nil {
			return hostFailure(ip, "assign", err)
		}
		e.push(value)
		return nil

	default:
		return &errz.InvalidLeftSide{Actual: fmt.Sprintf("unknown instruction %T", instr)}
	}
}

func hostFailure(ip int, description string, cause error) error {
	return &errz.HostInvocationFailed{
		Cause: cause,
		Stack: []errz.StackFrame{{Instruction: ip, Description: description}},
	}
}

// callDelegate invokes fn (the runtime value a RunDelegate instruction
// popped off the stack) with args, supporting both a plain Go func value
// and a host value implementing env.Callable. A cached Program may be
// re-Run against an environment whose binding type or arity has drifted
// since compilation (spec section 5, section 4.7), so a reflective
// argument mismatch here is recovered into an error rather than left to
// panic out of the library, the same convention callReflectFunc follows
// in package reflection.
func callDelegate(fn any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic calling delegate: %v", r)
		}
	}()
	if callable, ok := fn.(env.Callable); ok {
		return callable.Call(args)
	}
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("value of type %T is not callable", fn)
	}
	fnType := fnVal.Type()
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.Zero(fnType.In(minInt(i, fnType.NumIn()-1)))
			continue
		}
		in[i] = reflect.ValueOf(a)
	}
	var out []reflect.Value
	if fnType.IsVariadic() {
		out = fnVal.CallSlice(toVariadicArgs(fnType, in))
	} else {
		out = fnVal.Call(in)
	}
	return unpackResults(out)
}

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

func toVariadicArgs(fnType reflect.Type, in []reflect.Value) []reflect.Value {
	numIn := fnType.NumIn()
	fixed := numIn - 1
	if len(in) == numIn {
		last := in[numIn-1]
		if last.Type() == fnType.In(fixed) {
			return in
		}
	}
	variadicType := fnType.In(fixed)
	slice := reflect.MakeSlice(variadicType, 0, len(in)-fixed)
	for i := fixed; i < len(in); i++ {
		slice = reflect.Append(slice, in[i])
	}
	out := make([]reflect.Value, 0, fixed+1)
	out = append(out, in[:fixed]...)
	out = append(out, slice)
	return out
}

func unpackResults(results []reflect.Value) (any, error) {
	n := len(results)
	if n == 0 {
		return nil, nil
	}
	if results[n-1].Type() == errorInterface {
		if !results[n-1].IsNil() {
			return nil, results[n-1].Interface().(error)
		}
		results = results[:n-1]
		n--
	}
	if n == 0 {
		return nil, nil
	}
	return results[0].Interface(), nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
