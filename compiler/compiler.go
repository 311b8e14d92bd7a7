// Package compiler lowers a token.Token tree into an ir.Instruction
// stream, resolving every operator, method, constructor, and conversion
// statically against spec section 4.2's builtin operator table and a
// reflection.Adapter over the compile-time environment.
package compiler

import (
	"os"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/mrtrizer/Abuksigun.UpScript/env"
	"github.com/mrtrizer/Abuksigun.UpScript/errz"
	"github.com/mrtrizer/Abuksigun.UpScript/ir"
	"github.com/mrtrizer/Abuksigun.UpScript/op"
	"github.com/mrtrizer/Abuksigun.UpScript/reflection"
	"github.com/mrtrizer/Abuksigun.UpScript/token"
)

// Result is what Compile produces: the static type the expression
// evaluates to, and the instruction stream that computes it.
type Result struct {
	Type         reflect.Type
	Instructions []ir.Instruction
}

// Option configures a compiler. Follows the teacher's functional-options
// shape (parser.Option, vm.Option).
type Option func(*compiler)

// WithLogger overrides the compiler's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *compiler) { c.logger = logger }
}

// WithAdapter overrides the reflection.Adapter used to resolve host
// members, constructors, conversions, and indexers. The default is
// reflection.NewReflectAdapter().
func WithAdapter(adapter reflection.Adapter) Option {
	return func(c *compiler) { c.adapter = adapter }
}

type compiler struct {
	environment  env.Environment
	adapter      reflection.Adapter
	logger       zerolog.Logger
	instructions []ir.Instruction
}

// operand tracks what the chain accumulator currently represents: either
// a runtime value of a known static type (the common case) or a bare
// reference to a host type name awaiting a static member access
// (Type.Member), which has no runtime representation of its own and so
// emits no instruction.
type operand struct {
	valueType reflect.Type
	isType    bool
	typeRef   reflect.Type
}

// Compile lowers tok into an instruction stream evaluated against
// environment's static types. Run may later execute the result against a
// different, compatible Environment.
func Compile(tok *token.Token, environment env.Environment, opts ...Option) (Result, error) {
	c := &compiler{
		environment: environment,
		adapter:     reflection.NewReflectAdapter(),
		logger:      zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	acc, err := c.compileNode(tok)
	if err != nil {
		return Result{}, err
	}
	if acc.isType {
		return Result{}, &errz.UnknownIdentifier{Name: acc.typeRef.Name(), Location: errz.AtOffset(tok.Span.Start)}
	}
	return Result{Type: acc.valueType, Instructions: c.instructions}, nil
}

func (c *compiler) emit(instr ir.Instruction) {
	c.instructions = append(c.instructions, instr)
}

func (c *compiler) lastInstruction() ir.Instruction {
	if len(c.instructions) == 0 {
		return nil
	}
	return c.instructions[len(c.instructions)-1]
}

// placeType returns the declared type of the place instr pushes, or nil
// if instr does not push a place at all.
func placeType(instr ir.Instruction) (reflect.Type, bool) {
	switch v := instr.(type) {
	case ir.VarPlace:
		return v.Type, true
	case ir.MemberPlace:
		return v.Member.Type, true
	case ir.IndexPlace:
		return v.Indexer.ElemType, true
	default:
		return nil, false
	}
}

// compileNode lowers a single token into instructions, returning the
// static type of the value it leaves on the stack (or a type reference,
// for a bare Reference to a host type name awaiting a static member
// access).
func (c *compiler) compileNode(tok *token.Token) (operand, error) {
	switch tok.Kind {
	case token.Literal:
		c.emit(ir.Const{Value: tok.Value})
		return operand{valueType: reflect.TypeOf(tok.Value)}, nil

	case token.Reference:
		name, _ := tok.Value.(string)
		if v, ok := c.environment.Get(name); ok {
			t := callableFuncType(v)
			if t == nil {
				t, _ = c.environment.TypeOf(name)
			}
			c.emit(ir.VarPlace{Name: name, Type: t})
			return operand{valueType: t}, nil
		}
		if t, ok := c.adapter.LookupType(name); ok {
			return operand{isType: true, typeRef: t}, nil
		}
		return operand{}, &errz.UnknownIdentifier{Name: name, Location: errz.AtOffset(tok.Span.Start)}

	case token.Constructor:
		return c.compileConstructor(tok)

	case token.Block:
		return c.compileBlock(tok)

	default:
		return operand{}, &errz.UnknownIdentifier{Name: tok.Kind.String(), Location: errz.AtOffset(tok.Span.Start)}
	}
}

func (c *compiler) compileBlock(tok *token.Token) (operand, error) {
	children := tok.Children
	if len(children) == 2 && children[0].Kind == token.Unary {
		return c.compileUnary(tok, children[0], children[1])
	}
	if len(children) == 2 && children[0].Kind == token.Increment {
		return c.compileIncrement(tok, children[1])
	}
	if len(children) == 2 && children[0].Kind == token.ExplicitConversion {
		return c.compileExplicitConversion(tok, children[0], children[1])
	}
	return c.compileChain(children)
}

func (c *compiler) compileUnary(tok, opTok, operandTok *token.Token) (operand, error) {
	rhs, err := c.compileNode(operandTok)
	if err != nil {
		return operand{}, err
	}
	if rhs.isType {
		lexeme, _ := opTok.Value.(string)
		return operand{}, &errz.MethodNotFound{Name: lexeme, Location: errz.AtOffset(opTok.Span.Start)}
	}
	lexeme, _ := opTok.Value.(string)
	name, _ := op.UnaryOperatorName(lexeme)
	invoke, ret, err := c.resolveCall(name, []reflect.Type{rhs.valueType}, errz.AtOffset(opTok.Span.Start))
	if err != nil {
		return operand{}, err
	}
	c.emit(ir.Call{Name: name, Arity: 1, Fn: invoke, Return: ret})
	return operand{valueType: ret}, nil
}

func (c *compiler) compileIncrement(tok, operandTok *token.Token) (operand, error) {
	rhs, err := c.compileNode(operandTok)
	if err != nil {
		return operand{}, err
	}
	pt, isPlace := placeType(c.lastInstruction())
	if rhs.isType || !isPlace {
		return operand{}, &errz.IncrementRequiresPlace{Location: errz.AtOffset(operandTok.Span.Start)}
	}
	if !op.IsNumeric(pt) {
		return operand{}, &errz.IncrementRequiresPrimitive{Type: pt.String(), Location: errz.AtOffset(operandTok.Span.Start)}
	}
	// re-compile the operand to get a second, independent copy of the
	// place instructions: one copy is consumed for the read, the other
	// is left beneath the new value for SetOp.
	if _, err := c.compileNode(operandTok); err != nil {
		return operand{}, err
	}

	lexeme, _ := tok.Children[0].Value.(string)
	name, _ := op.IncrementOperatorName(lexeme)
	invoke, ret, err := c.resolveCall(name, []reflect.Type{pt}, errz.AtOffset(tok.Span.Start))
	if err != nil {
		return operand{}, err
	}
	c.emit(ir.Call{Name: name, Arity: 1, Fn: invoke, Return: ret})
	c.emit(ir.SetOp{})
	return operand{valueType: ret}, nil
}

func (c *compiler) compileExplicitConversion(tok, convTok, operandTok *token.Token) (operand, error) {
	rhs, err := c.compileNode(operandTok)
	if err != nil {
		return operand{}, err
	}
	if rhs.isType {
		return operand{}, &errz.UnknownIdentifier{Name: convTok.Value.(string), Location: errz.AtOffset(convTok.Span.Start)}
	}
	typeName, _ := convTok.Value.(string)
	target, ok := c.lookupTypeName(typeName)
	if !ok {
		return operand{}, &errz.UnknownIdentifier{Name: typeName, Location: errz.AtOffset(convTok.Span.Start)}
	}
	if target == rhs.valueType {
		return rhs, nil
	}
	for _, conv := range op.ExplicitConversions(rhs.valueType) {
		if conv.To == target {
			c.emit(ir.Call{Name: op.Explicit, Arity: 1, Fn: wrap1(conv.Convert), Return: target})
			return operand{valueType: target}, nil
		}
	}
	for _, conv := range c.adapter.Conversions(rhs.valueType, true) {
		if conv.To == target {
			c.emit(ir.Call{Name: op.Explicit, Arity: 1, Fn: wrap1(conv.Convert), Return: target})
			return operand{valueType: target}, nil
		}
	}
	for _, conv := range op.ImplicitConversions(rhs.valueType) {
		if conv.To == target {
			c.emit(ir.Call{Name: op.Implicit, Arity: 1, Fn: wrap1(conv.Convert), Return: target})
			return operand{valueType: target}, nil
		}
	}
	for _, conv := range c.adapter.Conversions(rhs.valueType, false) {
		if conv.To == target {
			c.emit(ir.Call{Name: op.Implicit, Arity: 1, Fn: wrap1(conv.Convert), Return: target})
			return operand{valueType: target}, nil
		}
	}
	return operand{}, &errz.NoExplicitConversion{From: rhs.valueType.String(), To: typeName, Location: errz.AtOffset(convTok.Span.Start)}
}

func (c *compiler) compileConstructor(tok *token.Token) (operand, error) {
	typeName, _ := tok.Value.(string)
	target, ok := c.lookupTypeName(typeName)
	if !ok {
		return operand{}, &errz.UnknownIdentifier{Name: typeName, Location: errz.AtOffset(tok.Span.Start)}
	}
	argTypes := make([]reflect.Type, 0, len(tok.Children))
	for _, argTok := range tok.Children {
		arg, err := c.compileNode(argTok)
		if err != nil {
			return operand{}, err
		}
		if arg.isType {
			return operand{}, &errz.UnknownIdentifier{Name: arg.typeRef.Name(), Location: errz.AtOffset(argTok.Span.Start)}
		}
		argTypes = append(argTypes, arg.valueType)
	}
	if ctor, ok := c.adapter.Constructor(target, argTypes); ok {
		c.emit(ir.Construct{Type: target, Arity: len(argTypes), New: ctor.New})
		return operand{valueType: target}, nil
	}
	return operand{}, &errz.MethodNotFound{Name: "new " + typeName, ArgTypes: typeNames(argTypes), Location: errz.AtOffset(tok.Span.Start)}
}

// compileChain walks a left-to-right chain of [operand, operator,
// operand, operator, operand, ...] children -- the shape Additive,
// Comparison, Term, RSExpression, BlockValue, and LSExpression all
// produce -- threading an accumulated operand through Binary, Setter,
// MemberRef, Function, and Index children.
func (c *compiler) compileChain(children []*token.Token) (operand, error) {
	acc, err := c.compileNode(children[0])
	if err != nil {
		return operand{}, err
	}
	i := 1
	for i < len(children) {
		child := children[i]
		switch child.Kind {
		case token.Binary:
			rhs, err := c.compileNode(children[i+1])
			if err != nil {
				return operand{}, err
			}
			lexeme, _ := child.Value.(string)
			if acc.isType || rhs.isType {
				return operand{}, &errz.MethodNotFound{Name: lexeme, Location: errz.AtOffset(child.Span.Start)}
			}
			name, _ := op.BinaryOperatorName(lexeme)
			invoke, ret, err := c.resolveCall(name, []reflect.Type{acc.valueType, rhs.valueType}, errz.AtOffset(child.Span.Start))
			if err != nil {
				return operand{}, err
			}
			c.emit(ir.Call{Name: name, Arity: 2, Fn: invoke, Return: ret})
			acc = operand{valueType: ret}
			i += 2

		case token.Setter:
			if _, isPlace := placeType(c.lastInstruction()); acc.isType || !isPlace {
				return operand{}, &errz.InvalidAssignmentTarget{Location: errz.AtOffset(child.Span.Start)}
			}
			rhs, err := c.compileNode(children[i+1])
			if err != nil {
				return operand{}, err
			}
			if rhs.isType {
				return operand{}, &errz.InvalidAssignmentTarget{Location: errz.AtOffset(child.Span.Start)}
			}
			c.emit(ir.SetOp{})
			acc = rhs
			i += 2

		case token.MemberRef:
			name, _ := child.Value.(string)
			if i+1 < len(children) && children[i+1].Kind == token.Function {
				acc, err = c.compileMethodCall(acc, name, children[i+1], child)
				if err != nil {
					return operand{}, err
				}
				i += 2
				continue
			}
			acc, err = c.compileMemberAccess(acc, name, child)
			if err != nil {
				return operand{}, err
			}
			i++

		case token.Function:
			acc, err = c.compileDelegateCall(acc, child)
			if err != nil {
				return operand{}, err
			}
			i++

		case token.Index:
			acc, err = c.compileIndex(acc, child)
			if err != nil {
				return operand{}, err
			}
			i++

		default:
			return operand{}, &errz.UnknownIdentifier{Name: child.Kind.String(), Location: errz.AtOffset(child.Span.Start)}
		}
	}
	return acc, nil
}

func (c *compiler) compileMemberAccess(acc operand, name string, at *token.Token) (operand, error) {
	receiverType := acc.valueType
	if acc.isType {
		receiverType = acc.typeRef
	}
	for _, m := range c.adapter.Members(receiverType, name, acc.isType) {
		if m.Kind != reflection.MethodMember {
			c.emit(ir.MemberPlace{Member: m})
			return operand{valueType: m.Type}, nil
		}
	}
	return operand{}, &errz.MethodNotFound{Name: name, Location: errz.AtOffset(at.Span.Start)}
}

func (c *compiler) compileMethodCall(acc operand, name string, fnTok, memberTok *token.Token) (operand, error) {
	argTypes, err := c.compileArgs(fnTok)
	if err != nil {
		return operand{}, err
	}
	receiverType := acc.valueType
	static := acc.isType
	if static {
		receiverType = acc.typeRef
	}
	candidates := c.adapter.Members(receiverType, name, static)
	if !static {
		candidates = append(candidates, c.adapter.ExtensionMethods(receiverType, name)...)
	}
	for _, m := range candidates {
		if m.Kind != reflection.MethodMember {
			continue
		}
		if !variadicAwareParamsMatch(m, argTypes) {
			continue
		}
		if m.IsVoid() {
			return operand{}, &errz.VoidMethodNotSupported{Name: name, Location: errz.AtOffset(memberTok.Span.Start)}
		}
		arity := len(argTypes)
		if !static {
			arity++
		}
		member := m
		c.emit(ir.Call{Name: name, Arity: arity, Fn: func(args []any) (any, error) {
			if static {
				return member.Invoke(nil, args)
			}
			return member.Invoke(args[0], args[1:])
		}, Return: m.Type})
		return operand{valueType: m.Type}, nil
	}
	return operand{}, &errz.MethodNotFound{Name: name, ArgTypes: typeNames(argTypes), Location: errz.AtOffset(memberTok.Span.Start)}
}

func (c *compiler) compileDelegateCall(acc operand, fnTok *token.Token) (operand, error) {
	if acc.isType {
		return operand{}, &errz.MethodNotFound{Name: "()", Location: errz.AtOffset(fnTok.Span.Start)}
	}
	if acc.valueType.Kind() != reflect.Func {
		return operand{}, &errz.MethodNotFound{Name: "()", ArgTypes: []string{acc.valueType.String()}, Location: errz.AtOffset(fnTok.Span.Start)}
	}
	argTypes, err := c.compileArgs(fnTok)
	if err != nil {
		return operand{}, err
	}
	if !variadicAwareMatch(acc.valueType, argTypes) {
		return operand{}, &errz.MethodNotFound{Name: "()", ArgTypes: typeNames(argTypes), Location: errz.AtOffset(fnTok.Span.Start)}
	}
	ret := reflect.TypeOf((*any)(nil)).Elem()
	if acc.valueType.NumOut() > 0 {
		ret = acc.valueType.Out(0)
	}
	c.emit(ir.RunDelegate{Arity: len(argTypes)})
	return operand{valueType: ret}, nil
}

func (c *compiler) compileIndex(acc operand, idxTok *token.Token) (operand, error) {
	if acc.isType {
		return operand{}, &errz.MethodNotFound{Name: "[]", Location: errz.AtOffset(idxTok.Span.Start)}
	}
	indexer, ok := c.adapter.Indexer(acc.valueType, len(idxTok.Children))
	if !ok || len(indexer.IndexTypes) != len(idxTok.Children) {
		return operand{}, &errz.MethodNotFound{Name: "[]", ArgTypes: []string{acc.valueType.String()}, Location: errz.AtOffset(idxTok.Span.Start)}
	}
	for i, argTok := range idxTok.Children {
		arg, err := c.compileNode(argTok)
		if err != nil {
			return operand{}, err
		}
		if arg.isType {
			return operand{}, &errz.MethodNotFound{Name: "[]", Location: errz.AtOffset(argTok.Span.Start)}
		}
		target := indexer.IndexTypes[i]
		convert, ok := c.resolveIndexArgConversion(arg.valueType, target)
		if !ok {
			return operand{}, &errz.MethodNotFound{Name: "[]", ArgTypes: []string{arg.valueType.String()}, Location: errz.AtOffset(argTok.Span.Start)}
		}
		if convert != nil {
			c.emit(ir.Call{Name: "[]", Arity: 1, Return: target, Fn: func(args []any) (any, error) {
				return convert(args[0])
			}})
		}
	}
	c.emit(ir.IndexPlace{Indexer: indexer, N: len(idxTok.Children)})
	return operand{valueType: indexer.ElemType}, nil
}

// resolveIndexArgConversion resolves argType against an indexer's declared
// index type the same way resolveCall resolves an operator/method
// argument: exact match first, then a builtin implicit conversion, then a
// host-declared implicit conversion. Returns (nil, true) for an exact
// match, which requires no conversion instruction.
func (c *compiler) resolveIndexArgConversion(argType, target reflect.Type) (func(any) (any, error), bool) {
	if argType == target {
		return nil, true
	}
	for _, conv := range op.ImplicitConversions(argType) {
		if conv.To == target {
			return conv.Convert, true
		}
	}
	for _, conv := range c.adapter.Conversions(argType, false) {
		if conv.To == target {
			return conv.Convert, true
		}
	}
	return nil, false
}

func (c *compiler) compileArgs(fnTok *token.Token) ([]reflect.Type, error) {
	argTypes := make([]reflect.Type, 0, len(fnTok.Children))
	for _, argTok := range fnTok.Children {
		arg, err := c.compileNode(argTok)
		if err != nil {
			return nil, err
		}
		if arg.isType {
			return nil, &errz.UnknownIdentifier{Name: arg.typeRef.Name(), Location: errz.AtOffset(argTok.Span.Start)}
		}
		argTypes = append(argTypes, arg.valueType)
	}
	return argTypes, nil
}

func (c *compiler) lookupTypeName(name string) (reflect.Type, bool) {
	switch name {
	case "bool":
		return op.BoolType(), true
	case "int":
		return op.IntType(), true
	case "long":
		return op.LongType(), true
	case "float":
		return op.FloatType(), true
	case "double":
		return op.DoubleType(), true
	case "char":
		return op.CharType(), true
	case "string":
		return op.StringType(), true
	}
	return c.adapter.LookupType(name)
}

// callableFuncType synthesizes a reflect.Func type from an env.Callable
// binding's declared Signature, so compileDelegateCall's plain
// acc.valueType.Kind() == reflect.Func check also recognizes a host value
// that opted out of reflection-based calling (see env.Callable) without
// needing a separate code path of its own.
func callableFuncType(v any) reflect.Type {
	callable, ok := v.(env.Callable)
	if !ok {
		return nil
	}
	params, variadic, ret := callable.Signature()
	var outs []reflect.Type
	if ret != nil {
		outs = []reflect.Type{ret}
	}
	return reflect.FuncOf(params, outs, variadic)
}

func wrap1(convert func(any) (any, error)) func([]any) (any, error) {
	return func(args []any) (any, error) { return convert(args[0]) }
}

func typeNames(types []reflect.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

func paramsExactMatch(declared, actual []reflect.Type) bool {
	if len(declared) != len(actual) {
		return false
	}
	for i := range declared {
		if declared[i] != actual[i] {
			return false
		}
	}
	return true
}

func variadicAwareParamsMatch(m reflection.Member, argTypes []reflect.Type) bool {
	if m.Variadic {
		n := len(m.ParamTypes)
		if len(argTypes) < n-1 {
			return false
		}
		for i := 0; i < n-1; i++ {
			if m.ParamTypes[i] != argTypes[i] {
				return false
			}
		}
		elem := m.ParamTypes[n-1].Elem()
		for i := n - 1; i < len(argTypes); i++ {
			if argTypes[i] != elem {
				return false
			}
		}
		return true
	}
	return paramsExactMatch(m.ParamTypes, argTypes)
}

func variadicAwareMatch(fnType reflect.Type, argTypes []reflect.Type) bool {
	n := fnType.NumIn()
	if fnType.IsVariadic() {
		if len(argTypes) < n-1 {
			return false
		}
		for i := 0; i < n-1; i++ {
			if fnType.In(i) != argTypes[i] {
				return false
			}
		}
		elem := fnType.In(n - 1).Elem()
		for i := n - 1; i < len(argTypes); i++ {
			if argTypes[i] != elem {
				return false
			}
		}
		return true
	}
	if len(argTypes) != n {
		return false
	}
	for i := 0; i < n; i++ {
		if fnType.In(i) != argTypes[i] {
			return false
		}
	}
	return true
}
