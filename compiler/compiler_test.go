package compiler

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtrizer/Abuksigun.UpScript/env"
	"github.com/mrtrizer/Abuksigun.UpScript/errz"
	"github.com/mrtrizer/Abuksigun.UpScript/ir"
	"github.com/mrtrizer/Abuksigun.UpScript/op"
	"github.com/mrtrizer/Abuksigun.UpScript/parser"
	"github.com/mrtrizer/Abuksigun.UpScript/reflection"
)

func compileText(t *testing.T, text string, environment env.Environment) (Result, error) {
	t.Helper()
	tok, err := parser.Parse(text)
	require.NoError(t, err, "parsing %q", text)
	return Compile(tok, environment)
}

func compileTextWithOpts(t *testing.T, text string, environment env.Environment, opts ...Option) (Result, error) {
	t.Helper()
	tok, err := parser.Parse(text)
	require.NoError(t, err, "parsing %q", text)
	return Compile(tok, environment, opts...)
}

func TestCompileLiteral(t *testing.T) {
	result, err := compileText(t, "42", env.New())
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
	require.Len(t, result.Instructions, 1)
	assert.Equal(t, ir.Const{Value: int32(42)}, result.Instructions[0])
}

func TestCompileBinaryWithImplicitConversion(t *testing.T) {
	// int + double: the table has no int/double overload, so the
	// implicit-conversion search promotes the int side to double, the
	// table's every arithmetic overload being monomorphic.
	result, err := compileText(t, "1 + 2.0", env.New())
	require.NoError(t, err)
	assert.Equal(t, op.DoubleType(), result.Type)
	require.Len(t, result.Instructions, 3)
	call, ok := result.Instructions[2].(ir.Call)
	require.True(t, ok)
	assert.Equal(t, 2, call.Arity)
}

func TestCompileStringConcatenation(t *testing.T) {
	result, err := compileText(t, `"a" + "b"`, env.New())
	require.NoError(t, err)
	assert.Equal(t, op.StringType(), result.Type)
}

func TestCompileComparisonAndLogical(t *testing.T) {
	result, err := compileText(t, "10 < 20", env.New())
	require.NoError(t, err)
	assert.Equal(t, op.BoolType(), result.Type)
}

func TestCompileUnaryNegation(t *testing.T) {
	result, err := compileText(t, "-5", env.New())
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
}

func TestCompileVariableReference(t *testing.T) {
	e := env.New()
	e.Set("x", int32(10))
	result, err := compileText(t, "x", e)
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
	require.Len(t, result.Instructions, 1)
	assert.Equal(t, ir.VarPlace{Name: "x", Type: op.IntType()}, result.Instructions[0])
}

func TestCompileIncrementEmitsDoubleRead(t *testing.T) {
	e := env.New()
	e.Set("x", int32(10))
	result, err := compileText(t, "++x", e)
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
	// VarPlace, VarPlace, Call(increment), SetOp.
	require.Len(t, result.Instructions, 4)
	assert.Equal(t, ir.VarPlace{Name: "x", Type: op.IntType()}, result.Instructions[0])
	assert.Equal(t, ir.VarPlace{Name: "x", Type: op.IntType()}, result.Instructions[1])
	_, isCall := result.Instructions[2].(ir.Call)
	assert.True(t, isCall)
	assert.Equal(t, ir.SetOp{}, result.Instructions[3])
}

func TestCompileIncrementRequiresPlace(t *testing.T) {
	_, err := compileText(t, "++5", env.New())
	require.Error(t, err)
	var target *errz.IncrementRequiresPlace
	assert.ErrorAs(t, err, &target)
}

func TestCompileIncrementRequiresPrimitive(t *testing.T) {
	e := env.New()
	e.Set("s", "hello")
	_, err := compileText(t, "++s", e)
	require.Error(t, err)
	var target *errz.IncrementRequiresPrimitive
	assert.ErrorAs(t, err, &target)
}

func TestCompileExplicitConversion(t *testing.T) {
	result, err := compileText(t, "(int)3.0", env.New())
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
	require.Len(t, result.Instructions, 2)
}

func TestCompileExplicitConversionNoPath(t *testing.T) {
	e := env.New()
	e.Set("b", true)
	_, err := compileText(t, "(int)b", e)
	require.Error(t, err)
	var target *errz.NoExplicitConversion
	assert.ErrorAs(t, err, &target)
}

func TestCompileAssignment(t *testing.T) {
	e := env.New()
	e.Set("x", int32(1))
	result, err := compileText(t, "x = 5", e)
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
	require.Len(t, result.Instructions, 3)
	assert.Equal(t, ir.SetOp{}, result.Instructions[2])
}

func TestCompileInvalidAssignmentTarget(t *testing.T) {
	_, err := compileText(t, "1 = 2", env.New())
	require.Error(t, err)
	var target *errz.InvalidAssignmentTarget
	assert.ErrorAs(t, err, &target)
}

func TestCompileUnknownIdentifier(t *testing.T) {
	_, err := compileText(t, "doesNotExist", env.New())
	require.Error(t, err)
	var target *errz.UnknownIdentifier
	assert.ErrorAs(t, err, &target)
}

func TestCompileMethodNotFound(t *testing.T) {
	_, err := compileText(t, "true + 1", env.New())
	require.Error(t, err)
	var target *errz.MethodNotFound
	assert.ErrorAs(t, err, &target)
}

func TestCompileFieldAccess(t *testing.T) {
	type Point struct{ X, Y int32 }
	e := env.New()
	e.Set("p", Point{X: 1, Y: 2})
	result, err := compileText(t, "p.X", e)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), result.Type)
	require.Len(t, result.Instructions, 2)
	_, ok := result.Instructions[1].(ir.MemberPlace)
	assert.True(t, ok)
}

type greeter struct{ name string }

func (g greeter) Greet(prefix string) string { return prefix + g.name }

func TestCompileMethodCall(t *testing.T) {
	e := env.New()
	e.Set("g", greeter{name: "World"})
	result, err := compileText(t, `g.Greet("Hello ")`, e)
	require.NoError(t, err)
	assert.Equal(t, op.StringType(), result.Type)
	require.Len(t, result.Instructions, 3)
	call, ok := result.Instructions[2].(ir.Call)
	require.True(t, ok)
	assert.Equal(t, 2, call.Arity) // receiver + 1 explicit argument
}

type voider struct{}

func (voider) DoNothing() {}

func TestCompileVoidMethodNotSupported(t *testing.T) {
	e := env.New()
	e.Set("v", voider{})
	_, err := compileText(t, "v.DoNothing()", e)
	require.Error(t, err)
	var target *errz.VoidMethodNotSupported
	assert.ErrorAs(t, err, &target)
}

func TestCompileDelegateCall(t *testing.T) {
	e := env.New()
	e.Set("double", func(x int32) int32 { return x * 2 })
	result, err := compileText(t, "double(21)", e)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), result.Type)
	last := result.Instructions[len(result.Instructions)-1]
	_, ok := last.(ir.RunDelegate)
	assert.True(t, ok)
}

func TestCompileCallableDelegate(t *testing.T) {
	e := env.New()
	e.Set("c", callableAdder{})
	result, err := compileText(t, "c(1, 2)", e)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), result.Type)
	last := result.Instructions[len(result.Instructions)-1]
	delegate, ok := last.(ir.RunDelegate)
	require.True(t, ok)
	assert.Equal(t, 2, delegate.Arity)
}

type callableAdder struct{}

func (callableAdder) Call(args []any) (any, error) {
	return args[0].(int32) + args[1].(int32), nil
}

func (callableAdder) Signature() ([]reflect.Type, bool, reflect.Type) {
	return []reflect.Type{reflect.TypeOf(int32(0)), reflect.TypeOf(int32(0))}, false, reflect.TypeOf(int32(0))
}

func TestCompileSliceIndex(t *testing.T) {
	e := env.New()
	e.Set("arr", []int32{10, 20, 30})
	result, err := compileText(t, "arr[1]", e)
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(int32(0)), result.Type)
	last := result.Instructions[len(result.Instructions)-1]
	_, ok := last.(ir.IndexPlace)
	assert.True(t, ok)
}

func TestCompileTwoDimensionalIndex(t *testing.T) {
	e := env.New()
	e.Set("grid", map[[2]int32]int32{})
	// a declared multi-arg Item indexer is registered by the host adapter
	// in a full integration, not the bare ReflectAdapter; here we only
	// check that a 2-argument Index token against a type with no
	// registered indexer fails cleanly.
	_, err := compileText(t, "grid[1, 2]", e)
	require.Error(t, err)
	var target *errz.MethodNotFound
	assert.ErrorAs(t, err, &target)
}

func TestCompileConstructorNotFound(t *testing.T) {
	_, err := compileText(t, "new int(1)", env.New())
	require.Error(t, err)
}

type coordGrid struct{}

func registerCoordGridIndexer(a *reflection.ReflectAdapter) {
	a.RegisterIndexer(reflect.TypeOf(coordGrid{}), reflect.TypeOf(""),
		[]reflect.Type{reflect.TypeOf(int32(0)), reflect.TypeOf(int32(0))},
		func(g coordGrid, row, col int32) string { return fmt.Sprintf("%d%d", row, col) }, nil)
}

func TestCompileMultiArgIndex(t *testing.T) {
	adapter := reflection.NewReflectAdapter()
	registerCoordGridIndexer(adapter)
	e := env.New()
	e.Set("test", coordGrid{})
	result, err := compileTextWithOpts(t, "test[5, 3]", e, WithAdapter(adapter))
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf(""), result.Type)
	last := result.Instructions[len(result.Instructions)-1]
	idx, ok := last.(ir.IndexPlace)
	require.True(t, ok)
	assert.Equal(t, 2, idx.N)
}

func TestCompileIndexArgumentTypeMismatch(t *testing.T) {
	// coordGrid's indexer declares two int32 index positions; a string
	// argument has no identity match and no registered conversion to
	// int32, so this must fail to compile rather than silently index with
	// a garbage-converted value.
	adapter := reflection.NewReflectAdapter()
	registerCoordGridIndexer(adapter)
	e := env.New()
	e.Set("test", coordGrid{})
	_, err := compileTextWithOpts(t, `test["x", 3]`, e, WithAdapter(adapter))
	require.Error(t, err)
	var target *errz.MethodNotFound
	assert.ErrorAs(t, err, &target)
}

func TestCompileIndexArgumentArityMismatch(t *testing.T) {
	// coordGrid's indexer is registered for exactly two index positions;
	// Adapter.Indexer does not itself check arity for a custom indexer, so
	// compileIndex must reject a one-argument index expression instead of
	// emitting an IndexPlace with too few indices.
	adapter := reflection.NewReflectAdapter()
	registerCoordGridIndexer(adapter)
	e := env.New()
	e.Set("test", coordGrid{})
	_, err := compileTextWithOpts(t, "test[5]", e, WithAdapter(adapter))
	require.Error(t, err)
	var target *errz.MethodNotFound
	assert.ErrorAs(t, err, &target)
}

func TestCompileIndexArgumentImplicitConversion(t *testing.T) {
	// arr is []int32; indexing with a float64 literal has no identity
	// match but op.ImplicitConversions(double) does not include int, so
	// this must still fail to compile. Indexing with an int32-convertible
	// value (here, plain int32 itself) is the baseline success case;
	// TestCompileSliceIndex already covers that directly.
	e := env.New()
	e.Set("arr", []int32{1, 2, 3})
	_, err := compileText(t, "arr[1.5]", e)
	require.Error(t, err)
	var target *errz.MethodNotFound
	assert.ErrorAs(t, err, &target)
}

func TestCompileNestedExpression(t *testing.T) {
	// Spec section 8 scenario 2, wrapped in an outer (int) cast so the
	// compiled type is the int the scenario's "cast to int via
	// cast-from-float" checks against.
	e := env.New()
	e.Set("test", int32(10))
	e.Set("max", func(a, b int32) int32 {
		if a > b {
			return a
		}
		return b
	})
	e.Set("abs", func(x int32) int32 {
		if x < 0 {
			return -x
		}
		return x
	})
	result, err := compileText(t, "(int)((float)- -2 / 3 + abs(50) + - -test * max(10, 20 * 20) +20 + 2+3*4* -(5 + 6))", e)
	require.NoError(t, err)
	assert.Equal(t, op.IntType(), result.Type)
}
