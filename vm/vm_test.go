package vm

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtrizer/Abuksigun.UpScript/compiler"
	"github.com/mrtrizer/Abuksigun.UpScript/env"
	"github.com/mrtrizer/Abuksigun.UpScript/errz"
	"github.com/mrtrizer/Abuksigun.UpScript/parser"
)

// runText parses, compiles, and evaluates text against environment, the
// full pipeline end to end, since the VM's correctness is only meaningful
// against instruction streams the compiler actually produces.
func runText(t *testing.T, text string, environment env.Environment) (any, error) {
	t.Helper()
	tok, err := parser.Parse(text)
	require.NoError(t, err)
	result, err := compiler.Compile(tok, environment)
	if err != nil {
		return nil, err
	}
	return Run(result.Instructions, environment)
}

func TestRunLiteral(t *testing.T) {
	v, err := runText(t, "42", env.New())
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)
}

func TestRunComparison(t *testing.T) {
	v, err := runText(t, "10 < 20", env.New())
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestRunLargeExpression(t *testing.T) {
	e := env.New()
	e.Set("test", int32(394))
	e.Set("abs", func(x int32) int32 {
		if x < 0 {
			return -x
		}
		return x
	})
	e.Set("max", func(a, b int32) int32 {
		if a > b {
			return a
		}
		return b
	})
	v, err := runText(t, "10 + max(abs(10), abs(20)) * test", e)
	require.NoError(t, err)
	assert.Equal(t, int32(10+20*394), v)
}

func TestRunParenthesizedLogical(t *testing.T) {
	e := env.New()
	e.Set("test", int32(10))
	v, err := runText(t, "(10.0 - -20) == 30 && (test * 10 == 100)", e)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestRunImplicitStringConversion(t *testing.T) {
	e := env.New()
	e.Set("n", int32(5))
	v, err := runText(t, `"count: " + n`, e)
	require.NoError(t, err)
	assert.Equal(t, "count: 5", v)
}

func TestRunAssignment(t *testing.T) {
	e := env.New()
	e.Set("x", int32(1))
	v, err := runText(t, "x = 5", e)
	require.NoError(t, err)
	assert.Equal(t, int32(5), v)
	stored, _ := e.Get("x")
	assert.Equal(t, int32(5), stored)
}

func TestRunChainedAssignment(t *testing.T) {
	type holder struct{ Field int32 }
	e := env.New()
	e.Set("testInt", int32(0))
	e.Set("test", &holder{})
	v, err := runText(t, "testInt = test.field = 10", e)
	require.Error(t, err) // "field" is not exported, Go requires capitalized names
	_ = v
	assert.Contains(t, err.Error(), "field")
}

func TestRunChainedAssignmentExportedField(t *testing.T) {
	type holder struct{ Field int32 }
	e := env.New()
	e.Set("testInt", int32(0))
	e.Set("test", &holder{})
	v, err := runText(t, "testInt = test.Field = 10", e)
	require.NoError(t, err)
	assert.Equal(t, int32(10), v)
	stored, _ := e.Get("testInt")
	assert.Equal(t, int32(10), stored)
}

func TestRunIndexerReadModifyWrite(t *testing.T) {
	e := env.New()
	e.Set("arr", []int32{1, 2, 3})
	v, err := runText(t, "arr[1] = arr[1] + 100", e)
	require.NoError(t, err)
	assert.Equal(t, int32(102), v)
	arr, _ := e.Get("arr")
	assert.Equal(t, int32(102), arr.([]int32)[1])
}

func TestRunIncrementWritesBack(t *testing.T) {
	e := env.New()
	e.Set("x", int32(10))
	v, err := runText(t, "++x", e)
	require.NoError(t, err)
	assert.Equal(t, int32(11), v)
	stored, _ := e.Get("x")
	assert.Equal(t, int32(11), stored)
}

func TestRunDelegateCallArgumentOrder(t *testing.T) {
	// RunDelegate intentionally keeps reverse-of-source argument order
	// (see ir.RunDelegate and DESIGN.md); a subtraction makes the order
	// observable, unlike the commutative examples elsewhere in this file.
	e := env.New()
	e.Set("sub", func(a, b int32) int32 { return a - b })
	v, err := runText(t, "sub(10, 3)", e)
	require.NoError(t, err)
	assert.Equal(t, int32(3-10), v)
}

type callableAdder struct{}

func (callableAdder) Call(args []any) (any, error) {
	return args[0].(int32) + args[1].(int32), nil
}

func (callableAdder) Signature() ([]reflect.Type, bool, reflect.Type) {
	return []reflect.Type{reflect.TypeOf(int32(0)), reflect.TypeOf(int32(0))}, false, reflect.TypeOf(int32(0))
}

func TestRunCallableDelegate(t *testing.T) {
	e := env.New()
	e.Set("add", callableAdder{})
	v, err := runText(t, "add(2, 3)", e)
	require.NoError(t, err)
	assert.Equal(t, int32(5), v)
}

func TestRunHostInvocationFailureWraps(t *testing.T) {
	e := env.New()
	e.Set("fail", func() (int32, error) { return 0, assertErr })
	v, err := runText(t, "fail()", e)
	assert.Nil(t, v)
	require.Error(t, err)
	var target *errz.HostInvocationFailed
	require.ErrorAs(t, err, &target)
	assert.NotEmpty(t, target.Stack)
}

var assertErr = errShortSentinel("boom")

type errShortSentinel string

func (e errShortSentinel) Error() string { return string(e) }
