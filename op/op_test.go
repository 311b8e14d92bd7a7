package op

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdditionInt(t *testing.T) {
	o, ok := Lookup(Addition, []reflect.Type{IntType(), IntType()})
	require.True(t, ok)
	result, err := o.Invoke([]any{int32(10), int32(20)})
	require.NoError(t, err)
	assert.Equal(t, int32(30), result)
}

func TestAdditionString(t *testing.T) {
	o, ok := Lookup(Addition, []reflect.Type{StringType(), StringType()})
	require.True(t, ok)
	result, err := o.Invoke([]any{"foo", "bar"})
	require.NoError(t, err)
	assert.Equal(t, "foobar", result)
}

func TestDivisionByZero(t *testing.T) {
	o, ok := Lookup(Division, []reflect.Type{IntType(), IntType()})
	require.True(t, ok)
	_, err := o.Invoke([]any{int32(1), int32(0)})
	assert.Error(t, err)
}

func TestComparison(t *testing.T) {
	o, ok := Lookup(LessThan, []reflect.Type{IntType(), IntType()})
	require.True(t, ok)
	result, err := o.Invoke([]any{int32(10), int32(20)})
	require.NoError(t, err)
	assert.Equal(t, true, result)
}

func TestNoMatchReturnsFalse(t *testing.T) {
	_, ok := Lookup(Addition, []reflect.Type{BoolType(), BoolType()})
	assert.False(t, ok)
}

func TestImplicitConversions(t *testing.T) {
	convs := ImplicitConversions(IntType())
	var toFloat bool
	var toString bool
	for _, c := range convs {
		if c.To == FloatType() {
			toFloat = true
		}
		if c.To == StringType() {
			toString = true
		}
	}
	assert.True(t, toFloat)
	assert.True(t, toString)
}

func TestExplicitConversions(t *testing.T) {
	convs := ExplicitConversions(FloatType())
	require.Len(t, convs, 1)
	assert.Equal(t, IntType(), convs[0].To)
	v, err := convs[0].Convert(float32(3.9))
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
}

func TestIncrementDecrement(t *testing.T) {
	o, ok := Lookup(Increment, []reflect.Type{IntType()})
	require.True(t, ok)
	v, err := o.Invoke([]any{int32(5)})
	require.NoError(t, err)
	assert.Equal(t, int32(6), v)

	o, ok = Lookup(Decrement, []reflect.Type{DoubleType()})
	require.True(t, ok)
	v, err = o.Invoke([]any{float64(5)})
	require.NoError(t, err)
	assert.Equal(t, float64(4), v)
}

func TestBinaryOperatorName(t *testing.T) {
	name, ok := BinaryOperatorName("<=")
	require.True(t, ok)
	assert.Equal(t, LessThanOrEqual, name)

	_, ok = BinaryOperatorName("??")
	assert.False(t, ok)
}
