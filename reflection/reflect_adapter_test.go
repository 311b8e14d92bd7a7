package reflection

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ X, Y int32 }

func (p point) Dist() int32 { return p.X + p.Y }

func (p *point) SetX(x int32) { p.X = x }

func TestMembersFindsExportedField(t *testing.T) {
	a := NewReflectAdapter()
	members := a.Members(reflect.TypeOf(point{}), "X", false)
	require.Len(t, members, 1)
	assert.Equal(t, FieldMember, members[0].Kind)
}

func TestMembersFindsMethod(t *testing.T) {
	a := NewReflectAdapter()
	members := a.Members(reflect.TypeOf(point{}), "Dist", false)
	require.Len(t, members, 1)
	assert.Equal(t, MethodMember, members[0].Kind)
	v, err := members[0].Invoke(point{X: 1, Y: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
}

func TestFieldSetRequiresAddressable(t *testing.T) {
	a := NewReflectAdapter()
	members := a.Members(reflect.TypeOf(point{}), "X", false)
	require.Len(t, members, 1)
	err := members[0].Set(point{}, int32(9))
	assert.Error(t, err)
}

func TestFieldSetThroughPointer(t *testing.T) {
	a := NewReflectAdapter()
	p := &point{}
	members := a.Members(reflect.TypeOf(p), "X", false)
	require.Len(t, members, 1)
	require.NoError(t, members[0].Set(p, int32(9)))
	assert.Equal(t, int32(9), p.X)
}

func TestRegisterStaticFunc(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterStaticFunc(reflect.TypeOf(point{}), "Origin", func() point { return point{} })
	members := a.Members(reflect.TypeOf(point{}), "Origin", true)
	require.Len(t, members, 1)
	v, err := members[0].Invoke(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, point{}, v)
}

func TestRegisterConstructor(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterConstructor(reflect.TypeOf(point{}), func(x, y int32) point { return point{X: x, Y: y} })
	argTypes := []reflect.Type{reflect.TypeOf(int32(0)), reflect.TypeOf(int32(0))}
	c, ok := a.Constructor(reflect.TypeOf(point{}), argTypes)
	require.True(t, ok)
	v, err := c.New([]any{int32(1), int32(2)})
	require.NoError(t, err)
	assert.Equal(t, point{X: 1, Y: 2}, v)
}

func TestRegisterImplicitConversion(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterImplicitConversion(reflect.TypeOf(int32(0)), reflect.TypeOf(point{}), func(n int32) point {
		return point{X: n, Y: n}
	})
	convs := a.Conversions(reflect.TypeOf(int32(0)), false)
	require.Len(t, convs, 1)
	v, err := convs[0].Convert(int32(5))
	require.NoError(t, err)
	assert.Equal(t, point{X: 5, Y: 5}, v)
}

func TestRegisterExtensionMethod(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterExtensionMethod("Double", func(p point) int32 { return (p.X + p.Y) * 2 })
	methods := a.ExtensionMethods(reflect.TypeOf(point{}), "Double")
	require.Len(t, methods, 1)
	v, err := methods[0].Invoke(point{X: 1, Y: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(6), v)
}

func TestExtensionMethodRequiresReceiverParam(t *testing.T) {
	a := NewReflectAdapter()
	assert.Panics(t, func() {
		a.RegisterExtensionMethod("Bad", func() int32 { return 0 })
	})
}

func TestDefaultSliceIndexer(t *testing.T) {
	a := NewReflectAdapter()
	idx, ok := a.Indexer(reflect.TypeOf([]int32{}), 1)
	require.True(t, ok)
	s := []int32{10, 20, 30}
	v, err := idx.Get(s, []any{int32(1)})
	require.NoError(t, err)
	assert.Equal(t, int32(20), v)
	require.NoError(t, idx.Set(s, []any{int32(1)}, int32(99)))
	assert.Equal(t, int32(99), s[1])
}

func TestDefaultSliceIndexerOutOfRange(t *testing.T) {
	a := NewReflectAdapter()
	idx, _ := a.Indexer(reflect.TypeOf([]int32{}), 1)
	_, err := idx.Get([]int32{1}, []any{int32(5)})
	assert.Error(t, err)
}

func TestDefaultMapIndexer(t *testing.T) {
	a := NewReflectAdapter()
	idx, ok := a.Indexer(reflect.TypeOf(map[string]int32{}), 1)
	require.True(t, ok)
	m := map[string]int32{"a": 1}
	require.NoError(t, idx.Set(m, []any{"b"}, int32(2)))
	v, err := idx.Get(m, []any{"b"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
}

func TestRegisterIndexerOverridesDefault(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterIndexer(reflect.TypeOf(point{}), reflect.TypeOf(int32(0)), []reflect.Type{reflect.TypeOf("")},
		func(p point, key string) int32 {
			if key == "x" {
				return p.X
			}
			return p.Y
		}, nil)
	idx, ok := a.Indexer(reflect.TypeOf(point{}), 1)
	require.True(t, ok)
	v, err := idx.Get(point{X: 7, Y: 8}, []any{"x"})
	require.NoError(t, err)
	assert.Equal(t, int32(7), v)
}

func TestLookupType(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterType("Point", reflect.TypeOf(point{}))
	tp, ok := a.LookupType("Point")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(point{}), tp)
	_, ok = a.LookupType("Nope")
	assert.False(t, ok)
}

func TestMethodVariadicMatch(t *testing.T) {
	a := NewReflectAdapter()
	a.RegisterStaticFunc(reflect.TypeOf(point{}), "Sum", func(nums ...int32) int32 {
		var total int32
		for _, n := range nums {
			total += n
		}
		return total
	})
	members := a.Members(reflect.TypeOf(point{}), "Sum", true)
	require.Len(t, members, 1)
	v, err := members[0].Invoke(nil, []any{int32(1), int32(2), int32(3)})
	require.NoError(t, err)
	assert.Equal(t, int32(6), v)
}
