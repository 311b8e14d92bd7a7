package op

import (
	"reflect"
	"strconv"
)

// Conversion is a single builtin implicit or explicit primitive conversion.
type Conversion struct {
	From    reflect.Type
	To      reflect.Type
	Convert func(v any) (any, error)
}

var (
	implicitByType = map[reflect.Type][]Conversion{}
	explicitByType = map[reflect.Type][]Conversion{}
)

func registerImplicit(from, to reflect.Type, fn func(v any) (any, error)) {
	implicitByType[from] = append(implicitByType[from], Conversion{From: from, To: to, Convert: fn})
}

func registerExplicit(from, to reflect.Type, fn func(v any) (any, error)) {
	explicitByType[from] = append(explicitByType[from], Conversion{From: from, To: to, Convert: fn})
}

// ImplicitConversions returns every builtin implicit conversion available
// from the given type, in registration order. Identity is not included;
// the compiler's implicit-conversion search adds identity itself, per spec
// section 4.2 step 2's "Conv_i ∪ {identity}".
func ImplicitConversions(from reflect.Type) []Conversion {
	return implicitByType[from]
}

// ExplicitConversions returns every builtin explicit conversion available
// from the given type.
func ExplicitConversions(from reflect.Type) []Conversion {
	return explicitByType[from]
}

// registerConversions wires up the builtin conversion set (int->float,
// float->double, char->int, and every numeric or char primitive->string
// implicitly; float->int, double->float, int->char explicitly), plus a
// handful of natural counterparts so the numeric tower and string parsing
// behave the way a host author would expect. bool has no implicit
// conversion to string, so `true + 1` finds no Addition overload.
func registerConversions() {
	registerImplicit(intType, floatType, func(v any) (any, error) { return float32(v.(int32)), nil })
	registerImplicit(intType, doubleType, func(v any) (any, error) { return float64(v.(int32)), nil })
	registerImplicit(intType, longType, func(v any) (any, error) { return int64(v.(int32)), nil })
	registerImplicit(longType, doubleType, func(v any) (any, error) { return float64(v.(int64)), nil })
	registerImplicit(longType, floatType, func(v any) (any, error) { return float32(v.(int64)), nil })
	registerImplicit(floatType, doubleType, func(v any) (any, error) { return float64(v.(float32)), nil })
	registerImplicit(charType, intType, func(v any) (any, error) { return int32(v.(Char)), nil })
	registerImplicit(charType, longType, func(v any) (any, error) { return int64(v.(Char)), nil })

	for _, t := range []reflect.Type{intType, longType, floatType, doubleType, charType, stringType} {
		if t == stringType {
			continue
		}
		from := t
		registerImplicit(from, stringType, func(v any) (any, error) {
			return primitiveToString(v), nil
		})
	}

	registerExplicit(floatType, intType, func(v any) (any, error) { return int32(v.(float32)), nil })
	registerExplicit(doubleType, floatType, func(v any) (any, error) { return float32(v.(float64)), nil })
	registerExplicit(doubleType, intType, func(v any) (any, error) { return int32(v.(float64)), nil })
	registerExplicit(doubleType, longType, func(v any) (any, error) { return int64(v.(float64)), nil })
	registerExplicit(longType, intType, func(v any) (any, error) { return int32(v.(int64)), nil })
	registerExplicit(intType, longType, func(v any) (any, error) { return int64(v.(int32)), nil })
	registerExplicit(intType, charType, func(v any) (any, error) { return Char(v.(int32)), nil })
	registerExplicit(longType, charType, func(v any) (any, error) { return Char(v.(int64)), nil })

	registerExplicit(stringType, intType, func(v any) (any, error) {
		n, err := strconv.ParseInt(v.(string), 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(n), nil
	})
	registerExplicit(stringType, doubleType, func(v any) (any, error) {
		return strconv.ParseFloat(v.(string), 64)
	})
	registerExplicit(stringType, boolType, func(v any) (any, error) {
		return strconv.ParseBool(v.(string))
	})
}

func primitiveToString(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case Char:
		return string(rune(x))
	case string:
		return x
	default:
		return ""
	}
}
