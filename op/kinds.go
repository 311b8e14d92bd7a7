package op

import "reflect"

// Char is a distinct primitive kind representing a single character.
//
// Go aliases rune to int32, which would make a host int32 value
// indistinguishable from a char value if we represented char as plain
// int32/rune. Defining a named type lets the compiler and the builtin
// operator table tell them apart by exact reflect.Type instead of by
// reflect.Kind, exactly as spec section 4.4 requires four distinct numeric
// primitive kinds (int, float, double, long) plus a separate char kind.
type Char int32

var (
	boolType   = reflect.TypeOf(false)
	intType    = reflect.TypeOf(int32(0))
	longType   = reflect.TypeOf(int64(0))
	floatType  = reflect.TypeOf(float32(0))
	doubleType = reflect.TypeOf(float64(0))
	charType   = reflect.TypeOf(Char(0))
	stringType = reflect.TypeOf("")
)

// BoolType, IntType, LongType, FloatType, DoubleType, CharType, and
// StringType are the reflect.Type values for the seven primitive kinds
// the builtin operator table understands. Exported so that the compiler
// and the default reflection adapter can recognize them without importing
// reflect.TypeOf boilerplate of their own.
func BoolType() reflect.Type   { return boolType }
func IntType() reflect.Type    { return intType }
func LongType() reflect.Type   { return longType }
func FloatType() reflect.Type  { return floatType }
func DoubleType() reflect.Type { return doubleType }
func CharType() reflect.Type   { return charType }
func StringType() reflect.Type { return stringType }

// IsPrimitive returns true if t is one of the seven builtin primitive
// kinds the operator table has overloads for.
func IsPrimitive(t reflect.Type) bool {
	switch t {
	case boolType, intType, longType, floatType, doubleType, charType, stringType:
		return true
	default:
		return false
	}
}

// IsNumeric returns true if t is one of the four primitive numeric kinds
// that increment/decrement and unary negation are monomorphic over.
func IsNumeric(t reflect.Type) bool {
	switch t {
	case intType, longType, floatType, doubleType:
		return true
	default:
		return false
	}
}
