package reflection

import (
	"fmt"
	"reflect"
)

var errorInterface = reflect.TypeOf((*error)(nil)).Elem()

// ReflectAdapter is the default Adapter implementation. Instance members
// (methods and exported fields) are discovered live with Go's reflect
// package, the way the teacher's object.GoFunc wraps arbitrary Go functions
// via reflection. Static members, constructors, host-declared conversions,
// extension methods, and custom indexers have no runtime-reflectable
// equivalent in Go (Go has no notion of a type registry keyed by name), so
// those are supplied once at startup through Register* methods, following
// spec section 9's guidance for hosts "without rich runtime reflection" to
// "expose a registration API" for exactly this slice of the contract.
type ReflectAdapter struct {
	types                map[string]reflect.Type
	statics              map[reflect.Type]map[string]Member
	constructors         map[reflect.Type][]Constructor
	implicitConversions  map[reflect.Type][]Conversion
	explicitConversions  map[reflect.Type][]Conversion
	extensionMethods     map[string][]Member
	indexers             map[reflect.Type]Indexer
}

// NewReflectAdapter creates an empty ReflectAdapter. Instance member
// resolution works immediately for any host type; call the Register*
// methods to add static members, constructors, conversions, extension
// methods, and custom indexers.
func NewReflectAdapter() *ReflectAdapter {
	return &ReflectAdapter{
		types:               map[string]reflect.Type{},
		statics:             map[reflect.Type]map[string]Member{},
		constructors:        map[reflect.Type][]Constructor{},
		implicitConversions: map[reflect.Type][]Conversion{},
		explicitConversions: map[reflect.Type][]Conversion{},
		extensionMethods:    map[string][]Member{},
		indexers:            map[reflect.Type]Indexer{},
	}
}

// RegisterType associates a name with a host type so that a bare Reference
// token matching that name can be treated as a static receiver (spec
// section 4.2, Reference lowering rule).
func (r *ReflectAdapter) RegisterType(name string, t reflect.Type) {
	r.types[name] = t
}

// LookupType returns the type registered under name, if any. Used by the
// compiler to decide whether an unresolved identifier names a type rather
// than an unknown variable.
func (r *ReflectAdapter) LookupType(name string) (reflect.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// RegisterStatic registers a static (type-level) member on t.
func (r *ReflectAdapter) RegisterStatic(t reflect.Type, m Member) {
	m.Static = true
	if r.statics[t] == nil {
		r.statics[t] = map[string]Member{}
	}
	r.statics[t][m.Name] = m
}

// RegisterStaticFunc registers a static method backed by a Go function.
// fn's signature is used to populate ParamTypes/Type/Variadic.
func (r *ReflectAdapter) RegisterStaticFunc(t reflect.Type, name string, fn any) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	m := Member{
		Name:       name,
		Kind:       MethodMember,
		Static:     true,
		ParamTypes: inTypes(fnType),
		Variadic:   fnType.IsVariadic(),
		Type:       outType(fnType),
		Invoke: func(_ any, args []any) (any, error) {
			return callReflectFunc(fnVal, fnType, args)
		},
	}
	r.RegisterStatic(t, m)
}

// RegisterConstructor registers a constructor function (any Go func
// returning the constructed value, optionally with a trailing error) for
// type t.
func (r *ReflectAdapter) RegisterConstructor(t reflect.Type, fn any) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	r.constructors[t] = append(r.constructors[t], Constructor{
		Type:       t,
		ParamTypes: inTypes(fnType),
		New: func(args []any) (any, error) {
			return callReflectFunc(fnVal, fnType, args)
		},
	})
}

// RegisterImplicitConversion registers a host-declared implicit conversion.
// fn must be a func(From) To or func(From) (To, error).
func (r *ReflectAdapter) RegisterImplicitConversion(from, to reflect.Type, fn any) {
	r.implicitConversions[from] = append(r.implicitConversions[from], convOf(from, to, fn))
}

// RegisterExplicitConversion registers a host-declared explicit conversion.
func (r *ReflectAdapter) RegisterExplicitConversion(from, to reflect.Type, fn any) {
	r.explicitConversions[from] = append(r.explicitConversions[from], convOf(from, to, fn))
}

func convOf(from, to reflect.Type, fn any) Conversion {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	return Conversion{
		From: from,
		To:   to,
		Convert: func(v any) (any, error) {
			return callReflectFunc(fnVal, fnType, []any{v})
		},
	}
}

// RegisterExtensionMethod registers fn as an extension method named name.
// fn's first parameter type is the receiver type it extends, matching
// spec section 4.2's definition of an extension method as "a static method
// on a sealed non-generic, non-nested host type whose first parameter
// equals the receiver type".
func (r *ReflectAdapter) RegisterExtensionMethod(name string, fn any) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.NumIn() == 0 {
		panic("extension method must take the receiver as its first parameter")
	}
	params := inTypes(fnType)[1:]
	m := Member{
		Name:       name,
		Kind:       MethodMember,
		ParamTypes: params,
		Variadic:   fnType.IsVariadic(),
		Type:       outType(fnType),
		Invoke: func(receiver any, args []any) (any, error) {
			full := append([]any{receiver}, args...)
			return callReflectFunc(fnVal, fnType, full)
		},
	}
	r.extensionMethods[name] = append(r.extensionMethods[name], m)
}

// RegisterIndexer registers a custom indexer for type t, modeling the
// declared "Item" indexer convention spec section 4.2 describes: get takes
// (subject, indices...) and returns the element; set, if non-nil, takes
// (subject, indices..., value).
func (r *ReflectAdapter) RegisterIndexer(t reflect.Type, elemType reflect.Type, indexTypes []reflect.Type, get, set any) {
	getVal := reflect.ValueOf(get)
	getType := getVal.Type()
	idx := Indexer{
		IndexTypes: indexTypes,
		ElemType:   elemType,
		Get: func(subject any, indices []any) (any, error) {
			args := append([]any{subject}, indices...)
			return callReflectFunc(getVal, getType, args)
		},
	}
	if set != nil {
		setVal := reflect.ValueOf(set)
		setType := setVal.Type()
		idx.Set = func(subject any, indices []any, value any) error {
			args := append([]any{subject}, indices...)
			args = append(args, value)
			_, err := callReflectFunc(setVal, setType, args)
			return err
		}
	}
	r.indexers[t] = idx
}

// Members implements Adapter.
func (r *ReflectAdapter) Members(t reflect.Type, name string, static bool) []Member {
	if static {
		if s, ok := r.statics[t][name]; ok {
			return []Member{s}
		}
		return nil
	}
	if field, ok := findField(t, name); ok {
		return []Member{field}
	}
	if method, ok := findMethod(t, name); ok {
		return []Member{method}
	}
	return nil
}

// Method implements Adapter.
func (r *ReflectAdapter) Method(t reflect.Type, name string, argTypes []reflect.Type) (Member, bool) {
	m, ok := findMethod(t, name)
	if !ok || !paramsMatch(m.ParamTypes, argTypes, m.Variadic) {
		return Member{}, false
	}
	return m, true
}

// Constructor implements Adapter.
func (r *ReflectAdapter) Constructor(t reflect.Type, argTypes []reflect.Type) (Constructor, bool) {
	for _, c := range r.constructors[t] {
		if typesEqual(c.ParamTypes, argTypes) {
			return c, true
		}
	}
	return Constructor{}, false
}

// Conversions implements Adapter.
func (r *ReflectAdapter) Conversions(t reflect.Type, explicit bool) []Conversion {
	if explicit {
		return r.explicitConversions[t]
	}
	return r.implicitConversions[t]
}

// ExtensionMethods implements Adapter.
func (r *ReflectAdapter) ExtensionMethods(t reflect.Type, name string) []Member {
	var out []Member
	for _, m := range r.extensionMethods[name] {
		out = append(out, m)
	}
	return out
}

// Indexer implements Adapter.
func (r *ReflectAdapter) Indexer(t reflect.Type, numIndices int) (Indexer, bool) {
	if idx, ok := r.indexers[t]; ok {
		return idx, true
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if numIndices != 1 {
			return Indexer{}, false
		}
		return sliceIndexer(t), true
	case reflect.Map:
		if numIndices != 1 {
			return Indexer{}, false
		}
		return mapIndexer(t), true
	case reflect.Ptr:
		return r.Indexer(t.Elem(), numIndices)
	default:
		return Indexer{}, false
	}
}

func sliceIndexer(t reflect.Type) Indexer {
	elemType := t.Elem()
	return Indexer{
		IndexTypes: []reflect.Type{reflect.TypeOf(int32(0))},
		ElemType:   elemType,
		Get: func(subject any, indices []any) (any, error) {
			s := reflect.ValueOf(subject)
			i := toInt(indices[0])
			if i < 0 || i >= s.Len() {
				return nil, fmt.Errorf("index %d out of range (length %d)", i, s.Len())
			}
			return s.Index(i).Interface(), nil
		},
		Set: func(subject any, indices []any, value any) error {
			s := reflect.ValueOf(subject)
			i := toInt(indices[0])
			if i < 0 || i >= s.Len() {
				return fmt.Errorf("index %d out of range (length %d)", i, s.Len())
			}
			s.Index(i).Set(reflect.ValueOf(value))
			return nil
		},
	}
}

func mapIndexer(t reflect.Type) Indexer {
	keyType := t.Key()
	elemType := t.Elem()
	return Indexer{
		IndexTypes: []reflect.Type{keyType},
		ElemType:   elemType,
		Get: func(subject any, indices []any) (any, error) {
			m := reflect.ValueOf(subject)
			key := reflect.ValueOf(indices[0])
			v := m.MapIndex(key)
			if !v.IsValid() {
				return nil, fmt.Errorf("key %v not found", indices[0])
			}
			return v.Interface(), nil
		},
		Set: func(subject any, indices []any, value any) error {
			m := reflect.ValueOf(subject)
			m.SetMapIndex(reflect.ValueOf(indices[0]), reflect.ValueOf(value))
			return nil
		},
	}
}

func toInt(v any) int {
	switch x := v.(type) {
	case int32:
		return int(x)
	case int64:
		return int(x)
	case int:
		return x
	default:
		return 0
	}
}

func findField(t reflect.Type, name string) (Member, bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Member{}, false
	}
	f, ok := t.FieldByName(name)
	if !ok || !f.IsExported() {
		return Member{}, false
	}
	return Member{
		Name: name,
		Kind: FieldMember,
		Type: f.Type,
		Get: func(receiver any) (any, error) {
			v := derefStruct(reflect.ValueOf(receiver))
			return v.FieldByIndex(f.Index).Interface(), nil
		},
		Set: func(receiver any, value any) error {
			v := derefStruct(reflect.ValueOf(receiver))
			fv := v.FieldByIndex(f.Index)
			if !fv.CanSet() {
				return fmt.Errorf("field %q is not settable; pass a pointer receiver", name)
			}
			fv.Set(reflect.ValueOf(value))
			return nil
		},
	}, true
}

func derefStruct(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Ptr {
		return v.Elem()
	}
	return v
}

func findMethod(t reflect.Type, name string) (Member, bool) {
	m, ok := t.MethodByName(name)
	if !ok {
		if t.Kind() != reflect.Ptr {
			m, ok = reflect.PointerTo(t).MethodByName(name)
		}
		if !ok {
			return Member{}, false
		}
	}
	methodType := m.Func.Type()
	// methodType's first parameter is the receiver; strip it.
	params := make([]reflect.Type, methodType.NumIn()-1)
	for i := 1; i < methodType.NumIn(); i++ {
		params[i-1] = methodType.In(i)
	}
	return Member{
		Name:       name,
		Kind:       MethodMember,
		ParamTypes: params,
		Variadic:   methodType.IsVariadic(),
		Type:       outType(methodType),
		Invoke: func(receiver any, args []any) (any, error) {
			method := reflect.ValueOf(receiver).MethodByName(name)
			if !method.IsValid() {
				return nil, fmt.Errorf("method %q not found on %v", name, receiver)
			}
			return callReflectFunc(method, method.Type(), args)
		},
	}, true
}

func inTypes(fnType reflect.Type) []reflect.Type {
	n := fnType.NumIn()
	out := make([]reflect.Type, n)
	for i := 0; i < n; i++ {
		out[i] = fnType.In(i)
	}
	return out
}

// outType returns the declared return type of a function for static-type
// propagation, ignoring a trailing error result. Returns nil for a void
// function (spec section 4.2, VoidMethodNotSupported).
func outType(fnType reflect.Type) reflect.Type {
	n := fnType.NumOut()
	if n == 0 {
		return nil
	}
	if n >= 1 && fnType.Out(n-1) == errorInterface {
		n--
	}
	if n == 0 {
		return nil
	}
	return fnType.Out(0)
}

func paramsMatch(declared, actual []reflect.Type, variadic bool) bool {
	if variadic {
		if len(actual) < len(declared)-1 {
			return false
		}
		for i := 0; i < len(declared)-1; i++ {
			if declared[i] != actual[i] {
				return false
			}
		}
		elem := declared[len(declared)-1].Elem()
		for i := len(declared) - 1; i < len(actual); i++ {
			if actual[i] != elem {
				return false
			}
		}
		return true
	}
	return typesEqual(declared, actual)
}

func typesEqual(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// callReflectFunc calls fn via reflection with args already holding Go
// values of the right dynamic type, unwraps a trailing error return, and
// returns the single remaining result (or nil for a void function). This
// is the same calling convention the teacher's object.GoFunc uses, minus
// the context-injection and Risor-object conversion steps that do not
// apply here: this engine evaluates synchronously with no cancellation
// (spec section 5), so host calls take no context.Context.
func callReflectFunc(fnVal reflect.Value, fnType reflect.Type, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic calling %s: %v", fnType, r)
		}
	}()
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
