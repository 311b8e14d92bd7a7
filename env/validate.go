package env

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Validate walks every binding in the environment and confirms that
// anything shaped like a function (a Go func value, or a value
// implementing Callable) actually has a discoverable signature, and that
// no binding is an unexported/unusable kind such as a channel or unsafe
// pointer. Unlike compilation, which is strict and stops at the first
// problem (spec section 4.2), Validate is a convenience a host can run
// once at startup to catch every environment-wiring mistake in one pass,
// aggregating them with multierror rather than stopping at the first.
func Validate(e Environment) error {
	var result *multierror.Error

	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := validateBinding(name, e[name]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	return result.ErrorOrNil()
}

func validateBinding(name string, value any) error {
	if value == nil {
		return nil
	}
	if callable, ok := value.(Callable); ok {
		params, _, _ := callable.Signature()
		for i, p := range params {
			if p == nil {
				return fmt.Errorf("environment binding %q: Callable.Signature() parameter %d has a nil type", name, i)
			}
		}
		return nil
	}
	t := reflect.TypeOf(value)
	switch t.Kind() {
	case reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("environment binding %q: unusable host value kind %s", name, t.Kind())
	case reflect.Func:
		if t.IsVariadic() && t.NumIn() == 0 {
			return fmt.Errorf("environment binding %q: variadic function has no parameters", name)
		}
	}
	return nil
}
