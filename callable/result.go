package callable

import (
	"fmt"
	"reflect"
)

// Result is the outcome of a dispatch: either a value produced by the invoked
// callable, or no result at all. A present value that happens to be falsy
// (Some(""), Some(0), Some(nil)) is still present.
type Result struct {
	value   any
	present bool
}

// Some wraps a value produced by an invocation.
func Some(value any) Result {
	return Result{value: value, present: true}
}

// None is the "no result" sentinel.
func None() Result {
	return Result{}
}

// Get returns the value and whether one is present.
func (r Result) Get() (any, bool) {
	return r.value, r.present
}

// Present returns true if an invocation produced a value.
func (r Result) Present() bool {
	return r.present
}

// Empty returns true for None.
func (r Result) Empty() bool {
	return !r.present
}

// Value returns the value, or nil for None.
func (r Result) Value() any {
	return r.value
}

// ValueOrElse returns the value if present, otherwise dflt.
func (r Result) ValueOrElse(dflt any) any {
	if r.present {
		return r.value
	}

	return dflt
}

// Truthy reports whether the result is present and its value is truthy.
func (r Result) Truthy() bool {
	return r.present && Truthy(r.value)
}

// Text is the form written to an output stream: fmt.Sprint of the value, or
// the empty string for None.
func (r Result) Text() string {
	if !r.present {
		return ""
	}

	return fmt.Sprint(r.value)
}

// String returns "Some(value)" or "None".
func (r Result) String() string {
	if r.present {
		return fmt.Sprintf("Some(%v)", r.value)
	}

	return "None"
}

// Truthy decides whether a value counts as meaningful output. Falsy values are:
//
//   - nil, and typed nils (pointer, interface, map, slice, func, chan)
//   - the empty string
//   - numeric zero of any int, uint, float or complex kind
//   - false
//   - empty slices, maps and arrays
//
// Everything else is truthy, including the string "0" and any struct.
func Truthy(value any) bool {
	if value == nil {
		return false
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() { //nolint:exhaustive
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return !rv.IsNil()
	default:
		return true
	}
}
