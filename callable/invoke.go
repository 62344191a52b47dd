package callable

import (
	"context"
	"fmt"
	"reflect"

	amperrors "github.com/amp-labs/safecall/errors"
)

var (
	contextType = reflect.TypeFor[context.Context]() //nolint:gochecknoglobals
	errorType   = reflect.TypeFor[error]()           //nolint:gochecknoglobals
	refType     = reflect.TypeFor[Ref]()             //nolint:gochecknoglobals
)

// Wrap turns any Go function value into an Invocable. It panics if fn is not
// a function; use Func and Reflective to check first.
//
// Calling conventions:
//   - a leading context.Context parameter receives the dispatch ctx and is not
//     matched against the forwarded arguments
//   - missing trailing arguments are zero values
//   - extra arguments are dropped unless the function is variadic
//   - nil arguments become zero values; numbers convert between numeric kinds
//     when the value fits exactly, otherwise the call fails with ErrWrongType;
//     a Ref passed to a string parameter becomes its String form
//   - a trailing error result is returned as the error; remaining results
//     become None, Some(v), or Some([]any{...})
func Wrap(fn any) Invocable {
	val := reflect.ValueOf(fn)
	if val.Kind() != reflect.Func {
		panic(fmt.Sprintf("callable.Wrap: %T is not a function", fn))
	}

	return wrapValue(val)
}

func wrapValue(fn reflect.Value) Invocable {
	fnType := fn.Type()

	return func(ctx context.Context, args ...any) (Result, error) {
		in, err := buildArgs(ctx, fnType, args)
		if err != nil {
			return None(), err
		}

		return collect(fnType, fn.Call(in))
	}
}

func buildArgs(ctx context.Context, fnType reflect.Type, args []any) ([]reflect.Value, error) {
	numIn := fnType.NumIn()

	fixed := numIn
	if fnType.IsVariadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, numIn+len(args))
	param := 0

	if fixed > 0 && fnType.In(0) == contextType {
		if ctx == nil {
			ctx = context.Background()
		}

		in = append(in, reflect.ValueOf(&ctx).Elem())
		param = 1
	}

	next := 0

	for ; param < fixed; param++ {
		typ := fnType.In(param)

		if next >= len(args) {
			in = append(in, reflect.Zero(typ))

			continue
		}

		val, err := convertArg(args[next], typ, next)
		if err != nil {
			return nil, err
		}

		in = append(in, val)
		next++
	}

	if fnType.IsVariadic() {
		elem := fnType.In(numIn - 1).Elem()

		for ; next < len(args); next++ {
			val, err := convertArg(args[next], elem, next)
			if err != nil {
				return nil, err
			}

			in = append(in, val)
		}
	}

	return in, nil
}

func convertArg(arg any, typ reflect.Type, pos int) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(typ), nil
	}

	val := reflect.ValueOf(arg)

	if val.Type().AssignableTo(typ) {
		return val, nil
	}

	switch {
	case val.Type() == refType && typ.Kind() == reflect.String:
		ref, _ := arg.(Ref)

		return reflect.ValueOf(ref.String()).Convert(typ), nil
	case isNumeric(val.Kind()) && isNumeric(typ.Kind()):
		if out, ok := convertNumber(val, typ); ok {
			return out, nil
		}

		return reflect.Value{}, fmt.Errorf("%w: argument %d: %v does not fit in %s",
			amperrors.ErrWrongType, pos, arg, typ)
	case val.Kind() == reflect.String && typ.Kind() == reflect.String,
		isComplex(val.Kind()) && isComplex(typ.Kind()):
		return val.Convert(typ), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: argument %d: cannot use %T as %s",
		amperrors.ErrWrongType, pos, arg, typ)
}

// convertNumber converts val to typ only when nothing is lost: the value
// must survive the round trip back and keep its sign. Float to float is
// always allowed since narrowing there rounds instead of truncating.
func convertNumber(val reflect.Value, typ reflect.Type) (reflect.Value, bool) {
	out := val.Convert(typ)

	if isFloat(val.Kind()) && isFloat(typ.Kind()) {
		return out, true
	}

	if isNegative(val) != isNegative(out) {
		return reflect.Value{}, false
	}

	if out.Convert(val.Type()).Interface() != val.Interface() {
		return reflect.Value{}, false
	}

	return out, true
}

func isNegative(val reflect.Value) bool {
	switch val.Kind() { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int() < 0
	case reflect.Float32, reflect.Float64:
		return val.Float() < 0
	default:
		return false
	}
}

func isFloat(kind reflect.Kind) bool {
	return kind == reflect.Float32 || kind == reflect.Float64
}

func isNumeric(kind reflect.Kind) bool {
	switch kind { //nolint:exhaustive
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func isComplex(kind reflect.Kind) bool {
	return kind == reflect.Complex64 || kind == reflect.Complex128
}

func collect(fnType reflect.Type, out []reflect.Value) (Result, error) {
	if n := len(out); n > 0 && fnType.Out(n-1) == errorType {
		if errVal := out[n-1]; !errVal.IsNil() {
			err, _ := errVal.Interface().(error)

			return None(), err
		}

		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return None(), nil
	case 1:
		return Some(out[0].Interface()), nil
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v.Interface()
		}

		return Some(vals), nil
	}
}

func resolveReflect(ref Ref) (Invocable, bool) {
	switch ref.kind { //nolint:exhaustive
	case KindFunc:
		return wrapValue(reflect.ValueOf(ref.fn)), true
	case KindMethod:
		return resolveMethod(ref.receiver, ref.name)
	default:
		return nil, false
	}
}

// resolveMethod finds an exported method. A reflect.Type receiver yields the
// method expression, which takes the receiver as its first argument.
func resolveMethod(receiver any, member string) (Invocable, bool) {
	if typ, ok := receiver.(reflect.Type); ok {
		method, found := typ.MethodByName(member)
		if !found || !method.Func.IsValid() {
			return nil, false
		}

		return wrapValue(method.Func), true
	}

	method := reflect.ValueOf(receiver).MethodByName(member)
	if !method.IsValid() {
		return nil, false
	}

	return wrapValue(method), true
}
