package callable

import (
	"fmt"
	"reflect"
	"runtime"
)

// Kind identifies the shape of a Ref.
type Kind int

const (
	// KindInvalid is a malformed reference. It never resolves.
	KindInvalid Kind = iota
	// KindName is a free function looked up by name.
	KindName
	// KindMethod is a (receiver, member) pair.
	KindMethod
	// KindFunc is a function value held directly.
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindMethod:
		return "method"
	case KindFunc:
		return "func"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Ref identifies code to invoke. The zero value is an invalid reference.
// Refs are immutable; build them with Name, Method, Func or Of.
type Ref struct {
	kind     Kind
	name     string
	receiver any
	fn       any
}

// Name refers to a free function by its exact name.
func Name(name string) Ref {
	if name == "" {
		return Ref{}
	}

	return Ref{kind: KindName, name: name}
}

// Method refers to the member called member on receiver. The receiver may be
// an instance, a reflect.Type (type-level lookup, the receiver becomes the first
// argument), or anything a Resolver knows how to interpret, such as the name
// of a Lua table.
func Method(receiver any, member string) Ref {
	if isNilish(receiver) || member == "" {
		return Ref{}
	}

	return Ref{kind: KindMethod, name: member, receiver: receiver}
}

// Func wraps a function value. A nil function gives an invalid Ref.
func Func(fn any) Ref {
	if isNilish(fn) || reflect.TypeOf(fn).Kind() != reflect.Func {
		return Ref{}
	}

	return Ref{kind: KindFunc, fn: fn}
}

// Of converts a loosely typed reference into a Ref:
//
//	Ref / *Ref               -> itself
//	string                   -> Name
//	[]any{recv, "member"}    -> Method
//	[2]any{recv, "member"}   -> Method
//	func value               -> Func
//
// Anything else, including pairs of the wrong length or with a non-string
// member, is an invalid Ref.
func Of(ref any) Ref {
	switch val := ref.(type) {
	case Ref:
		return val
	case *Ref:
		if val == nil {
			return Ref{}
		}

		return *val
	case string:
		return Name(val)
	case []any:
		return pair(val)
	case [2]any:
		return pair(val[:])
	}

	if ref != nil && reflect.TypeOf(ref).Kind() == reflect.Func {
		return Func(ref)
	}

	return Ref{}
}

func pair(parts []any) Ref {
	if len(parts) != 2 { //nolint:mnd
		return Ref{}
	}

	member, ok := parts[1].(string)
	if !ok {
		return Ref{}
	}

	return Method(parts[0], member)
}

// Kind returns the shape of the reference.
func (r Ref) Kind() Kind {
	return r.kind
}

// Valid reports whether the reference is well formed. It says nothing about
// whether it resolves; use IsValid with a Resolver for that.
func (r Ref) Valid() bool {
	return r.kind != KindInvalid
}

// Name returns the function name for KindName, the member name for
// KindMethod, and the runtime function name for KindFunc.
func (r Ref) Name() string {
	if r.kind == KindFunc {
		return funcName(r.fn)
	}

	return r.name
}

// Receiver returns the receiver of a KindMethod reference, or nil.
func (r Ref) Receiver() any {
	return r.receiver
}

// Fn returns the function value of a KindFunc reference, or nil.
func (r Ref) Fn() any {
	return r.fn
}

// String returns the identifier handed to fallbacks and shown in logs.
func (r Ref) String() string {
	switch r.kind {
	case KindName:
		return r.name
	case KindMethod:
		return receiverName(r.receiver) + "." + r.name
	case KindFunc:
		return funcName(r.fn)
	default:
		return "<invalid>"
	}
}

func receiverName(receiver any) string {
	switch val := receiver.(type) {
	case string:
		return val
	case reflect.Type:
		return val.String()
	default:
		return reflect.TypeOf(receiver).String()
	}
}

func funcName(fn any) string {
	if isNilish(fn) {
		return "<nil>"
	}

	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "<not a function>"
	}

	return f.Name()
}
