package callable

import "context"

// Invocable is a resolved callable. Arguments are forwarded in order; ctx is
// passed through to targets that ask for it. Errors and panics raised by the
// target come back unchanged.
type Invocable func(ctx context.Context, args ...any) (Result, error)

// Resolver answers whether a Ref currently resolves to something invocable.
// Resolve must not invoke anything.
type Resolver interface {
	Resolve(ref Ref) (Invocable, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ref Ref) (Invocable, bool)

// Resolve calls f(ref).
func (f ResolverFunc) Resolve(ref Ref) (Invocable, bool) {
	return f(ref)
}

// Reflective resolves KindMethod and KindFunc references via reflection.
// KindName references never resolve against it.
var Reflective Resolver = ResolverFunc(resolveReflect) //nolint:gochecknoglobals

// IsValid reports whether ref resolves against r right now. Malformed refs
// and unknown targets are both simply invalid.
func IsValid(r Resolver, ref Ref) bool {
	_, ok := Resolve(r, ref)

	return ok
}

// Resolve is r.Resolve guarded against nil resolvers, malformed refs and
// resolvers that report success with a nil Invocable.
//
// Func refs, and Method refs on Go receivers, fall back to Reflective when r
// declines them: a populated function value always exists. Method refs with a
// string receiver name something only r can interpret and never fall back.
func Resolve(r Resolver, ref Ref) (Invocable, bool) {
	if !ref.Valid() {
		return nil, false
	}

	if r != nil {
		if inv, ok := r.Resolve(ref); ok && inv != nil {
			return inv, true
		}
	}

	if !reflectiveFallback(ref) {
		return nil, false
	}

	return resolveReflect(ref)
}

func reflectiveFallback(ref Ref) bool {
	switch ref.kind { //nolint:exhaustive
	case KindFunc:
		return true
	case KindMethod:
		_, named := ref.receiver.(string)

		return !named
	default:
		return false
	}
}

type chain []Resolver

// Chain returns a Resolver that consults each resolver in order and uses the
// first one that resolves the reference. Nil resolvers are skipped.
func Chain(resolvers ...Resolver) Resolver {
	out := make(chain, 0, len(resolvers))

	for _, r := range resolvers {
		if r != nil {
			out = append(out, r)
		}
	}

	return out
}

func (c chain) Resolve(ref Ref) (Invocable, bool) {
	for _, r := range c {
		if inv, ok := Resolve(r, ref); ok {
			return inv, true
		}
	}

	return nil, false
}
