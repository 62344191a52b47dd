// Package callable decides whether a reference to a piece of code currently
// resolves, and invokes it if so.
//
// A Ref is a free-function name, a (receiver, member) pair, or a function
// value. A Resolver turns a Ref into an Invocable when the target exists:
// Registry resolves registered Go functions by name and methods by
// reflection, and other resolvers (see the luaext package) can be combined
// with Chain.
//
//	reg := callable.NewRegistry()
//	reg.MustRegister("list_cities", listCities)
//
//	if inv, ok := callable.Resolve(reg, callable.Name("list_cities")); ok {
//	    res, err := inv(ctx, "Texas", 3)
//	    ...
//	}
package callable
