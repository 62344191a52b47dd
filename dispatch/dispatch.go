// Package dispatch invokes callables only when they exist, with a choice of
// what to do when they don't: nothing, print a placeholder message, or call a
// substitute.
//
// References may be given as anything callable.Of accepts: a function name,
// a []any{receiver, "Method"} pair, a function value, or a callable.Ref.
//
//	// Does nothing if list_cities isn't available.
//	dispatch.CallIfExists(ctx, "list_cities", "Texas", 3)
//
//	// Prints a notice instead.
//	dispatch.CallWithMessageIfMissing(ctx, "list_cities",
//	    "The cities listing is temporarily disabled.", "Texas", 3)
//
// Missing or malformed references are never errors. Errors returned (and
// panics raised) by an invoked callable reach the caller unchanged.
package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/amp-labs/safecall/callable"
	"github.com/amp-labs/safecall/output"
)

// Dispatcher applies fallback policies on top of a Resolver. It holds no
// state besides the resolver and is safe for concurrent use.
type Dispatcher struct {
	resolver callable.Resolver
}

// New returns a Dispatcher backed by resolver, or by the default registry
// when resolver is nil.
func New(resolver callable.Resolver) *Dispatcher {
	if resolver == nil {
		resolver = callable.Default()
	}

	return &Dispatcher{resolver: resolver}
}

// Resolver returns the resolver the dispatcher consults.
func (d *Dispatcher) Resolver() callable.Resolver { //nolint:ireturn
	return d.resolver
}

// IsValid reports whether ref currently resolves.
func (d *Dispatcher) IsValid(ref any) bool {
	return callable.IsValid(d.resolver, callable.Of(ref))
}

// CallIfExists invokes ref with args if it resolves and returns its result.
// Otherwise it returns None and does nothing else.
func (d *Dispatcher) CallIfExists(ctx context.Context, ref any, args ...any) (callable.Result, error) {
	inv, ok := callable.Resolve(d.resolver, callable.Of(ref))
	if !ok {
		return callable.None(), nil
	}

	return inv(ctx, args...)
}

// CallAndEmitIfExists is CallIfExists that also writes a truthy result to the
// output stream carried by ctx before returning it. Falsy results ("" or 0,
// say) are returned but not written.
func (d *Dispatcher) CallAndEmitIfExists(ctx context.Context, ref any, args ...any) (callable.Result, error) {
	res, err := d.CallIfExists(ctx, ref, args...)
	if err != nil {
		return res, err
	}

	if res.Truthy() {
		if err := output.Emit(ctx, res.Text()); err != nil {
			return res, err
		}
	}

	return res, nil
}

// CallWithFallbackIfExists invokes ref with args if it resolves. Otherwise,
// if fallback resolves, it is invoked with the missing callable.Ref followed
// by args, so one fallback can serve several targets. If neither resolves
// the result is None.
func (d *Dispatcher) CallWithFallbackIfExists(
	ctx context.Context,
	ref any,
	fallback any,
	args ...any,
) (callable.Result, error) {
	primary := callable.Of(ref)

	if inv, ok := callable.Resolve(d.resolver, primary); ok {
		return inv(ctx, args...)
	}

	inv, ok := callable.Resolve(d.resolver, callable.Of(fallback))
	if !ok {
		return callable.None(), nil
	}

	fallbackArgs := make([]any, 0, len(args)+1)
	fallbackArgs = append(fallbackArgs, primary)
	fallbackArgs = append(fallbackArgs, args...)

	return inv(ctx, fallbackArgs...)
}

// CallWithMessageIfMissing invokes ref with args if it resolves, ignoring
// message. Otherwise it writes message to the output stream (unless it is
// empty) and returns None.
func (d *Dispatcher) CallWithMessageIfMissing(
	ctx context.Context,
	ref any,
	message string,
	args ...any,
) (callable.Result, error) {
	if inv, ok := callable.Resolve(d.resolver, callable.Of(ref)); ok {
		return inv(ctx, args...)
	}

	if err := output.Emit(ctx, message); err != nil {
		return callable.None(), err
	}

	return callable.None(), nil
}

var defaultDispatcher atomic.Pointer[Dispatcher] //nolint:gochecknoglobals

// Default returns the process-wide dispatcher. Unless replaced with
// SetDefault, it resolves against callable.Default().
func Default() *Dispatcher {
	if d := defaultDispatcher.Load(); d != nil {
		return d
	}

	return New(callable.Default())
}

// SetDefault replaces the process-wide dispatcher. Passing nil restores the
// registry-backed default.
func SetDefault(d *Dispatcher) {
	defaultDispatcher.Store(d)
}

// CallIfExists calls Default().CallIfExists.
func CallIfExists(ctx context.Context, ref any, args ...any) (callable.Result, error) {
	return Default().CallIfExists(ctx, ref, args...)
}

// CallAndEmitIfExists calls Default().CallAndEmitIfExists.
func CallAndEmitIfExists(ctx context.Context, ref any, args ...any) (callable.Result, error) {
	return Default().CallAndEmitIfExists(ctx, ref, args...)
}

// CallWithFallbackIfExists calls Default().CallWithFallbackIfExists.
func CallWithFallbackIfExists(ctx context.Context, ref any, fallback any, args ...any) (callable.Result, error) {
	return Default().CallWithFallbackIfExists(ctx, ref, fallback, args...)
}

// CallWithMessageIfMissing calls Default().CallWithMessageIfMissing.
func CallWithMessageIfMissing(ctx context.Context, ref any, message string, args ...any) (callable.Result, error) {
	return Default().CallWithMessageIfMissing(ctx, ref, message, args...)
}
