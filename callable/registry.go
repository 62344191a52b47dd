package callable

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"facette.io/natsort"
	"github.com/amp-labs/safecall/logger"
)

var (
	// ErrEmptyName is returned when registering a function without a name.
	ErrEmptyName = errors.New("callable: empty function name")
	// ErrNotAFunction is returned when registering something that isn't a function.
	ErrNotAFunction = errors.New("callable: not a function")
)

// Registry maps names to Go functions. It is safe for concurrent use: lookups
// take a read lock, registration takes the write lock.
//
// Name refs resolve against the registered functions. Method and Func refs
// resolve reflectively and do not need registering.
type Registry struct {
	mutex sync.RWMutex
	funcs map[string]reflect.Value
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]reflect.Value),
	}
}

// Register makes fn resolvable as name, replacing any earlier registration.
func (r *Registry) Register(name string, fn any) error {
	if name == "" {
		return ErrEmptyName
	}

	if isNilish(fn) || reflect.TypeOf(fn).Kind() != reflect.Func {
		return fmt.Errorf("%w: %s (%T)", ErrNotAFunction, name, fn)
	}

	r.mutex.Lock()
	_, replaced := r.funcs[name]
	r.funcs[name] = reflect.ValueOf(fn)
	r.mutex.Unlock()

	if replaced {
		logger.Get().Debug("replaced registered function", "name", name)
	}

	return nil
}

// MustRegister is Register that panics on error. Meant for package init.
func (r *Registry) MustRegister(name string, fn any) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Unregister removes name. It returns false if it wasn't registered.
func (r *Registry) Unregister(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, found := r.funcs[name]
	delete(r.funcs, name)

	return found
}

// Exists reports whether a function is registered under name.
func (r *Registry) Exists(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, found := r.funcs[name]

	return found
}

// Names returns the registered names in natural sort order.
func (r *Registry) Names() []string {
	r.mutex.RLock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}

	r.mutex.RUnlock()

	natsort.Sort(names)

	return names
}

// Resolve implements Resolver.
func (r *Registry) Resolve(ref Ref) (Invocable, bool) {
	if ref.Kind() != KindName {
		return resolveReflect(ref)
	}

	r.mutex.RLock()
	fn, found := r.funcs[ref.Name()]
	r.mutex.RUnlock()

	if !found {
		return nil, false
	}

	return wrapValue(fn), true
}

var defaultRegistry = NewRegistry() //nolint:gochecknoglobals

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds fn to the default registry.
func Register(name string, fn any) error {
	return defaultRegistry.Register(name, fn)
}

// MustRegister adds fn to the default registry, panicking on error.
func MustRegister(name string, fn any) {
	defaultRegistry.MustRegister(name, fn)
}
