// Package luaext exposes functions defined in Lua scripts as a
// callable.Resolver, so optional extensions can be dropped in as script files
// and dispatched to like registered Go functions.
//
// Scripts run in a restricted state: only the base, table, string and math
// libraries are opened, and dofile/loadfile are removed.
//
//	ext, err := luaext.New()
//	if err != nil {
//	    return err
//	}
//	defer ext.Close()
//
//	if err := ext.Load(ctx, "extensions/"); err != nil {
//	    logger.Get(ctx).Warn("some extensions failed to load", "error", err)
//	}
//
//	d := dispatch.New(callable.Chain(callable.Default(), ext))
//	d.CallWithMessageIfMissing(ctx, "list_cities", "Cities are unavailable.", "Texas")
package luaext

import (
	"context"
	"errors"
	"sync"

	"facette.io/natsort"
	"github.com/amp-labs/safecall/callable"
	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrClosed is returned when using an Extension after Close.
	ErrClosed = errors.New("luaext: extension is closed")

	// ErrScript wraps failures to compile or run a script chunk.
	ErrScript = errors.New("luaext: script failed")
)

// Globals removed from the base library.
var unsafeGlobals = []string{"dofile", "loadfile"} //nolint:gochecknoglobals

// Extension owns a single Lua state. gopher-lua states are not goroutine-safe,
// so every access goes through mutex.
type Extension struct {
	mutex    sync.Mutex
	state    *lua.LState
	baseline map[string]struct{}
	closed   bool
}

type settings struct {
	callStackSize int
	globals       []global
}

type global struct {
	name  string
	value any
}

// Option configures an Extension.
type Option func(*settings)

// WithCallStackSize bounds Lua call depth. Defaults to lua.CallStackSize.
func WithCallStackSize(size int) Option {
	return func(s *settings) {
		s.callStackSize = size
	}
}

// WithGlobal exposes a host value to scripts under name. Go functions become
// Lua functions that follow callable.Wrap's calling conventions, and receive
// the dispatch context if they ask for one.
func WithGlobal(name string, value any) Option {
	return func(s *settings) {
		s.globals = append(s.globals, global{name: name, value: value})
	}
}

// New creates an Extension with a restricted Lua state and no scripts loaded.
func New(opts ...Option) (*Extension, error) {
	cfg := settings{
		callStackSize: lua.CallStackSize,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	state := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: cfg.callStackSize,
	})

	if err := openSafeLibraries(state); err != nil {
		state.Close()

		return nil, err
	}

	for _, g := range cfg.globals {
		state.SetGlobal(g.name, toLua(state, g.value))
	}

	return &Extension{
		state:    state,
		baseline: globalNames(state),
	}, nil
}

func openSafeLibraries(state *lua.LState) error {
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := state.CallByParam(lua.P{
			Fn:      state.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return err
		}
	}

	for _, name := range unsafeGlobals {
		state.SetGlobal(name, lua.LNil)
	}

	return nil
}

func globals(state *lua.LState) *lua.LTable {
	tbl, _ := state.Get(lua.GlobalsIndex).(*lua.LTable)

	return tbl
}

func globalNames(state *lua.LState) map[string]struct{} {
	names := make(map[string]struct{})

	globals(state).ForEach(func(key, _ lua.LValue) {
		if name, ok := key.(lua.LString); ok {
			names[string(name)] = struct{}{}
		}
	})

	return names
}

// Has reports whether a global Lua function called name is defined.
func (e *Extension) Has(name string) bool {
	return callable.IsValid(e, callable.Name(name))
}

// Functions lists the global functions defined by loaded scripts, in natural
// order. Library functions and host globals are not included.
func (e *Extension) Functions() []string {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return nil
	}

	var names []string

	globals(e.state).ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			return
		}

		if _, builtin := e.baseline[string(name)]; builtin {
			return
		}

		if _, isFunc := value.(*lua.LFunction); isFunc {
			names = append(names, string(name))
		}
	})

	natsort.Sort(names)

	return names
}

// Resolve implements callable.Resolver.
//
// A Name ref resolves to the global function of that name. A Method ref
// resolves when the receiver is a global table name (string) or a
// *lua.LTable whose member is a function; the table is passed as self.
func (e *Extension) Resolve(ref callable.Ref) (callable.Invocable, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return nil, false
	}

	switch ref.Kind() { //nolint:exhaustive
	case callable.KindName:
		fn, ok := e.state.GetGlobal(ref.Name()).(*lua.LFunction)
		if !ok {
			return nil, false
		}

		return e.invocable(fn, nil), true
	case callable.KindMethod:
		tbl := e.receiverTable(ref.Receiver())
		if tbl == nil {
			return nil, false
		}

		fn, ok := e.state.GetField(tbl, ref.Name()).(*lua.LFunction)
		if !ok {
			return nil, false
		}

		return e.invocable(fn, tbl), true
	default:
		return nil, false
	}
}

func (e *Extension) receiverTable(receiver any) *lua.LTable {
	switch recv := receiver.(type) {
	case string:
		tbl, _ := e.state.GetGlobal(recv).(*lua.LTable)

		return tbl
	case *lua.LTable:
		return recv
	default:
		return nil
	}
}

// invocable holds the mutex for the whole call, so host functions reached from
// a script must not dispatch back into the same Extension.
func (e *Extension) invocable(fn *lua.LFunction, self *lua.LTable) callable.Invocable {
	return func(ctx context.Context, args ...any) (callable.Result, error) {
		e.mutex.Lock()
		defer e.mutex.Unlock()

		if e.closed {
			return callable.None(), ErrClosed
		}

		return e.call(ctx, fn, self, args)
	}
}

// call runs fn with the mutex held. Results left on the stack are popped
// whether or not the call succeeds.
func (e *Extension) call(ctx context.Context, fn *lua.LFunction, self *lua.LTable, args []any) (callable.Result, error) {
	state := e.state
	top := state.GetTop()

	defer state.SetTop(top)

	if ctx != nil {
		state.SetContext(ctx)
		defer state.RemoveContext()
	}

	state.Push(fn)

	nargs := len(args)

	if self != nil {
		state.Push(self)
		nargs++
	}

	for _, arg := range args {
		state.Push(toLua(state, arg))
	}

	if err := state.PCall(nargs, lua.MultRet, nil); err != nil {
		return callable.None(), err
	}

	nret := state.GetTop() - top

	switch nret {
	case 0:
		return callable.None(), nil
	case 1:
		return callable.Some(toGo(state.Get(top + 1))), nil
	default:
		vals := make([]any, nret)
		for i := range nret {
			vals[i] = toGo(state.Get(top + i + 1))
		}

		return callable.Some(vals), nil
	}
}

// Close releases the Lua state. Afterwards nothing resolves and previously
// resolved invocables return ErrClosed.
func (e *Extension) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return nil
	}

	e.state.Close()
	e.closed = true

	return nil
}
